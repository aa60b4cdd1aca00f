package inmemdb

import (
	"context"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/user"
)

type userRepository struct {
	db *userTable
}

var _ user.Repository = (*userRepository)(nil)

func NewUserRepository(db *DB) user.Repository {
	return &userRepository{db: db.user}
}

// query returns the live users in insertion order. The caller must hold the lock.
func (repo *userRepository) query(keep func(usr *user.User) bool) []user.User {
	users := make([]user.User, 0, len(repo.db.table))
	for _, id := range sortedIDs(repo.db.table) {
		usr := repo.db.table[id]
		if usr.IsDeleted || (keep != nil && !keep(usr)) {
			continue
		}
		users = append(users, *usr)
	}
	return users
}

func (repo *userRepository) emailTaken(email, exceptID string) bool {
	for _, usr := range repo.db.table {
		if !usr.IsDeleted && usr.Email == email && usr.ID != exceptID {
			return true
		}
	}
	return false
}

func (repo *userRepository) CreateUser(_ context.Context, usr user.User) (user.User, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if repo.emailTaken(usr.Email, "") {
		return user.User{}, core.NewDuplicateKeyError("email")
	}
	usr.ID = core.NewID()
	repo.db.table[usr.ID] = &usr
	return usr, nil
}

func (repo *userRepository) GetUserByID(_ context.Context, id string) (user.User, error) {
	if !core.IsValidID(id) {
		return user.User{}, core.NewInvalidIDError(id)
	}
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if usr, ok := repo.db.table[id]; ok && !usr.IsDeleted {
		return *usr, nil
	}
	return user.User{}, user.ErrNotFound
}

func (repo *userRepository) GetUserByEmail(_ context.Context, email string) (user.User, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	for _, usr := range repo.query(nil) {
		if usr.Email == email {
			return usr, nil
		}
	}
	return user.User{}, user.ErrNotFound
}

func (repo *userRepository) QueryUsers(_ context.Context, filter user.QueryFilter, page core.Page) ([]user.User, int, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	users := repo.query(func(usr *user.User) bool {
		if filter.Role != "" && usr.Role() != filter.Role {
			return false
		}
		if filter.ClassID != "" && usr.ClassID() != filter.ClassID {
			return false
		}
		return true
	})
	start, end := page.Window(len(users))
	return users[start:end], len(users), nil
}

func (repo *userRepository) UpdateUser(_ context.Context, usr user.User) (user.User, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	orig, ok := repo.db.table[usr.ID]
	if !ok || orig.IsDeleted {
		return user.User{}, user.ErrNotFound
	}
	if repo.emailTaken(usr.Email, usr.ID) {
		return user.User{}, core.NewDuplicateKeyError("email")
	}
	// the role is immutable, and so is the profile variant
	if usr.Role() != orig.Role() {
		usr.Profile = orig.Profile
	}
	usr.CreatedAt = orig.CreatedAt
	usr.IsDeleted = false
	repo.db.table[usr.ID] = &usr
	return usr, nil
}

func (repo *userRepository) DeleteUser(_ context.Context, id string) error {
	if !core.IsValidID(id) {
		return core.NewInvalidIDError(id)
	}
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	usr, ok := repo.db.table[id]
	if !ok || usr.IsDeleted {
		return user.ErrNotFound
	}
	usr.IsDeleted = true
	return nil
}
