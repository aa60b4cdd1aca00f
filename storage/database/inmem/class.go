package inmemdb

import (
	"context"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/class"
	"github.com/trezcool/shule/core/user"
)

type classRepository struct {
	db *classTable
}

var (
	_ class.Repository    = (*classRepository)(nil)
	_ user.ClassDirectory = (*classRepository)(nil)
)

func NewClassRepository(db *DB) class.Repository {
	return &classRepository{db: db.class}
}

func (repo *classRepository) nameTaken(name, exceptID string) bool {
	for _, c := range repo.db.table {
		if c.Name == name && c.ID != exceptID {
			return true
		}
	}
	return false
}

func (repo *classRepository) CreateClass(_ context.Context, c class.Class) (class.Class, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if repo.nameTaken(c.Name, "") {
		return class.Class{}, core.NewDuplicateKeyError("name")
	}
	c.ID = core.NewID()
	c.StudentCount = 0
	repo.db.table[c.ID] = &c
	return c, nil
}

func (repo *classRepository) GetClass(_ context.Context, id string) (class.Class, error) {
	if !core.IsValidID(id) {
		return class.Class{}, core.NewInvalidIDError(id)
	}
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if c, ok := repo.db.table[id]; ok {
		return *c, nil
	}
	return class.Class{}, class.ErrNotFound
}

func (repo *classRepository) QueryClasses(_ context.Context, page core.Page) ([]class.Class, int, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	classes := make([]class.Class, 0, len(repo.db.table))
	for _, id := range sortedIDs(repo.db.table) {
		classes = append(classes, *repo.db.table[id])
	}
	start, end := page.Window(len(classes))
	return classes[start:end], len(classes), nil
}

func (repo *classRepository) UpdateClass(_ context.Context, c class.Class) (class.Class, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	orig, ok := repo.db.table[c.ID]
	if !ok {
		return class.Class{}, class.ErrNotFound
	}
	if repo.nameTaken(c.Name, c.ID) {
		return class.Class{}, core.NewDuplicateKeyError("name")
	}
	// only the name and the teacher are saved
	orig.Name = c.Name
	orig.TeacherID = c.TeacherID
	return *orig, nil
}

func (repo *classRepository) DeleteClass(_ context.Context, id string) error {
	if !core.IsValidID(id) {
		return core.NewInvalidIDError(id)
	}
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.table[id]; !ok {
		return class.ErrNotFound
	}
	delete(repo.db.table, id)
	return nil
}

func (repo *classRepository) ClassExists(_ context.Context, id string) (bool, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	_, ok := repo.db.table[id]
	return ok, nil
}

func (repo *classRepository) IncStudentCount(_ context.Context, id string, delta int) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if c, ok := repo.db.table[id]; ok {
		c.StudentCount += delta
	}
	return nil
}
