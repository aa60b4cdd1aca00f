package inmemdb

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/class"
	"github.com/trezcool/shule/core/user"
	"github.com/trezcool/shule/tests"
)

func TestUserRepository(t *testing.T) {
	ctx := context.Background()
	db := NewDB()
	repo := NewUserRepository(db)

	t1 := testutil.CreateUser(t, repo, "T1", "t1@test.cd", "", user.RoleTeacher, "Math", "")
	s1 := testutil.CreateUser(t, repo, "S1", "s1@test.cd", "", user.RoleStudent, "", "5f8d0d55b54764421b7156c9")
	testutil.CreateUser(t, repo, "S2", "s2@test.cd", "", user.RoleStudent, "", "")

	t.Run("duplicate email", func(t *testing.T) {
		_, err := repo.CreateUser(ctx, user.User{Name: "X", Email: "t1@test.cd", Profile: user.AdminProfile{}})
		var dupErr *core.DuplicateKeyError
		assert.True(t, errors.As(err, &dupErr))
	})

	t.Run("get by id", func(t *testing.T) {
		got, err := repo.GetUserByID(ctx, t1.ID)
		require.NoError(t, err)
		assert.Equal(t, "Math", got.Subject())

		_, err = repo.GetUserByID(ctx, "lol")
		assert.IsType(t, &core.InvalidIDError{}, err)

		_, err = repo.GetUserByID(ctx, core.NewID())
		assert.Equal(t, user.ErrNotFound, err)
	})

	t.Run("query", func(t *testing.T) {
		users, total, err := repo.QueryUsers(ctx, user.QueryFilter{Role: user.RoleStudent}, core.Page{Number: 1, Limit: 1})
		require.NoError(t, err)
		assert.Equal(t, 2, total)
		require.Len(t, users, 1)
		assert.Equal(t, s1.ID, users[0].ID)

		users, total, err = repo.QueryUsers(ctx, user.QueryFilter{ClassID: s1.ClassID()}, core.Page{Number: 1, Limit: 10})
		require.NoError(t, err)
		assert.Equal(t, 1, total)
		assert.Equal(t, s1.ID, users[0].ID)
	})

	t.Run("soft delete", func(t *testing.T) {
		require.NoError(t, repo.DeleteUser(ctx, s1.ID))

		_, err := repo.GetUserByID(ctx, s1.ID)
		assert.Equal(t, user.ErrNotFound, err)
		_, err = repo.GetUserByEmail(ctx, s1.Email)
		assert.Equal(t, user.ErrNotFound, err)
		assert.Equal(t, user.ErrNotFound, repo.DeleteUser(ctx, s1.ID))

		// the email is free again
		testutil.CreateUser(t, repo, "S1 again", s1.Email, "", user.RoleStudent, "", "")
	})

	t.Run("update keeps the role", func(t *testing.T) {
		upd := t1
		upd.Name = "T1 bis"
		upd.Profile = user.AdminProfile{}
		got, err := repo.UpdateUser(ctx, upd)
		require.NoError(t, err)
		assert.Equal(t, "T1 bis", got.Name)
		assert.Equal(t, user.RoleTeacher, got.Role())
	})
}

func TestClassRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewClassRepository(NewDB())
	teacherID := core.NewID()

	c1 := testutil.CreateClass(t, repo, "Form 1", teacherID)
	c2 := testutil.CreateClass(t, repo, "Form 2", teacherID)

	_, err := repo.CreateClass(ctx, class.Class{Name: "Form 1", TeacherID: teacherID})
	assert.IsType(t, &core.DuplicateKeyError{}, err)

	c2.Name = "Form 1"
	_, err = repo.UpdateClass(ctx, c2)
	assert.IsType(t, &core.DuplicateKeyError{}, err)

	require.NoError(t, repo.IncStudentCount(ctx, c1.ID, 2))
	require.NoError(t, repo.IncStudentCount(ctx, c1.ID, -1))
	require.NoError(t, repo.IncStudentCount(ctx, core.NewID(), 1))
	got, err := repo.GetClass(ctx, c1.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.StudentCount)

	ok, err := repo.ClassExists(ctx, c1.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	classes, total, err := repo.QueryClasses(ctx, core.Page{Number: 2, Limit: 1})
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	require.Len(t, classes, 1)
	assert.Equal(t, c2.ID, classes[0].ID)

	require.NoError(t, repo.DeleteClass(ctx, c1.ID))
	_, err = repo.GetClass(ctx, c1.ID)
	assert.Equal(t, class.ErrNotFound, err)
	assert.Equal(t, class.ErrNotFound, repo.DeleteClass(ctx, c1.ID))

	_, err = repo.GetClass(ctx, "123")
	assert.IsType(t, &core.InvalidIDError{}, err)
}
