package mongodb

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/class"
	"github.com/trezcool/shule/storage/database"
)

const classesNS = "test." + database.ClassesCollection

func classDocD(oid, teacherID primitive.ObjectID, students int32) bson.D {
	return bson.D{
		{Key: "_id", Value: oid},
		{Key: "name", Value: "1A"},
		{Key: "teacher", Value: teacherID},
		{Key: "studentCount", Value: students},
		{Key: "createdAt", Value: time.Date(2021, 1, 2, 3, 4, 5, 0, time.UTC)},
	}
}

func TestClassRepository_CreateClass(t *testing.T) {
	mt := newMock(t)

	mt.Run("duplicate name", func(mt *mtest.T) {
		repo := NewClassRepository(mt.DB)
		mt.AddMockResponses(mtest.CreateWriteErrorsResponse(mtest.WriteError{
			Index:   0,
			Code:    11000,
			Message: "E11000 duplicate key error collection: test.classes index: name_1",
		}))

		_, err := repo.CreateClass(context.Background(), class.Class{Name: "1A", TeacherID: primitive.NewObjectID().Hex()})
		var dupErr *core.DuplicateKeyError
		require.True(mt, errors.As(err, &dupErr), "got %v", err)
		assert.Equal(mt, "name", dupErr.Field)
	})

	mt.Run("malformed teacher ID", func(mt *mtest.T) {
		repo := NewClassRepository(mt.DB)

		_, err := repo.CreateClass(context.Background(), class.Class{Name: "1A", TeacherID: "nope"})
		var idErr *core.InvalidIDError
		require.True(mt, errors.As(err, &idErr), "got %v", err)
		assert.Empty(mt, mt.GetAllStartedEvents())
	})
}

func TestClassRepository_GetClass(t *testing.T) {
	mt := newMock(t)

	mt.Run("found", func(mt *mtest.T) {
		repo := NewClassRepository(mt.DB)
		oid, teacherID := primitive.NewObjectID(), primitive.NewObjectID()
		mt.AddMockResponses(mtest.CreateCursorResponse(0, classesNS, mtest.FirstBatch, classDocD(oid, teacherID, 3)))

		c, err := repo.GetClass(context.Background(), oid.Hex())
		require.NoError(mt, err)
		assert.Equal(mt, oid.Hex(), c.ID)
		assert.Equal(mt, teacherID.Hex(), c.TeacherID)
		assert.Equal(mt, 3, c.StudentCount)
	})

	mt.Run("not found", func(mt *mtest.T) {
		repo := NewClassRepository(mt.DB)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, classesNS, mtest.FirstBatch))

		_, err := repo.GetClass(context.Background(), primitive.NewObjectID().Hex())
		assert.Equal(mt, class.ErrNotFound, err)
	})

	mt.Run("malformed ID", func(mt *mtest.T) {
		repo := NewClassRepository(mt.DB)

		_, err := repo.GetClass(context.Background(), "nope")
		var idErr *core.InvalidIDError
		require.True(mt, errors.As(err, &idErr), "got %v", err)
		assert.Empty(mt, mt.GetAllStartedEvents())
	})
}

func TestClassRepository_UpdateDelete(t *testing.T) {
	mt := newMock(t)

	mt.Run("update not found", func(mt *mtest.T) {
		repo := NewClassRepository(mt.DB)
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "value", Value: nil}))

		_, err := repo.UpdateClass(context.Background(), class.Class{ID: primitive.NewObjectID().Hex(), Name: "1B"})
		assert.Equal(mt, class.ErrNotFound, err)
	})

	mt.Run("delete not found", func(mt *mtest.T) {
		repo := NewClassRepository(mt.DB)
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "n", Value: int32(0)}))

		err := repo.DeleteClass(context.Background(), primitive.NewObjectID().Hex())
		assert.Equal(mt, class.ErrNotFound, err)
	})

	mt.Run("inc student count", func(mt *mtest.T) {
		repo := NewClassRepository(mt.DB).(*classRepository)
		oid := primitive.NewObjectID()
		mt.AddMockResponses(mtest.CreateSuccessResponse(
			bson.E{Key: "n", Value: int32(1)},
			bson.E{Key: "nModified", Value: int32(1)},
		))

		require.NoError(mt, repo.IncStudentCount(context.Background(), oid.Hex(), -1))

		u := lastCommand(mt, "update").Lookup("updates").Array().Index(0).Value().Document().Lookup("u").Document()
		assert.EqualValues(mt, -1, u.Lookup("$inc").Document().Lookup("studentCount").AsInt64())
	})

	mt.Run("malformed IDs are ignored by the directory", func(mt *mtest.T) {
		repo := NewClassRepository(mt.DB).(*classRepository)

		ok, err := repo.ClassExists(context.Background(), "nope")
		require.NoError(mt, err)
		assert.False(mt, ok)
		require.NoError(mt, repo.IncStudentCount(context.Background(), "nope", 1))
		assert.Empty(mt, mt.GetAllStartedEvents())
	})
}
