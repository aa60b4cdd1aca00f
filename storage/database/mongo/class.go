package mongodb

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/class"
	"github.com/trezcool/shule/core/user"
	"github.com/trezcool/shule/storage/database"
)

type classDoc struct {
	ID           primitive.ObjectID `bson:"_id,omitempty"`
	Name         string             `bson:"name"`
	TeacherID    primitive.ObjectID `bson:"teacher"`
	StudentCount int                `bson:"studentCount"`
	CreatedAt    time.Time          `bson:"createdAt"`
}

func unboilClass(doc classDoc) class.Class {
	return class.Class{
		ID:           doc.ID.Hex(),
		Name:         doc.Name,
		TeacherID:    hexID(doc.TeacherID),
		StudentCount: doc.StudentCount,
		CreatedAt:    doc.CreatedAt.UTC(),
	}
}

type classRepository struct {
	coll *mongo.Collection
}

var (
	_ class.Repository    = (*classRepository)(nil)
	_ user.ClassDirectory = (*classRepository)(nil)
)

func NewClassRepository(db *mongo.Database) class.Repository {
	return &classRepository{coll: db.Collection(database.ClassesCollection)}
}

func (repo *classRepository) byID(id string) (bson.D, error) {
	oid, err := objectID(id)
	if err != nil || oid.IsZero() {
		return nil, core.NewInvalidIDError(id)
	}
	return bson.D{{Key: "_id", Value: oid}}, nil
}

func (repo *classRepository) CreateClass(ctx context.Context, c class.Class) (class.Class, error) {
	teacherID, err := objectID(c.TeacherID)
	if err != nil {
		return class.Class{}, err
	}
	doc := classDoc{
		ID:        primitive.NewObjectID(),
		Name:      c.Name,
		TeacherID: teacherID,
		CreatedAt: c.CreatedAt,
	}
	if _, err = repo.coll.InsertOne(ctx, doc); err != nil {
		return class.Class{}, errors.Wrap(mapWriteError(err, "name"), "inserting class")
	}
	return unboilClass(doc), nil
}

func (repo *classRepository) GetClass(ctx context.Context, id string) (class.Class, error) {
	filter, err := repo.byID(id)
	if err != nil {
		return class.Class{}, err
	}
	var doc classDoc
	if err = repo.coll.FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return class.Class{}, class.ErrNotFound
		}
		return class.Class{}, errors.Wrap(err, "finding class")
	}
	return unboilClass(doc), nil
}

func (repo *classRepository) QueryClasses(ctx context.Context, page core.Page) ([]class.Class, int, error) {
	total, err := repo.coll.CountDocuments(ctx, bson.D{})
	if err != nil {
		return nil, 0, errors.Wrap(err, "counting classes")
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "_id", Value: 1}}).
		SetSkip(page.Skip()).
		SetLimit(int64(page.Limit))
	cur, err := repo.coll.Find(ctx, bson.D{}, opts)
	if err != nil {
		return nil, 0, errors.Wrap(err, "querying classes")
	}
	var docs []classDoc
	if err = cur.All(ctx, &docs); err != nil {
		return nil, 0, errors.Wrap(err, "decoding classes")
	}

	classes := make([]class.Class, 0, len(docs))
	for _, doc := range docs {
		classes = append(classes, unboilClass(doc))
	}
	return classes, int(total), nil
}

func (repo *classRepository) UpdateClass(ctx context.Context, c class.Class) (class.Class, error) {
	filter, err := repo.byID(c.ID)
	if err != nil {
		return class.Class{}, err
	}
	teacherID, err := objectID(c.TeacherID)
	if err != nil {
		return class.Class{}, err
	}
	update := bson.D{{Key: "$set", Value: bson.D{
		{Key: "name", Value: c.Name},
		{Key: "teacher", Value: teacherID},
	}}}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var doc classDoc
	if err = repo.coll.FindOneAndUpdate(ctx, filter, update, opts).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return class.Class{}, class.ErrNotFound
		}
		return class.Class{}, errors.Wrap(mapWriteError(err, "name"), "updating class")
	}
	return unboilClass(doc), nil
}

func (repo *classRepository) DeleteClass(ctx context.Context, id string) error {
	filter, err := repo.byID(id)
	if err != nil {
		return err
	}
	res, err := repo.coll.DeleteOne(ctx, filter)
	if err != nil {
		return errors.Wrap(err, "deleting class")
	}
	if res.DeletedCount == 0 {
		return class.ErrNotFound
	}
	return nil
}

func (repo *classRepository) ClassExists(ctx context.Context, id string) (bool, error) {
	filter, err := repo.byID(id)
	if err != nil {
		return false, nil
	}
	n, err := repo.coll.CountDocuments(ctx, filter, options.Count().SetLimit(1))
	if err != nil {
		return false, errors.Wrap(err, "checking class")
	}
	return n > 0, nil
}

func (repo *classRepository) IncStudentCount(ctx context.Context, id string, delta int) error {
	filter, err := repo.byID(id)
	if err != nil {
		return nil
	}
	update := bson.D{{Key: "$inc", Value: bson.D{{Key: "studentCount", Value: delta}}}}
	if _, err = repo.coll.UpdateOne(ctx, filter, update); err != nil {
		return errors.Wrap(err, "counting students")
	}
	return nil
}
