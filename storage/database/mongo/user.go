// Package mongodb implements the domain repositories on MongoDB.
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
	"github.com/trezcool/shule/core/user"
	"github.com/trezcool/shule/storage/database"
)

type userDoc struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	Name      string             `bson:"name"`
	Email     string             `bson:"email"`
	Password  string             `bson:"password"`
	Role      string             `bson:"role"`
	Subject   string             `bson:"subject,omitempty"`
	ClassID   primitive.ObjectID `bson:"classId,omitempty"`
	IsDeleted bool               `bson:"isDeleted"`
	Photo     string             `bson:"photo"`
	CreatedAt time.Time          `bson:"createdAt"`
	UpdatedAt time.Time          `bson:"updatedAt"`
}

// objectID parses a hex ID. The empty string maps to the nil ObjectID.
func objectID(id string) (primitive.ObjectID, error) {
	if id == "" {
		return primitive.NilObjectID, nil
	}
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID, core.NewInvalidIDError(id)
	}
	return oid, nil
}

func hexID(oid primitive.ObjectID) string {
	if oid.IsZero() {
		return ""
	}
	return oid.Hex()
}

func boilUser(usr user.User) (userDoc, error) {
	doc := userDoc{
		Name:      usr.Name,
		Email:     usr.Email,
		Password:  string(usr.PasswordHash),
		Role:      usr.Role().String(),
		Subject:   usr.Subject(),
		IsDeleted: usr.IsDeleted,
		Photo:     usr.Photo,
		CreatedAt: usr.CreatedAt,
		UpdatedAt: usr.UpdatedAt,
	}
	var err error
	if doc.ID, err = objectID(usr.ID); err != nil {
		return userDoc{}, err
	}
	if doc.ClassID, err = objectID(usr.ClassID()); err != nil {
		return userDoc{}, err
	}
	return doc, nil
}

func unboilUser(doc userDoc) user.User {
	return user.User{
		ID:           doc.ID.Hex(),
		Name:         doc.Name,
		Email:        doc.Email,
		PasswordHash: []byte(doc.Password),
		Profile:      user.NewProfile(user.Role(doc.Role), doc.Subject, hexID(doc.ClassID)),
		IsDeleted:    doc.IsDeleted,
		Photo:        doc.Photo,
		CreatedAt:    doc.CreatedAt.UTC(),
		UpdatedAt:    doc.UpdatedAt.UTC(),
	}
}

// mapWriteError turns driver errors into domain errors.
func mapWriteError(err error, field string) error {
	if mongo.IsDuplicateKeyError(err) {
		return core.NewDuplicateKeyError(field)
	}
	return err
}

type userRepository struct {
	coll *mongo.Collection
}

var _ user.Repository = (*userRepository)(nil)

func NewUserRepository(db *mongo.Database) user.Repository {
	return &userRepository{coll: db.Collection(database.UsersCollection)}
}

// live restricts filter to users that are not soft-deleted.
func live(filter bson.D) bson.D {
	return append(filter, bson.E{Key: "isDeleted", Value: false})
}

func (repo *userRepository) findOne(ctx context.Context, filter bson.D) (user.User, error) {
	var doc userDoc
	if err := repo.coll.FindOne(ctx, live(filter)).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return user.User{}, user.ErrNotFound
		}
		return user.User{}, errors.Wrap(err, "finding user")
	}
	return unboilUser(doc), nil
}

func (repo *userRepository) CreateUser(ctx context.Context, usr user.User) (user.User, error) {
	usr.ID = ""
	doc, err := boilUser(usr)
	if err != nil {
		return user.User{}, err
	}
	doc.ID = primitive.NewObjectID()
	if _, err = repo.coll.InsertOne(ctx, doc); err != nil {
		return user.User{}, errors.Wrap(mapWriteError(err, "email"), "inserting user")
	}
	return unboilUser(doc), nil
}

func (repo *userRepository) GetUserByID(ctx context.Context, id string) (user.User, error) {
	oid, err := objectID(id)
	if err != nil || oid.IsZero() {
		return user.User{}, core.NewInvalidIDError(id)
	}
	return repo.findOne(ctx, bson.D{{Key: "_id", Value: oid}})
}

func (repo *userRepository) GetUserByEmail(ctx context.Context, email string) (user.User, error) {
	return repo.findOne(ctx, bson.D{{Key: "email", Value: email}})
}

func (repo *userRepository) QueryUsers(ctx context.Context, qf user.QueryFilter, page core.Page) ([]user.User, int, error) {
	filter := bson.D{}
	if qf.Role != "" {
		filter = append(filter, bson.E{Key: "role", Value: qf.Role.String()})
	}
	if qf.ClassID != "" {
		oid, err := objectID(qf.ClassID)
		if err != nil {
			return nil, 0, nil
		}
		filter = append(filter, bson.E{Key: "classId", Value: oid})
	}
	filter = live(filter)

	total, err := repo.coll.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, errors.Wrap(err, "counting users")
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "_id", Value: 1}}).
		SetSkip(page.Skip()).
		SetLimit(int64(page.Limit))
	cur, err := repo.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, errors.Wrap(err, "querying users")
	}
	var docs []userDoc
	if err = cur.All(ctx, &docs); err != nil {
		return nil, 0, errors.Wrap(err, "decoding users")
	}

	users := make([]user.User, 0, len(docs))
	for _, doc := range docs {
		users = append(users, unboilUser(doc))
	}
	return users, int(total), nil
}

// UpdateUser saves every mutable field of usr. The role and creation time are never written.
func (repo *userRepository) UpdateUser(ctx context.Context, usr user.User) (user.User, error) {
	doc, err := boilUser(usr)
	if err != nil {
		return user.User{}, err
	}

	set := bson.D{
		{Key: "name", Value: doc.Name},
		{Key: "email", Value: doc.Email},
		{Key: "password", Value: doc.Password},
		{Key: "photo", Value: doc.Photo},
		{Key: "updatedAt", Value: doc.UpdatedAt},
	}
	unset := bson.D{}
	switch usr.Role() {
	case user.RoleTeacher:
		set = append(set, bson.E{Key: "subject", Value: doc.Subject})
	case user.RoleStudent:
		if doc.ClassID.IsZero() {
			unset = append(unset, bson.E{Key: "classId", Value: ""})
		} else {
			set = append(set, bson.E{Key: "classId", Value: doc.ClassID})
		}
	}
	update := bson.D{{Key: "$set", Value: set}}
	if len(unset) > 0 {
		update = append(update, bson.E{Key: "$unset", Value: unset})
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var saved userDoc
	err = repo.coll.FindOneAndUpdate(ctx, live(bson.D{{Key: "_id", Value: doc.ID}}), update, opts).Decode(&saved)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return user.User{}, user.ErrNotFound
		}
		return user.User{}, errors.Wrap(mapWriteError(err, "email"), "updating user")
	}
	return unboilUser(saved), nil
}

func (repo *userRepository) DeleteUser(ctx context.Context, id string) error {
	oid, err := objectID(id)
	if err != nil || oid.IsZero() {
		return core.NewInvalidIDError(id)
	}
	update := bson.D{{Key: "$set", Value: bson.D{
		{Key: "isDeleted", Value: true},
		{Key: "updatedAt", Value: time.Now().UTC()},
	}}}
	res, err := repo.coll.UpdateOne(ctx, live(bson.D{{Key: "_id", Value: oid}}), update)
	if err != nil {
		return errors.Wrap(err, "deleting user")
	}
	if res.MatchedCount == 0 {
		return user.ErrNotFound
	}
	return nil
}
