package database

import (
	"context"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/trezcool/shule/core"
)

// Collections
const (
	UsersCollection   = "users"
	ClassesCollection = "classes"
)

// Open connects to the configured MongoDB deployment and checks that it answers.
// The caller owns the returned client and must Disconnect it.
func Open(ctx context.Context, conf *core.Config) (*mongo.Client, *mongo.Database, error) {
	ctx, cancel := context.WithTimeout(ctx, conf.Database.ConnectTimeout)
	defer cancel()

	opts := options.Client().ApplyURI(conf.Database.URI).SetAppName(conf.AppName)

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, nil, errors.Wrap(err, "connecting to database")
	}
	if err = client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, nil, errors.Wrap(err, "pinging database")
	}
	return client, client.Database(conf.Database.Name), nil
}

// EnsureIndexes creates the indexes the stores rely on. Existing indexes are left untouched.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	users := []mongo.IndexModel{
		{
			// emails are unique among live users only
			Keys: bson.D{{Key: "email", Value: 1}},
			Options: options.Index().
				SetName("email_unique_live").
				SetUnique(true).
				SetPartialFilterExpression(bson.D{{Key: "isDeleted", Value: false}}),
		},
		{Keys: bson.D{{Key: "role", Value: 1}}, Options: options.Index().SetName("role")},
		{Keys: bson.D{{Key: "classId", Value: 1}}, Options: options.Index().SetName("classId").SetSparse(true)},
	}
	if _, err := db.Collection(UsersCollection).Indexes().CreateMany(ctx, users); err != nil {
		return errors.Wrap(err, "creating user indexes")
	}

	classes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "name", Value: 1}},
			Options: options.Index().SetName("name_unique").SetUnique(true),
		},
	}
	if _, err := db.Collection(ClassesCollection).Indexes().CreateMany(ctx, classes); err != nil {
		return errors.Wrap(err, "creating class indexes")
	}
	return nil
}
