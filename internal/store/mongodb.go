package store

import (
	"context"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"

	"timeledger/internal/model"
)

type MongoDB struct {
	client       *mongo.Client
	db           *mongo.Database
	transactions bool
}

// NewMongoDB connects and pings the primary. With transactions enabled, Atomic runs its
// callback in a multi-document transaction, which requires a replica set.
func NewMongoDB(uri, database string, transactions bool) (*MongoDB, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(options.Client().ApplyURI(uri).SetRegistry(NewRegistry()))
	if err != nil {
		return nil, errors.Wrap(err, "connect to mongodb")
	}

	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, errors.Wrap(err, "ping mongodb")
	}

	log.WithFields(log.Fields{
		"database":     database,
		"transactions": transactions,
	}).Info("connected to mongodb")

	return &MongoDB{
		client:       client,
		db:           client.Database(database),
		transactions: transactions,
	}, nil
}

func (m *MongoDB) Collection(name string) *mongo.Collection {
	return m.db.Collection(name)
}

func (m *MongoDB) Ping(ctx context.Context) error {
	return m.client.Ping(ctx, readpref.Primary())
}

func (m *MongoDB) Close(ctx context.Context) error {
	return m.client.Disconnect(ctx)
}

// Atomic runs fn in a transaction. Without transactions fn runs directly and relies on
// the conditional writes of each store method.
func (m *MongoDB) Atomic(ctx context.Context, fn func(ctx context.Context) error) error {
	if !m.transactions {
		return fn(ctx)
	}
	sess, err := m.client.StartSession()
	if err != nil {
		return errors.Wrap(err, "start session")
	}
	defer sess.EndSession(ctx)

	_, err = sess.WithTransaction(ctx, func(ctx context.Context) (any, error) {
		return nil, fn(ctx)
	})
	return err
}

// Drop removes the database. Used by integration tests.
func (m *MongoDB) Drop(ctx context.Context) error {
	return m.db.Drop(ctx)
}

// writeErr maps duplicate key violations to model.ErrDuplicate.
func writeErr(err error, msg string) error {
	if err == nil {
		return nil
	}
	if mongo.IsDuplicateKeyError(err) {
		return model.ErrDuplicate
	}
	return errors.Wrap(err, msg)
}
