package databases

// go generate: mockery --name OwnerDatabase

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/harshach55/AssistQR/models"
)

const ownerName = "owners"

// OwnerDatabase contains the methods to use with the owner database
type OwnerDatabase interface {
	FindOne(ctx context.Context, filter interface{}) (*models.Owner, error)
	FindByEmail(ctx context.Context, email string) (*models.Owner, error)
	InsertOne(ctx context.Context, owner models.Owner, opts ...*options.InsertOneOptions) (interface{}, error)
}

type ownerDatabase struct {
	db DatabaseHelper
}

// NewOwnerDatabase initializes a new instance of owner database with the provided db connection
func NewOwnerDatabase(db DatabaseHelper) OwnerDatabase {
	return &ownerDatabase{
		db: db,
	}
}

func (c *ownerDatabase) FindOne(ctx context.Context, filter interface{}) (*models.Owner, error) {
	owner := &models.Owner{}
	err := c.db.Collection(ownerName).FindOne(ctx, filter).Decode(&owner)
	if err != nil {
		return nil, err
	}
	return owner, nil
}

func (c *ownerDatabase) FindByEmail(ctx context.Context, email string) (*models.Owner, error) {
	return c.FindOne(ctx, bson.M{"email": email})
}

func (c *ownerDatabase) InsertOne(ctx context.Context, owner models.Owner, opts ...*options.InsertOneOptions) (interface{}, error) {
	return c.db.Collection(ownerName).InsertOne(ctx, owner, opts...)
}
