package databases

// go generate: mockery --name ContactDatabase

import (
	"context"

	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/harshach55/AssistQR/models"
)

const contactName = "contacts"

// ContactDatabase contains the methods to use with the emergency contact database
type ContactDatabase interface {
	FindOne(ctx context.Context, filter interface{}) (*models.EmergencyContact, error)
	Find(ctx context.Context, filter interface{}, opts ...*options.FindOptions) ([]models.EmergencyContact, error)
	InsertOne(ctx context.Context, contact models.EmergencyContact, opts ...*options.InsertOneOptions) (interface{}, error)
	DeleteOne(ctx context.Context, filter interface{}, opts ...*options.DeleteOptions) error
	DeleteMany(ctx context.Context, filter interface{}, opts ...*options.DeleteOptions) error
}

type contactDatabase struct {
	db DatabaseHelper
}

// NewContactDatabase initializes a new instance of contact database with the provided db connection
func NewContactDatabase(db DatabaseHelper) ContactDatabase {
	return &contactDatabase{
		db: db,
	}
}

func (c *contactDatabase) FindOne(ctx context.Context, filter interface{}) (*models.EmergencyContact, error) {
	contact := &models.EmergencyContact{}
	err := c.db.Collection(contactName).FindOne(ctx, filter).Decode(&contact)
	if err != nil {
		return nil, err
	}
	return contact, nil
}

func (c *contactDatabase) Find(ctx context.Context, filter interface{}, opts ...*options.FindOptions) ([]models.EmergencyContact, error) {
	cursor, err := c.db.Collection(contactName).Find(ctx, filter, opts...)
	if err != nil {
		return nil, err
	}
	var contacts []models.EmergencyContact
	if err := cursor.Decode(&contacts); err != nil {
		return nil, err
	}
	return contacts, nil
}

func (c *contactDatabase) InsertOne(ctx context.Context, contact models.EmergencyContact, opts ...*options.InsertOneOptions) (interface{}, error) {
	return c.db.Collection(contactName).InsertOne(ctx, contact, opts...)
}

func (c *contactDatabase) DeleteOne(ctx context.Context, filter interface{}, opts ...*options.DeleteOptions) error {
	return c.db.Collection(contactName).DeleteOne(ctx, filter, opts...)
}

func (c *contactDatabase) DeleteMany(ctx context.Context, filter interface{}, opts ...*options.DeleteOptions) error {
	return c.db.Collection(contactName).DeleteMany(ctx, filter, opts...)
}
