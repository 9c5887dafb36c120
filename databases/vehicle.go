package databases

// go generate: mockery --name VehicleDatabase

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/harshach55/AssistQR/models"
)

const vehicleName = "vehicles"

// VehicleDatabase contains the methods to use with the vehicle database
type VehicleDatabase interface {
	FindOne(ctx context.Context, filter interface{}) (*models.Vehicle, error)
	FindByToken(ctx context.Context, qrToken string) (*models.Vehicle, error)
	Find(ctx context.Context, filter interface{}, opts ...*options.FindOptions) ([]models.Vehicle, error)
	InsertOne(ctx context.Context, vehicle models.Vehicle, opts ...*options.InsertOneOptions) (interface{}, error)
	DeleteOne(ctx context.Context, filter interface{}, opts ...*options.DeleteOptions) error
}

type vehicleDatabase struct {
	db DatabaseHelper
}

// NewVehicleDatabase initializes a new instance of vehicle database with the provided db connection
func NewVehicleDatabase(db DatabaseHelper) VehicleDatabase {
	return &vehicleDatabase{
		db: db,
	}
}

func (c *vehicleDatabase) FindOne(ctx context.Context, filter interface{}) (*models.Vehicle, error) {
	vehicle := &models.Vehicle{}
	err := c.db.Collection(vehicleName).FindOne(ctx, filter).Decode(&vehicle)
	if err != nil {
		return nil, err
	}
	return vehicle, nil
}

func (c *vehicleDatabase) FindByToken(ctx context.Context, qrToken string) (*models.Vehicle, error) {
	return c.FindOne(ctx, bson.M{"qrToken": qrToken})
}

func (c *vehicleDatabase) Find(ctx context.Context, filter interface{}, opts ...*options.FindOptions) ([]models.Vehicle, error) {
	cursor, err := c.db.Collection(vehicleName).Find(ctx, filter, opts...)
	if err != nil {
		return nil, err
	}
	var vehicles []models.Vehicle
	if err := cursor.Decode(&vehicles); err != nil {
		return nil, err
	}
	return vehicles, nil
}

func (c *vehicleDatabase) InsertOne(ctx context.Context, vehicle models.Vehicle, opts ...*options.InsertOneOptions) (interface{}, error) {
	return c.db.Collection(vehicleName).InsertOne(ctx, vehicle, opts...)
}

func (c *vehicleDatabase) DeleteOne(ctx context.Context, filter interface{}, opts ...*options.DeleteOptions) error {
	return c.db.Collection(vehicleName).DeleteOne(ctx, filter, opts...)
}
