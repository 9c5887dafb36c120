package databases

// go generate: mockery --name ReportDatabase

import (
	"context"

	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/harshach55/AssistQR/models"
)

const reportName = "reports"

// ReportDatabase contains the methods to use with the accident report database
type ReportDatabase interface {
	FindOne(ctx context.Context, filter interface{}) (*models.AccidentReport, error)
	Find(ctx context.Context, filter interface{}, opts ...*options.FindOptions) ([]models.AccidentReport, error)
	InsertOne(ctx context.Context, report models.AccidentReport, opts ...*options.InsertOneOptions) (interface{}, error)
	DeleteMany(ctx context.Context, filter interface{}, opts ...*options.DeleteOptions) error
}

type reportDatabase struct {
	db DatabaseHelper
}

// NewReportDatabase initializes a new instance of report database with the provided db connection
func NewReportDatabase(db DatabaseHelper) ReportDatabase {
	return &reportDatabase{
		db: db,
	}
}

func (c *reportDatabase) FindOne(ctx context.Context, filter interface{}) (*models.AccidentReport, error) {
	report := &models.AccidentReport{}
	err := c.db.Collection(reportName).FindOne(ctx, filter).Decode(&report)
	if err != nil {
		return nil, err
	}
	return report, nil
}

func (c *reportDatabase) Find(ctx context.Context, filter interface{}, opts ...*options.FindOptions) ([]models.AccidentReport, error) {
	cursor, err := c.db.Collection(reportName).Find(ctx, filter, opts...)
	if err != nil {
		return nil, err
	}
	var reports []models.AccidentReport
	if err := cursor.Decode(&reports); err != nil {
		return nil, err
	}
	return reports, nil
}

func (c *reportDatabase) InsertOne(ctx context.Context, report models.AccidentReport, opts ...*options.InsertOneOptions) (interface{}, error) {
	return c.db.Collection(reportName).InsertOne(ctx, report, opts...)
}

func (c *reportDatabase) DeleteMany(ctx context.Context, filter interface{}, opts ...*options.DeleteOptions) error {
	return c.db.Collection(reportName).DeleteMany(ctx, filter, opts...)
}
