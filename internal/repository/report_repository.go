package repository

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/alertx/alertx/internal/domain"
	"github.com/alertx/alertx/internal/infrastructure/mongodb"
)

type reportDoc struct {
	ID           primitive.ObjectID `bson:"_id,omitempty"`
	Type         string             `bson:"type"`
	Description  string             `bson:"description"`
	Location     string             `bson:"location"`
	LocationName string             `bson:"locationName,omitempty"`
	ImageURL     string             `bson:"imageUrl"`
	Severity     string             `bson:"severity"`
	Priority     string             `bson:"priority"`
	Department   string             `bson:"department"`
	Status       string             `bson:"status"`
	CreatedAt    time.Time          `bson:"createdAt"`
	UpdatedAt    time.Time          `bson:"updatedAt"`
}

func (d *reportDoc) toDomain() *domain.Report {
	return &domain.Report{
		ID:           d.ID.Hex(),
		Type:         d.Type,
		Description:  d.Description,
		Location:     d.Location,
		LocationName: d.LocationName,
		ImageURL:     d.ImageURL,
		Severity:     d.Severity,
		Priority:     d.Priority,
		Department:   d.Department,
		Status:       d.Status,
		CreatedAt:    d.CreatedAt,
		UpdatedAt:    d.UpdatedAt,
	}
}

// MongoReportRepository implements domain.ReportRepository using MongoDB
type MongoReportRepository struct {
	col    *mongo.Collection
	logger *slog.Logger
}

// NewMongoReportRepository creates a new report repository
func NewMongoReportRepository(client *mongodb.Client, logger *slog.Logger) *MongoReportRepository {
	if logger == nil {
		logger = slog.Default()
	}

	return &MongoReportRepository{
		col:    client.Collection("reports"),
		logger: logger,
	}
}

// Insert persists a new report and fills in its generated id and timestamps
func (r *MongoReportRepository) Insert(ctx context.Context, report *domain.Report) error {
	now := time.Now().UTC()
	if report.Status == "" {
		report.Status = domain.StatusPending
	}

	doc := reportDoc{
		Type:         report.Type,
		Description:  report.Description,
		Location:     report.Location,
		LocationName: report.LocationName,
		ImageURL:     report.ImageURL,
		Severity:     report.Severity,
		Priority:     report.Priority,
		Department:   report.Department,
		Status:       report.Status,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	res, err := r.col.InsertOne(ctx, doc)
	if err != nil {
		r.logger.Error("failed to insert report", slog.String("error", err.Error()))
		return fmt.Errorf("insert report: %w", err)
	}

	report.ID = res.InsertedID.(primitive.ObjectID).Hex()
	report.CreatedAt = now
	report.UpdatedAt = now
	return nil
}

// List returns all reports in storage order
func (r *MongoReportRepository) List(ctx context.Context) ([]*domain.Report, error) {
	cur, err := r.col.Find(ctx, bson.M{})
	if err != nil {
		r.logger.Error("failed to list reports", slog.String("error", err.Error()))
		return nil, fmt.Errorf("list reports: %w", err)
	}
	defer cur.Close(ctx)

	reports := []*domain.Report{}
	for cur.Next(ctx) {
		var doc reportDoc
		if err := cur.Decode(&doc); err != nil {
			return nil, fmt.Errorf("decode report: %w", err)
		}
		reports = append(reports, doc.toDomain())
	}

	return reports, cur.Err()
}

// GetByID retrieves a report by its id
func (r *MongoReportRepository) GetByID(ctx context.Context, id string) (*domain.Report, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, domain.ErrNotFound
	}

	var doc reportDoc
	err = r.col.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get report: %w", err)
	}

	return doc.toDomain(), nil
}

// UpdateStatus sets the status of an existing report and returns the updated
// record. A missing id yields domain.ErrNotFound and no write happens.
func (r *MongoReportRepository) UpdateStatus(ctx context.Context, id, status string) (*domain.Report, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, domain.ErrNotFound
	}

	update := bson.M{"$set": bson.M{
		"status":    status,
		"updatedAt": time.Now().UTC(),
	}}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var doc reportDoc
	err = r.col.FindOneAndUpdate(ctx, bson.M{"_id": oid}, update, opts).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrNotFound
		}
		r.logger.Error("failed to update report status",
			slog.String("id", id),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("update report status: %w", err)
	}

	return doc.toDomain(), nil
}

// Delete removes a report by id
func (r *MongoReportRepository) Delete(ctx context.Context, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return domain.ErrNotFound
	}

	res, err := r.col.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return fmt.Errorf("delete report: %w", err)
	}
	if res.DeletedCount == 0 {
		return domain.ErrNotFound
	}

	return nil
}

// CountByStatus aggregates report counts per lifecycle status
func (r *MongoReportRepository) CountByStatus(ctx context.Context) (map[string]int, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$group", Value: bson.M{"_id": "$status", "count": bson.M{"$sum": 1}}}},
	}

	cur, err := r.col.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("count reports by status: %w", err)
	}
	defer cur.Close(ctx)

	counts := map[string]int{}
	for cur.Next(ctx) {
		var row struct {
			Status string `bson:"_id"`
			Count  int    `bson:"count"`
		}
		if err := cur.Decode(&row); err != nil {
			return nil, fmt.Errorf("decode status count: %w", err)
		}
		counts[row.Status] = row.Count
	}

	return counts, cur.Err()
}
