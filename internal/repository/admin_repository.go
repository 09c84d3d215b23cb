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

type adminDoc struct {
	ID           primitive.ObjectID `bson:"_id,omitempty"`
	Name         string             `bson:"name"`
	Email        string             `bson:"email"`
	PasswordHash string             `bson:"password"`
	Departments  []string           `bson:"department"`
	Roles        []string           `bson:"type"`
	CreatedAt    time.Time          `bson:"createdAt"`
	UpdatedAt    time.Time          `bson:"updatedAt"`
}

func (d *adminDoc) toDomain() *domain.Admin {
	return &domain.Admin{
		ID:           d.ID.Hex(),
		Name:         d.Name,
		Email:        d.Email,
		PasswordHash: d.PasswordHash,
		Departments:  d.Departments,
		Roles:        d.Roles,
		CreatedAt:    d.CreatedAt,
		UpdatedAt:    d.UpdatedAt,
	}
}

// MongoAdminRepository implements domain.AdminRepository using MongoDB
type MongoAdminRepository struct {
	col    *mongo.Collection
	logger *slog.Logger
}

// NewMongoAdminRepository creates a new admin repository
func NewMongoAdminRepository(client *mongodb.Client, logger *slog.Logger) *MongoAdminRepository {
	if logger == nil {
		logger = slog.Default()
	}

	return &MongoAdminRepository{
		col:    client.Collection("admins"),
		logger: logger,
	}
}

// Create persists a new admin. The unique email index turns concurrent
// duplicate registrations into domain.ErrAlreadyExists.
func (r *MongoAdminRepository) Create(ctx context.Context, admin *domain.Admin) error {
	now := time.Now().UTC()
	doc := adminDoc{
		Name:         admin.Name,
		Email:        admin.Email,
		PasswordHash: admin.PasswordHash,
		Departments:  admin.Departments,
		Roles:        admin.Roles,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	res, err := r.col.InsertOne(ctx, doc)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return domain.ErrAlreadyExists
		}
		r.logger.Error("failed to create admin",
			slog.String("email", admin.Email),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("create admin: %w", err)
	}

	admin.ID = res.InsertedID.(primitive.ObjectID).Hex()
	admin.CreatedAt = now
	admin.UpdatedAt = now
	return nil
}

// GetByID retrieves an admin by id
func (r *MongoAdminRepository) GetByID(ctx context.Context, id string) (*domain.Admin, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, domain.ErrNotFound
	}

	var doc adminDoc
	err = r.col.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get admin: %w", err)
	}
	return doc.toDomain(), nil
}

// GetByEmail retrieves an admin by email
func (r *MongoAdminRepository) GetByEmail(ctx context.Context, email string) (*domain.Admin, error) {
	var doc adminDoc
	err := r.col.FindOne(ctx, bson.M{"email": email}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get admin by email: %w", err)
	}
	return doc.toDomain(), nil
}

// List returns all admins
func (r *MongoAdminRepository) List(ctx context.Context) ([]*domain.Admin, error) {
	cur, err := r.col.Find(ctx, bson.M{})
	if err != nil {
		return nil, fmt.Errorf("list admins: %w", err)
	}
	defer cur.Close(ctx)

	admins := []*domain.Admin{}
	for cur.Next(ctx) {
		var doc adminDoc
		if err := cur.Decode(&doc); err != nil {
			return nil, fmt.Errorf("decode admin: %w", err)
		}
		admins = append(admins, doc.toDomain())
	}

	return admins, cur.Err()
}

// Update applies a partial field update and returns the updated admin
func (r *MongoAdminRepository) Update(ctx context.Context, id string, fields map[string]any) (*domain.Admin, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, domain.ErrNotFound
	}

	set := bson.M{"updatedAt": time.Now().UTC()}
	for k, v := range fields {
		set[k] = v
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var doc adminDoc
	err = r.col.FindOneAndUpdate(ctx, bson.M{"_id": oid}, bson.M{"$set": set}, opts).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrNotFound
		}
		if mongo.IsDuplicateKeyError(err) {
			return nil, domain.ErrAlreadyExists
		}
		return nil, fmt.Errorf("update admin: %w", err)
	}

	return doc.toDomain(), nil
}

// Delete removes an admin by id
func (r *MongoAdminRepository) Delete(ctx context.Context, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return domain.ErrNotFound
	}

	res, err := r.col.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return fmt.Errorf("delete admin: %w", err)
	}
	if res.DeletedCount == 0 {
		return domain.ErrNotFound
	}

	return nil
}
