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

	"github.com/alertx/alertx/internal/domain"
	"github.com/alertx/alertx/internal/infrastructure/mongodb"
)

type userDoc struct {
	ID                primitive.ObjectID `bson:"_id,omitempty"`
	Name              string             `bson:"name"`
	Email             string             `bson:"email"`
	PasswordHash      string             `bson:"password"`
	Verified          bool               `bson:"verified"`
	VerificationToken *string            `bson:"verificationToken"`
	CreatedAt         time.Time          `bson:"createdAt"`
	UpdatedAt         time.Time          `bson:"updatedAt"`
}

func (d *userDoc) toDomain() *domain.User {
	u := &domain.User{
		ID:           d.ID.Hex(),
		Name:         d.Name,
		Email:        d.Email,
		PasswordHash: d.PasswordHash,
		Verified:     d.Verified,
		CreatedAt:    d.CreatedAt,
		UpdatedAt:    d.UpdatedAt,
	}
	if d.VerificationToken != nil {
		u.VerificationToken = *d.VerificationToken
	}
	return u
}

// MongoUserRepository implements domain.UserRepository using MongoDB
type MongoUserRepository struct {
	col    *mongo.Collection
	logger *slog.Logger
}

// NewMongoUserRepository creates a new user repository
func NewMongoUserRepository(client *mongodb.Client, logger *slog.Logger) *MongoUserRepository {
	if logger == nil {
		logger = slog.Default()
	}

	return &MongoUserRepository{
		col:    client.Collection("users"),
		logger: logger,
	}
}

// Create persists a new user
func (r *MongoUserRepository) Create(ctx context.Context, user *domain.User) error {
	now := time.Now().UTC()
	doc := userDoc{
		Name:         user.Name,
		Email:        user.Email,
		PasswordHash: user.PasswordHash,
		Verified:     user.Verified,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if user.VerificationToken != "" {
		doc.VerificationToken = &user.VerificationToken
	}

	res, err := r.col.InsertOne(ctx, doc)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return domain.ErrAlreadyExists
		}
		r.logger.Error("failed to create user",
			slog.String("email", user.Email),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("create user: %w", err)
	}

	user.ID = res.InsertedID.(primitive.ObjectID).Hex()
	user.CreatedAt = now
	user.UpdatedAt = now
	return nil
}

// GetByEmail retrieves a user by email
func (r *MongoUserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	var doc userDoc
	err := r.col.FindOne(ctx, bson.M{"email": email}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get user by email: %w", err)
	}
	return doc.toDomain(), nil
}

// GetByVerificationToken retrieves a user by an unconsumed verification token
func (r *MongoUserRepository) GetByVerificationToken(ctx context.Context, token string) (*domain.User, error) {
	var doc userDoc
	err := r.col.FindOne(ctx, bson.M{"verificationToken": token}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get user by token: %w", err)
	}
	return doc.toDomain(), nil
}

// MarkVerified flips the verified flag and nulls the verification token so
// it cannot be consumed twice
func (r *MongoUserRepository) MarkVerified(ctx context.Context, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return domain.ErrNotFound
	}

	update := bson.M{"$set": bson.M{
		"verified":          true,
		"verificationToken": nil,
		"updatedAt":         time.Now().UTC(),
	}}

	res, err := r.col.UpdateOne(ctx, bson.M{"_id": oid}, update)
	if err != nil {
		return fmt.Errorf("mark user verified: %w", err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrNotFound
	}

	return nil
}
