package admins

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kuraykaraaslan/KurayDevV2-sub004/internal/auth"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

var (
	ErrDuplicate = errors.New("username or email already exists")
	ErrNotFound  = errors.New("user not found")
)

type Repository interface {
	Insert(ctx context.Context, user User) error
	FindByUsername(ctx context.Context, username string) (User, error)
	UpdatePassword(ctx context.Context, id, hash string, at time.Time) error
}

type MongoRepository struct {
	col *mongo.Collection
}

func NewMongoRepository(col *mongo.Collection) *MongoRepository {
	return &MongoRepository{col: col}
}

func (r *MongoRepository) Insert(ctx context.Context, user User) error {
	if _, err := r.col.InsertOne(ctx, user); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("insert admin user: %w", err)
	}
	return nil
}

func (r *MongoRepository) FindByUsername(ctx context.Context, username string) (User, error) {
	var user User
	err := r.col.FindOne(ctx, bson.M{"username": username, "role": auth.RoleAdmin}).Decode(&user)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return User{}, ErrNotFound
		}
		return User{}, fmt.Errorf("find admin user: %w", err)
	}
	return user, nil
}

func (r *MongoRepository) UpdatePassword(ctx context.Context, id, hash string, at time.Time) error {
	update := bson.M{
		"$set": bson.M{
			"passwordHash": hash,
			"updatedAt":    at,
		},
	}
	res, err := r.col.UpdateOne(ctx, bson.M{"_id": id, "role": auth.RoleAdmin}, update)
	if err != nil {
		return fmt.Errorf("update admin password: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}
