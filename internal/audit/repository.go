package audit

import (
	"context"
	"fmt"
	"time"

	"github.com/kuraykaraaslan/KurayDevV2-sub004/internal/middleware"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type Event struct {
	ID        string    `bson:"_id,omitempty" json:"id"`
	Actor     string    `bson:"actor" json:"actor"`
	Method    string    `bson:"method" json:"method"`
	Path      string    `bson:"path" json:"path"`
	Status    int       `bson:"status" json:"status"`
	RequestID string    `bson:"requestId,omitempty" json:"requestId,omitempty"`
	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
}

func FromEntry(entry middleware.AuditEntry) Event {
	return Event{
		ID:        primitive.NewObjectID().Hex(),
		Actor:     entry.Actor,
		Method:    entry.Method,
		Path:      entry.Path,
		Status:    entry.Status,
		RequestID: entry.RequestID,
		CreatedAt: entry.At,
	}
}

type MongoRepository struct {
	col *mongo.Collection
}

func NewMongoRepository(col *mongo.Collection) *MongoRepository {
	return &MongoRepository{col: col}
}

var _ middleware.AuditRecorder = (*MongoRepository)(nil)

func (r *MongoRepository) Record(ctx context.Context, entry middleware.AuditEntry) error {
	if _, err := r.col.InsertOne(ctx, FromEntry(entry)); err != nil {
		return fmt.Errorf("insert audit event: %w", err)
	}
	return nil
}

// Recent returns the newest events first, optionally for one actor.
func (r *MongoRepository) Recent(ctx context.Context, actor string, limit int) ([]Event, error) {
	filter := bson.M{}
	if actor != "" {
		filter["actor"] = actor
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetLimit(int64(limit))

	cursor, err := r.col.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("find audit events: %w", err)
	}
	defer cursor.Close(ctx)

	events := make([]Event, 0, limit)
	if err := cursor.All(ctx, &events); err != nil {
		return nil, fmt.Errorf("decode audit events: %w", err)
	}
	return events, nil
}
