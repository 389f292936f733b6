package chat

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Message is one chat message on an auction thread.
type Message struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	AuctionID   int64              `bson:"auction_id" json:"auction_id"`
	SenderID    int64              `bson:"sender_id" json:"sender_id"`
	RecipientID int64              `bson:"recipient_id" json:"recipient_id"`
	Body        string             `bson:"body" json:"body"`
	CreatedAt   time.Time          `bson:"created_at" json:"created_at"`
}

// Store persists chat messages. Backed by Mongo in production, faked in
// tests.
type Store interface {
	Insert(ctx context.Context, msg *Message) error
	ListByAuction(ctx context.Context, auctionID int64, limit int) ([]*Message, error)
}

type mongoStore struct {
	coll *mongo.Collection
}

func NewMongoStore(db *mongo.Database) Store {
	return &mongoStore{coll: db.Collection("messages")}
}

func (s *mongoStore) Insert(ctx context.Context, msg *Message) error {
	msg.CreatedAt = time.Now()
	res, err := s.coll.InsertOne(ctx, msg)
	if err != nil {
		return fmt.Errorf("failed to insert message: %w", err)
	}
	if oid, ok := res.InsertedID.(primitive.ObjectID); ok {
		msg.ID = oid
	}
	return nil
}

func (s *mongoStore) ListByAuction(ctx context.Context, auctionID int64, limit int) ([]*Message, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}})
	if limit > 0 {
		opts = opts.SetLimit(int64(limit))
	}

	cursor, err := s.coll.Find(ctx, bson.M{"auction_id": auctionID}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query messages: %w", err)
	}
	defer cursor.Close(ctx)

	var messages []*Message
	if err := cursor.All(ctx, &messages); err != nil {
		return nil, fmt.Errorf("failed to decode messages: %w", err)
	}
	return messages, nil
}
