// Package mongodb implements storage.ConversationStore on MongoDB.
//
// Each conversation is one document keyed on _id; Append uses a single
// update with $push/$inc/$set so concurrent appends to the same
// conversation serialize on MongoDB's per-document atomicity and no
// message is lost.
package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"hugchat/model"
	"hugchat/storage"
)

const connectTimeout = 10 * time.Second

// Store is a MongoDB-backed conversation store.
type Store struct {
	client     *mongo.Client
	collection *mongo.Collection
	log        zerolog.Logger
}

// Connect dials MongoDB, verifies the connection and ensures the
// recency index exists.
func Connect(ctx context.Context, uri, dbName, collName string, log zerolog.Logger) (*Store, error) {
	ctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("%w: connect: %v", storage.ErrPersistence, err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("%w: ping: %v", storage.ErrPersistence, err)
	}

	s := &Store{
		client:     client,
		collection: client.Database(dbName).Collection(collName),
		log:        log,
	}
	if err := s.ensureIndexes(ctx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}

	log.Info().Str("db", dbName).Str("collection", collName).Msg("connected to mongodb")
	return s, nil
}

func (s *Store) ensureIndexes(ctx context.Context) error {
	_, err := s.collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "updated_at", Value: -1}},
	})
	if err != nil {
		return fmt.Errorf("%w: create index: %v", storage.ErrPersistence, err)
	}
	return nil
}

// Close disconnects from MongoDB.
func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

// Save implements storage.ConversationStore.Save as a replace-upsert
// keyed on _id, so repeated saves of the same snapshot stay idempotent.
func (s *Store) Save(ctx context.Context, conv *model.Conversation) error {
	if conv == nil || conv.ID == "" {
		return fmt.Errorf("%w: conversation must have an id", storage.ErrPersistence)
	}

	_, err := s.collection.ReplaceOne(ctx,
		bson.M{"_id": conv.ID},
		conv,
		options.Replace().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("%w: save %s: %v", storage.ErrPersistence, conv.ID, err)
	}
	s.log.Debug().Str("conversation_id", conv.ID).Int("messages", len(conv.Messages)).Msg("conversation saved")
	return nil
}

// Append implements storage.ConversationStore.Append with one atomic
// update.
func (s *Store) Append(ctx context.Context, id string, messages []model.Message, usage model.Usage) error {
	if len(messages) == 0 {
		return nil
	}

	res, err := s.collection.UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{
			"$push": bson.M{"messages": bson.M{"$each": messages}},
			"$set":  bson.M{"updated_at": time.Now().UTC()},
			"$inc": bson.M{
				"token_usage.prompt_tokens":     usage.PromptTokens,
				"token_usage.completion_tokens": usage.CompletionTokens,
				"token_usage.total_tokens":      usage.TotalTokens,
			},
		},
	)
	if err != nil {
		return fmt.Errorf("%w: append to %s: %v", storage.ErrPersistence, id, err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("%w: %s", storage.ErrNotFound, id)
	}
	return nil
}

// LoadRecent implements storage.ConversationStore.LoadRecent. Message
// bodies stay in the database; only summary fields travel back.
func (s *Store) LoadRecent(ctx context.Context, limit int) ([]model.ConversationSummary, error) {
	if limit <= 0 {
		return nil, nil
	}

	pipeline := mongo.Pipeline{
		{{Key: "$sort", Value: bson.D{{Key: "updated_at", Value: -1}}}},
		{{Key: "$limit", Value: limit}},
		{{Key: "$project", Value: bson.D{
			{Key: "_id", Value: 1},
			{Key: "title", Value: 1},
			{Key: "persona_id", Value: 1},
			{Key: "model", Value: "$settings.model"},
			{Key: "message_count", Value: bson.D{{Key: "$size", Value: "$messages"}}},
			{Key: "created_at", Value: 1},
			{Key: "updated_at", Value: 1},
		}}},
	}

	cursor, err := s.collection.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("%w: load recent: %v", storage.ErrPersistence, err)
	}
	defer cursor.Close(ctx)

	var summaries []model.ConversationSummary
	if err := cursor.All(ctx, &summaries); err != nil {
		return nil, fmt.Errorf("%w: decode summaries: %v", storage.ErrPersistence, err)
	}
	return summaries, nil
}

// LoadByID implements storage.ConversationStore.LoadByID.
func (s *Store) LoadByID(ctx context.Context, id string) (*model.Conversation, error) {
	var conv model.Conversation
	err := s.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&conv)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("%w: %s", storage.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: load %s: %v", storage.ErrPersistence, id, err)
	}
	return &conv, nil
}

// Delete implements storage.ConversationStore.Delete.
func (s *Store) Delete(ctx context.Context, id string) error {
	res, err := s.collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("%w: delete %s: %v", storage.ErrPersistence, id, err)
	}
	if res.DeletedCount == 0 {
		return fmt.Errorf("%w: %s", storage.ErrNotFound, id)
	}
	return nil
}

// Statistics implements storage.ConversationStore.Statistics with one
// aggregation round trip.
func (s *Store) Statistics(ctx context.Context) (*storage.Statistics, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: "$settings.model"},
			{Key: "conversations", Value: bson.D{{Key: "$sum", Value: 1}}},
			{Key: "messages", Value: bson.D{{Key: "$sum", Value: bson.D{{Key: "$size", Value: "$messages"}}}}},
			{Key: "total_tokens", Value: bson.D{{Key: "$sum", Value: "$token_usage.total_tokens"}}},
		}}},
	}

	cursor, err := s.collection.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("%w: statistics: %v", storage.ErrPersistence, err)
	}
	defer cursor.Close(ctx)

	var groups []struct {
		Model         string `bson:"_id"`
		Conversations int64  `bson:"conversations"`
		Messages      int64  `bson:"messages"`
		TotalTokens   int64  `bson:"total_tokens"`
	}
	if err := cursor.All(ctx, &groups); err != nil {
		return nil, fmt.Errorf("%w: decode statistics: %v", storage.ErrPersistence, err)
	}

	stats := &storage.Statistics{ByModel: make(map[string]int64)}
	for _, g := range groups {
		stats.Conversations += g.Conversations
		stats.Messages += g.Messages
		stats.TotalTokens += g.TotalTokens
		if g.Model != "" {
			stats.ByModel[g.Model] = g.Conversations
		}
	}
	return stats, nil
}
