// Package storage defines the conversation persistence contract and an
// in-memory implementation. The MongoDB-backed store lives in the
// mongodb subpackage.
package storage

import (
	"context"
	"errors"

	"hugchat/model"
)

// Sentinel errors for the storage layer. Implementations wrap their
// backend errors with one of these so callers never match on
// driver-specific types.
var (
	// ErrNotFound indicates no conversation exists with the given id.
	ErrNotFound = errors.New("conversation not found")

	// ErrPersistence indicates the backend rejected or failed the
	// operation.
	ErrPersistence = errors.New("persistence failed")
)

// Statistics aggregates stored conversation counts.
type Statistics struct {
	Conversations int64            `bson:"conversations" json:"conversations"`
	Messages      int64            `bson:"messages" json:"messages"`
	TotalTokens   int64            `bson:"total_tokens" json:"total_tokens"`
	ByModel       map[string]int64 `bson:"by_model" json:"by_model"`
}

// ConversationStore persists whole conversations. Save is an upsert
// keyed on the conversation id: saving the same snapshot twice leaves
// exactly one stored document. Append adds messages to one conversation
// atomically with respect to concurrent appends on the same id.
type ConversationStore interface {
	// Save stores the conversation, replacing any existing document with
	// the same id.
	Save(ctx context.Context, conv *model.Conversation) error

	// Append adds messages to an existing conversation and folds usage
	// into its token totals. Fails with ErrNotFound when the id is
	// unknown.
	Append(ctx context.Context, id string, messages []model.Message, usage model.Usage) error

	// LoadRecent returns up to limit summaries ordered most recently
	// updated first.
	LoadRecent(ctx context.Context, limit int) ([]model.ConversationSummary, error)

	// LoadByID returns the full conversation, or ErrNotFound.
	LoadByID(ctx context.Context, id string) (*model.Conversation, error)

	// Delete removes the conversation. Deleting an unknown id fails with
	// ErrNotFound.
	Delete(ctx context.Context, id string) error

	// Statistics aggregates counts over all stored conversations.
	Statistics(ctx context.Context) (*Statistics, error)
}
