package storage

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"hugchat/model"
)

// MemoryStore is an in-process ConversationStore. It backs tests and
// runs without MongoDB; all operations are serialized on one mutex, so
// per-conversation append atomicity holds trivially.
type MemoryStore struct {
	mu            sync.RWMutex
	conversations map[string]*model.Conversation
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{conversations: make(map[string]*model.Conversation)}
}

// Save implements ConversationStore.Save. The stored value is a deep
// copy so later mutation of the caller's conversation cannot corrupt the
// store.
func (s *MemoryStore) Save(ctx context.Context, conv *model.Conversation) error {
	if conv == nil || conv.ID == "" {
		return fmt.Errorf("%w: conversation must have an id", ErrPersistence)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.conversations[conv.ID] = copyConversation(conv)
	return nil
}

// Append implements ConversationStore.Append.
func (s *MemoryStore) Append(ctx context.Context, id string, messages []model.Message, usage model.Usage) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	conv, ok := s.conversations[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	conv.Messages = append(conv.Messages, messages...)
	conv.TokenUsage.Add(usage)
	conv.UpdatedAt = time.Now().UTC()
	return nil
}

// LoadRecent implements ConversationStore.LoadRecent.
func (s *MemoryStore) LoadRecent(ctx context.Context, limit int) ([]model.ConversationSummary, error) {
	if limit <= 0 {
		return nil, nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	summaries := make([]model.ConversationSummary, 0, len(s.conversations))
	for _, conv := range s.conversations {
		summaries = append(summaries, conv.Summary())
	}
	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].UpdatedAt.After(summaries[j].UpdatedAt)
	})

	if len(summaries) > limit {
		summaries = summaries[:limit]
	}
	return summaries, nil
}

// LoadByID implements ConversationStore.LoadByID.
func (s *MemoryStore) LoadByID(ctx context.Context, id string) (*model.Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	conv, ok := s.conversations[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return copyConversation(conv), nil
}

// Delete implements ConversationStore.Delete.
func (s *MemoryStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.conversations[id]; !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	delete(s.conversations, id)
	return nil
}

// Statistics implements ConversationStore.Statistics.
func (s *MemoryStore) Statistics(ctx context.Context) (*Statistics, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := &Statistics{ByModel: make(map[string]int64)}
	for _, conv := range s.conversations {
		stats.Conversations++
		stats.Messages += int64(len(conv.Messages))
		stats.TotalTokens += int64(conv.TokenUsage.TotalTokens)
		if conv.Settings.Model != "" {
			stats.ByModel[conv.Settings.Model]++
		}
	}
	return stats, nil
}

func copyConversation(conv *model.Conversation) *model.Conversation {
	cp := *conv
	cp.Messages = make([]model.Message, len(conv.Messages))
	copy(cp.Messages, conv.Messages)
	if conv.Tags != nil {
		cp.Tags = make([]string, len(conv.Tags))
		copy(cp.Tags, conv.Tags)
	}
	return &cp
}
