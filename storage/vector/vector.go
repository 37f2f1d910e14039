// Package vector wraps chromem-go to index conversation messages for
// semantic recall across conversations.
package vector

import (
	"context"
	"fmt"
	"os"
	"sync"

	chromem "github.com/philippgille/chromem-go"
	"github.com/rs/zerolog"

	"hugchat/model"
)

const collectionName = "messages"

// SearchResult is one semantic-search hit over indexed messages.
type SearchResult struct {
	ConversationID string  `json:"conversation_id"`
	MessageID      string  `json:"message_id"`
	Content        string  `json:"content"`
	Score          float32 `json:"score"`
}

// Store indexes message content with disk persistence. Writes and
// queries serialize on one RWMutex; chromem collections are not safe for
// mixed concurrent use.
type Store struct {
	mu      sync.RWMutex
	db      *chromem.DB
	embedFn chromem.EmbeddingFunc
	log     zerolog.Logger
}

// Embedder is the slice of the provider client the store needs.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// New creates (or reopens) the persistent vector store at dir, deriving
// embeddings from the given provider client.
func New(dir string, embedder Embedder, log zerolog.Logger) (*Store, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("create vector store dir: %w", err)
	}
	db, err := chromem.NewPersistentDB(dir, false)
	if err != nil {
		return nil, fmt.Errorf("open vector store: %w", err)
	}

	embedFn := func(ctx context.Context, text string) ([]float32, error) {
		vectors, err := embedder.Embed(ctx, []string{text})
		if err != nil {
			return nil, err
		}
		if len(vectors) != 1 {
			return nil, fmt.Errorf("expected 1 embedding, got %d", len(vectors))
		}
		return vectors[0], nil
	}

	return &Store{db: db, embedFn: embedFn, log: log}, nil
}

func (s *Store) collection() (*chromem.Collection, error) {
	col := s.db.GetCollection(collectionName, s.embedFn)
	if col == nil {
		var err error
		col, err = s.db.CreateCollection(collectionName, nil, s.embedFn)
		if err != nil {
			return nil, fmt.Errorf("create vector collection: %w", err)
		}
	}
	return col, nil
}

// IndexMessage indexes (or re-indexes) one message. Empty content is
// skipped; there is nothing useful to embed.
func (s *Store) IndexMessage(ctx context.Context, conversationID string, index int, msg model.Message) error {
	if msg.Content == "" {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	col, err := s.collection()
	if err != nil {
		return err
	}

	doc := chromem.Document{
		ID:      fmt.Sprintf("%s/%d", conversationID, index),
		Content: msg.Content,
		Metadata: map[string]string{
			"conversation_id": conversationID,
			"role":            msg.Role,
		},
	}
	if err := col.AddDocument(ctx, doc); err != nil {
		return fmt.Errorf("index message: %w", err)
	}
	return nil
}

// SearchSimilar returns the top-k messages most similar to the query.
func (s *Store) SearchSimilar(ctx context.Context, query string, k int) ([]SearchResult, error) {
	if k <= 0 {
		k = 5
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	col, err := s.collection()
	if err != nil {
		return nil, err
	}

	count := col.Count()
	if count == 0 {
		return nil, nil
	}
	if k > count {
		k = count
	}

	var results []chromem.Result
	// chromem occasionally rejects k even after the Count check; step
	// down until a query succeeds.
	for attemptK := k; attemptK > 0; attemptK-- {
		results, err = col.Query(ctx, query, attemptK, nil, nil)
		if err == nil {
			break
		}
	}
	if err != nil {
		return nil, fmt.Errorf("vector query: %w", err)
	}

	out := make([]SearchResult, 0, len(results))
	for _, r := range results {
		out = append(out, SearchResult{
			ConversationID: r.Metadata["conversation_id"],
			MessageID:      r.ID,
			Content:        r.Content,
			Score:          r.Similarity,
		})
	}
	return out, nil
}
