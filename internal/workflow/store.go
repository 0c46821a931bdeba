package workflow

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// NotFoundError reports a workflow id that is not registered.
type NotFoundError struct {
	ID uuid.UUID
}

func (e *NotFoundError) Error() string {
	return "workflow " + e.ID.String() + " not found"
}

// Listing is one row of a workflow inventory.
type Listing struct {
	ID        uuid.UUID `json:"id"`
	Type      Type      `json:"type"`
	CreatedAt time.Time `json:"createdAt"`
}

// Store persists workflows under server-assigned ids.
type Store interface {
	Register(ctx context.Context, w Workflow) (uuid.UUID, error)
	Load(ctx context.Context, id uuid.UUID) (Workflow, error)
	List(ctx context.Context, limit, offset int) ([]Listing, error)
	Migrate(ctx context.Context) error
	Close() error
}

const defaultListLimit = 50

func clampListLimit(limit int) int {
	if limit <= 0 {
		return defaultListLimit
	}
	return limit
}

// MemoryStore keeps workflows in process memory. It backs tests and the
// storeless single-binary mode.
type MemoryStore struct {
	mu        sync.RWMutex
	workflows map[uuid.UUID]memoryEntry
}

type memoryEntry struct {
	workflow  Workflow
	createdAt time.Time
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{workflows: make(map[uuid.UUID]memoryEntry)}
}

func (s *MemoryStore) Register(_ context.Context, w Workflow) (uuid.UUID, error) {
	if err := w.Validate(); err != nil {
		return uuid.Nil, err
	}
	id := uuid.New()
	s.mu.Lock()
	s.workflows[id] = memoryEntry{workflow: w, createdAt: time.Now().UTC()}
	s.mu.Unlock()
	return id, nil
}

func (s *MemoryStore) Load(_ context.Context, id uuid.UUID) (Workflow, error) {
	s.mu.RLock()
	entry, ok := s.workflows[id]
	s.mu.RUnlock()
	if !ok {
		return Workflow{}, &NotFoundError{ID: id}
	}
	return entry.workflow, nil
}

func (s *MemoryStore) List(_ context.Context, limit, offset int) ([]Listing, error) {
	s.mu.RLock()
	listings := make([]Listing, 0, len(s.workflows))
	for id, entry := range s.workflows {
		listings = append(listings, Listing{
			ID:        id,
			Type:      entry.workflow.Type,
			CreatedAt: entry.createdAt,
		})
	}
	s.mu.RUnlock()

	sort.Slice(listings, func(i, j int) bool {
		if !listings[i].CreatedAt.Equal(listings[j].CreatedAt) {
			return listings[i].CreatedAt.After(listings[j].CreatedAt)
		}
		return listings[i].ID.String() < listings[j].ID.String()
	})

	if offset >= len(listings) {
		return nil, nil
	}
	listings = listings[offset:]
	if limit = clampListLimit(limit); limit < len(listings) {
		listings = listings[:limit]
	}
	return listings, nil
}

func (s *MemoryStore) Migrate(context.Context) error { return nil }

func (s *MemoryStore) Close() error { return nil }
