package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/celaya-solutions/SE-Reference-System-2/internal/logging"
	"github.com/celaya-solutions/SE-Reference-System-2/internal/model"
)

// DefaultKey is the storage key the reference collection lives under
const DefaultKey = "panel_reference_library_data"

const defaultMaxAttempts = 5

// ErrWriteConflict is returned when a mutation kept losing the
// compare-and-swap race and gave up.
var ErrWriteConflict = errors.New("reference store write conflict")

// Source describes where the collection returned by Load came from
type Source int

const (
	// SourceStored means the collection was decoded from the backend.
	SourceStored Source = iota
	// SourceSeeded means the key was empty and has just been seeded.
	SourceSeeded
	// SourceRecovered means stored data was unreadable and the seed set was
	// returned in its place. The corrupt data is left untouched.
	SourceRecovered
)

func (s Source) String() string {
	switch s {
	case SourceSeeded:
		return "seeded"
	case SourceRecovered:
		return "recovered"
	default:
		return "stored"
	}
}

// LoadResult is the outcome of Load
type LoadResult struct {
	References []model.Reference
	Source     Source
	// DecodeErr is set when Source is SourceRecovered.
	DecodeErr error
}

// ReferenceStore handles persistence of reference records. The whole
// collection is stored as one JSON array under a single key; every call
// reads it in full and every mutation writes it back in full.
type ReferenceStore struct {
	backend     Backend
	key         string
	locker      Locker
	now         func() time.Time
	newID       func() string
	logger      *logrus.Entry
	maxAttempts int
	seed        []model.Reference
}

// Option configures a ReferenceStore
type Option func(*ReferenceStore)

func WithKey(key string) Option {
	return func(s *ReferenceStore) { s.key = key }
}

func WithLocker(l Locker) Option {
	return func(s *ReferenceStore) { s.locker = l }
}

func WithClock(now func() time.Time) Option {
	return func(s *ReferenceStore) { s.now = now }
}

func WithIDGenerator(newID func() string) Option {
	return func(s *ReferenceStore) { s.newID = newID }
}

func WithLogger(l *logrus.Entry) Option {
	return func(s *ReferenceStore) { s.logger = l }
}

// WithMaxAttempts bounds how many times a mutation is retried after a
// version conflict
func WithMaxAttempts(n int) Option {
	return func(s *ReferenceStore) {
		if n > 0 {
			s.maxAttempts = n
		}
	}
}

// NewReferenceStore creates a new ReferenceStore over backend. The seed set
// is generated once here, so initialization, corruption fallback and reset
// all produce the same collection for the lifetime of the store.
func NewReferenceStore(backend Backend, opts ...Option) *ReferenceStore {
	s := &ReferenceStore{
		backend:     backend,
		key:         DefaultKey,
		locker:      NewMutexLocker(),
		now:         time.Now,
		newID:       func() string { return "ref-" + uuid.NewString() },
		logger:      logging.New("store"),
		maxAttempts: defaultMaxAttempts,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.seed = SeedReferences(s.now())
	return s
}

// Seed returns a copy of the seed set this store initializes and resets to
func (s *ReferenceStore) Seed() []model.Reference {
	return cloneReferences(s.seed)
}

// Load returns every stored reference along with where it came from.
// An empty key is initialized with the seed set. Unreadable data is logged
// and replaced by the seed set in the result only.
func (s *ReferenceStore) Load(ctx context.Context) (LoadResult, error) {
	for attempt := 0; attempt < s.maxAttempts; attempt++ {
		blob, err := s.backend.Get(ctx, s.key)
		if errors.Is(err, ErrNotFound) {
			data, err := json.Marshal(s.seed)
			if err != nil {
				return LoadResult{}, fmt.Errorf("failed to encode seed set: %w", err)
			}
			_, err = s.backend.Put(ctx, s.key, data, VersionAbsent)
			if errors.Is(err, ErrVersionConflict) {
				// another writer initialized the key first
				continue
			}
			if err != nil {
				return LoadResult{}, fmt.Errorf("failed to initialize references: %w", err)
			}
			s.logger.WithField("count", len(s.seed)).Info("initialized reference store with seed set")
			return LoadResult{References: s.Seed(), Source: SourceSeeded}, nil
		}
		if err != nil {
			return LoadResult{}, fmt.Errorf("failed to load references: %w", err)
		}

		refs, err := decodeReferences(blob.Data)
		if err != nil {
			s.logger.WithError(err).WithField("key", s.key).Warn("stored references are unreadable, falling back to seed set")
			return LoadResult{References: s.Seed(), Source: SourceRecovered, DecodeErr: err}, nil
		}
		return LoadResult{References: refs, Source: SourceStored}, nil
	}

	return LoadResult{}, ErrWriteConflict
}

// LoadAll returns every stored reference
func (s *ReferenceStore) LoadAll(ctx context.Context) ([]model.Reference, error) {
	result, err := s.Load(ctx)
	if err != nil {
		return nil, err
	}
	return result.References, nil
}

// Get retrieves a reference by its id, returning nil when absent
func (s *ReferenceStore) Get(ctx context.Context, id string) (*model.Reference, error) {
	refs, err := s.LoadAll(ctx)
	if err != nil {
		return nil, err
	}

	if idx := indexOf(refs, id); idx >= 0 {
		ref := refs[idx]
		return &ref, nil
	}
	return nil, nil
}

// Upsert inserts or replaces a reference and returns it as saved.
// A missing id is assigned. An existing record keeps its position and
// createdAt while updatedAt moves strictly forward. A new record goes to the
// front of the collection.
func (s *ReferenceStore) Upsert(ctx context.Context, ref model.Reference) (model.Reference, error) {
	if ref.ID == "" {
		ref.ID = s.newID()
	}

	var saved model.Reference
	err := s.mutate(ctx, func(refs []model.Reference) ([]model.Reference, bool) {
		now := s.now().UTC().Truncate(time.Millisecond)
		saved = ref.Clone()

		if idx := indexOf(refs, saved.ID); idx >= 0 {
			prev := refs[idx]
			saved.CreatedAt = prev.CreatedAt
			saved.UpdatedAt = after(now, prev.UpdatedAt)
			refs[idx] = saved
			return refs, true
		}

		if saved.CreatedAt.IsZero() {
			saved.CreatedAt = now
		}
		if saved.UpdatedAt.Before(saved.CreatedAt) {
			saved.UpdatedAt = saved.CreatedAt
		}
		return append([]model.Reference{saved}, refs...), true
	})
	if err != nil {
		return model.Reference{}, fmt.Errorf("failed to save reference %s: %w", ref.ID, err)
	}

	return saved, nil
}

// Delete removes the reference with id. Deleting an unknown id does nothing.
func (s *ReferenceStore) Delete(ctx context.Context, id string) error {
	err := s.mutate(ctx, func(refs []model.Reference) ([]model.Reference, bool) {
		kept := refs[:0]
		for _, r := range refs {
			if r.ID != id {
				kept = append(kept, r)
			}
		}
		return kept, len(kept) != len(refs)
	})
	if err != nil {
		return fmt.Errorf("failed to delete reference %s: %w", id, err)
	}
	return nil
}

// Reset overwrites the collection with the seed set, discarding everything
func (s *ReferenceStore) Reset(ctx context.Context) error {
	unlock, err := s.locker.Lock(ctx)
	if err != nil {
		return err
	}
	defer s.release(ctx, unlock)

	data, err := json.Marshal(s.seed)
	if err != nil {
		return fmt.Errorf("failed to encode seed set: %w", err)
	}
	if _, err := s.backend.Put(ctx, s.key, data, VersionAny); err != nil {
		return fmt.Errorf("failed to reset references: %w", err)
	}

	s.logger.WithField("count", len(s.seed)).Info("reset reference store to seed set")
	return nil
}

// mutate runs one read-modify-write cycle under the writer lock, retrying
// when the backend reports that the collection changed underneath.
func (s *ReferenceStore) mutate(ctx context.Context, fn func([]model.Reference) ([]model.Reference, bool)) error {
	unlock, err := s.locker.Lock(ctx)
	if err != nil {
		return err
	}
	defer s.release(ctx, unlock)

	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		refs, version, err := s.read(ctx)
		if err != nil {
			return err
		}

		next, changed := fn(refs)
		if !changed {
			return nil
		}

		data, err := json.Marshal(next)
		if err != nil {
			return fmt.Errorf("failed to encode references: %w", err)
		}

		_, err = s.backend.Put(ctx, s.key, data, version)
		if errors.Is(err, ErrVersionConflict) {
			s.logger.WithField("attempt", attempt).Debug("reference store changed during write, retrying")
			continue
		}
		return err
	}

	return ErrWriteConflict
}

// read returns the current collection and the version to compare against
// on write. Missing or unreadable data reads as the seed set, so the next
// write replaces it.
func (s *ReferenceStore) read(ctx context.Context) ([]model.Reference, string, error) {
	blob, err := s.backend.Get(ctx, s.key)
	if errors.Is(err, ErrNotFound) {
		return s.Seed(), VersionAbsent, nil
	}
	if err != nil {
		return nil, "", fmt.Errorf("failed to load references: %w", err)
	}

	refs, err := decodeReferences(blob.Data)
	if err != nil {
		s.logger.WithError(err).WithField("key", s.key).Warn("stored references are unreadable, writing over them")
		return s.Seed(), blob.Version, nil
	}
	return refs, blob.Version, nil
}

func (s *ReferenceStore) release(ctx context.Context, unlock Unlock) {
	if err := unlock(context.WithoutCancel(ctx)); err != nil {
		s.logger.WithError(err).Warn("failed to release write lock")
	}
}

func decodeReferences(data []byte) ([]model.Reference, error) {
	var refs []model.Reference
	if err := json.Unmarshal(data, &refs); err != nil {
		return nil, err
	}
	if refs == nil {
		refs = []model.Reference{}
	}
	return refs, nil
}

func indexOf(refs []model.Reference, id string) int {
	for i := range refs {
		if refs[i].ID == id {
			return i
		}
	}
	return -1
}

// after returns t, or just past prev when t does not come after it
func after(t, prev time.Time) time.Time {
	if t.After(prev) {
		return t
	}
	return prev.Add(time.Millisecond)
}
