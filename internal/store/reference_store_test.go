package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/celaya-solutions/SE-Reference-System-2/internal/logging"
	"github.com/celaya-solutions/SE-Reference-System-2/internal/model"
)

type fakeClock struct {
	mu   sync.Mutex
	t    time.Time
	step time.Duration
}

func newFakeClock(step time.Duration) *fakeClock {
	return &fakeClock{t: time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC), step: step}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(c.step)
	return c.t
}

func newTestStore(t *testing.T, backend Backend, opts ...Option) *ReferenceStore {
	t.Helper()
	clock := newFakeClock(time.Second)
	base := []Option{WithClock(clock.Now), WithLogger(logging.Discard())}
	return NewReferenceStore(backend, append(base, opts...)...)
}

func sampleReference() model.Reference {
	return model.Reference{
		Title:       "Terminal Routing - Acme",
		Customer:    "Acme",
		OrderNumber: "ORD-9",
		Section:     model.SectionTerminal,
		Tags:        []string{"mesh"},
		Notes:       "ok",
		Image:       model.NewURLImage("https://x/y.jpg"),
	}
}

func findByID(refs []model.Reference, id string) *model.Reference {
	for i := range refs {
		if refs[i].ID == id {
			return &refs[i]
		}
	}
	return nil
}

func TestLoad_SeedsEmptyStoreAndPersists(t *testing.T) {
	ctx := context.Background()
	backend := NewMemoryBackend()
	s := newTestStore(t, backend)

	first, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, SourceSeeded, first.Source)
	assert.Len(t, first.References, SeedSize)

	second, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, SourceStored, second.Source)
	if diff := cmp.Diff(first.References, second.References); diff != "" {
		t.Errorf("second load differs from seeded collection (-first +second):\n%s", diff)
	}

	_, err = backend.Get(ctx, DefaultKey)
	require.NoError(t, err, "seed set should be written to the backend")
}

func TestLoadAll_IdempotentWithoutMutation(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t, NewMemoryBackend())

	_, err := s.Upsert(ctx, sampleReference())
	require.NoError(t, err)

	a, err := s.LoadAll(ctx)
	require.NoError(t, err)
	b, err := s.LoadAll(ctx)
	require.NoError(t, err)

	if diff := cmp.Diff(a, b); diff != "" {
		t.Errorf("repeated loads differ (-a +b):\n%s", diff)
	}
}

func TestLoad_CorruptDataFallsBackWithoutWriting(t *testing.T) {
	ctx := context.Background()
	backend := NewMemoryBackend()
	backend.Set(DefaultKey, []byte("{not json"))
	s := newTestStore(t, backend)

	result, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, SourceRecovered, result.Source)
	assert.Error(t, result.DecodeErr)
	if diff := cmp.Diff(s.Seed(), result.References); diff != "" {
		t.Errorf("fallback is not the seed set (-want +got):\n%s", diff)
	}

	blob, err := backend.Get(ctx, DefaultKey)
	require.NoError(t, err)
	assert.Equal(t, "{not json", string(blob.Data), "corrupt data must be left in place")
}

func TestUpsert_InsertAssignsIDAndTimestamps(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t, NewMemoryBackend(), WithIDGenerator(func() string { return "ref-new" }))

	before, err := s.LoadAll(ctx)
	require.NoError(t, err)

	saved, err := s.Upsert(ctx, sampleReference())
	require.NoError(t, err)
	assert.Equal(t, "ref-new", saved.ID)
	assert.False(t, saved.CreatedAt.IsZero())
	assert.True(t, saved.CreatedAt.Equal(saved.UpdatedAt))

	after, err := s.LoadAll(ctx)
	require.NoError(t, err)
	assert.Len(t, after, len(before)+1)
	assert.Equal(t, "ref-new", after[0].ID, "new records go to the front")

	got := findByID(after, "ref-new")
	require.NotNil(t, got)
	if diff := cmp.Diff(saved, *got); diff != "" {
		t.Errorf("stored record differs from saved (-saved +stored):\n%s", diff)
	}
}

func TestUpsert_KeepsExplicitIDAndCreatedAt(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t, NewMemoryBackend())

	created := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	ref := sampleReference()
	ref.ID = "ref-import"
	ref.CreatedAt = created

	saved, err := s.Upsert(ctx, ref)
	require.NoError(t, err)
	assert.Equal(t, "ref-import", saved.ID)
	assert.True(t, saved.CreatedAt.Equal(created))
	assert.True(t, saved.UpdatedAt.Equal(created))
}

func TestUpsert_ReplaceKeepsPositionAndCreatedAt(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t, NewMemoryBackend())

	refs, err := s.LoadAll(ctx)
	require.NoError(t, err)
	target := refs[3]

	edit := target.Clone()
	edit.Notes = "re-torqued terminals"
	edit.CreatedAt = time.Time{}

	saved, err := s.Upsert(ctx, edit)
	require.NoError(t, err)

	after, err := s.LoadAll(ctx)
	require.NoError(t, err)
	assert.Len(t, after, len(refs))
	assert.Equal(t, target.ID, after[3].ID, "replaced record keeps its position")
	assert.Equal(t, "re-torqued terminals", after[3].Notes)
	assert.True(t, after[3].CreatedAt.Equal(target.CreatedAt))
	assert.True(t, after[3].UpdatedAt.After(target.UpdatedAt))
	assert.True(t, saved.UpdatedAt.Equal(after[3].UpdatedAt))
}

func TestUpsert_UpdatedAtAdvancesWithFrozenClock(t *testing.T) {
	ctx := context.Background()
	frozen := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	s := NewReferenceStore(NewMemoryBackend(),
		WithClock(func() time.Time { return frozen }),
		WithLogger(logging.Discard()),
	)

	created, err := s.Upsert(ctx, sampleReference())
	require.NoError(t, err)

	edit := created.Clone()
	edit.Notes = "edited"
	edited, err := s.Upsert(ctx, edit)
	require.NoError(t, err)

	assert.True(t, edited.CreatedAt.Equal(created.CreatedAt))
	assert.True(t, edited.UpdatedAt.After(created.UpdatedAt))
}

func TestDelete_RemovesAndRepeatIsNoop(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t, NewMemoryBackend())

	refs, err := s.LoadAll(ctx)
	require.NoError(t, err)

	require.NoError(t, s.Delete(ctx, "ref-7"))
	after, err := s.LoadAll(ctx)
	require.NoError(t, err)
	assert.Len(t, after, len(refs)-1)
	assert.Nil(t, findByID(after, "ref-7"))

	got, err := s.Get(ctx, "ref-7")
	require.NoError(t, err)
	assert.Nil(t, got)

	require.NoError(t, s.Delete(ctx, "ref-7"))
	again, err := s.LoadAll(ctx)
	require.NoError(t, err)
	assert.Len(t, again, len(after))
}

func TestReset_RestoresSeed(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t, NewMemoryBackend())

	_, err := s.Upsert(ctx, sampleReference())
	require.NoError(t, err)
	require.NoError(t, s.Delete(ctx, "ref-1"))
	require.NoError(t, s.Delete(ctx, "ref-2"))

	require.NoError(t, s.Reset(ctx))

	refs, err := s.LoadAll(ctx)
	require.NoError(t, err)
	if diff := cmp.Diff(s.Seed(), refs); diff != "" {
		t.Errorf("reset did not restore the seed set (-want +got):\n%s", diff)
	}
}

func TestReset_OverwritesCorruptData(t *testing.T) {
	ctx := context.Background()
	backend := NewMemoryBackend()
	backend.Set(DefaultKey, []byte("garbage"))
	s := newTestStore(t, backend)

	require.NoError(t, s.Reset(ctx))

	result, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, SourceStored, result.Source)
	assert.Len(t, result.References, SeedSize)
}

func TestUpsert_OverCorruptDataStartsFromSeed(t *testing.T) {
	ctx := context.Background()
	backend := NewMemoryBackend()
	backend.Set(DefaultKey, []byte("[{]"))
	s := newTestStore(t, backend)

	_, err := s.Upsert(ctx, sampleReference())
	require.NoError(t, err)

	result, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, SourceStored, result.Source)
	assert.Len(t, result.References, SeedSize+1)
}

func TestGet_ReturnsCopy(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t, NewMemoryBackend())

	got, err := s.Get(ctx, "ref-3")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "ref-3", got.ID)

	got.Tags[0] = "mutated"
	again, err := s.Get(ctx, "ref-3")
	require.NoError(t, err)
	assert.NotEqual(t, "mutated", again.Tags[0])
}

func TestScenario_CreateThenEdit(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t, NewMemoryBackend())

	initial, err := s.LoadAll(ctx)
	require.NoError(t, err)
	require.Len(t, initial, 25)

	created, err := s.Upsert(ctx, sampleReference())
	require.NoError(t, err)
	require.NotEmpty(t, created.ID)

	refs, err := s.LoadAll(ctx)
	require.NoError(t, err)
	require.Len(t, refs, 26)

	stored := findByID(refs, created.ID)
	require.NotNil(t, stored)
	assert.Equal(t, "Terminal Routing - Acme", stored.Title)
	assert.Equal(t, "Acme", stored.Customer)
	assert.Equal(t, "ORD-9", stored.OrderNumber)
	assert.Equal(t, model.SectionTerminal, stored.Section)
	assert.Equal(t, []string{"mesh"}, stored.Tags)
	assert.Equal(t, "ok", stored.Notes)
	assert.True(t, stored.Image.Equal(model.NewURLImage("https://x/y.jpg")))
	assert.True(t, stored.CreatedAt.Equal(stored.UpdatedAt))

	edit := stored.Clone()
	edit.Notes = "ok, re-inspected"
	_, err = s.Upsert(ctx, edit)
	require.NoError(t, err)

	refs, err = s.LoadAll(ctx)
	require.NoError(t, err)
	require.Len(t, refs, 26)

	edited := findByID(refs, created.ID)
	require.NotNil(t, edited)
	assert.Equal(t, "ok, re-inspected", edited.Notes)
	assert.True(t, edited.CreatedAt.Equal(stored.CreatedAt))
	assert.True(t, edited.UpdatedAt.After(stored.UpdatedAt))
}

func TestUpsert_ConcurrentWritersLoseNothing(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t, NewMemoryBackend())

	_, err := s.LoadAll(ctx)
	require.NoError(t, err)

	const writers = 20
	var g errgroup.Group
	for i := 0; i < writers; i++ {
		g.Go(func() error {
			ref := sampleReference()
			ref.ID = fmt.Sprintf("ref-concurrent-%d", i)
			_, err := s.Upsert(ctx, ref)
			return err
		})
	}
	require.NoError(t, g.Wait())

	refs, err := s.LoadAll(ctx)
	require.NoError(t, err)
	assert.Len(t, refs, SeedSize+writers)
	for i := 0; i < writers; i++ {
		assert.NotNil(t, findByID(refs, fmt.Sprintf("ref-concurrent-%d", i)))
	}
}

func TestUpsert_SeparateStoresOnSharedBackendLoseNothing(t *testing.T) {
	ctx := context.Background()
	backend := NewMemoryBackend()
	a := newTestStore(t, backend)
	b := newTestStore(t, backend)

	_, err := a.LoadAll(ctx)
	require.NoError(t, err)

	var g errgroup.Group
	for i := 0; i < 10; i++ {
		g.Go(func() error {
			ref := sampleReference()
			ref.ID = fmt.Sprintf("ref-a-%d", i)
			_, err := a.Upsert(ctx, ref)
			return err
		})
		g.Go(func() error {
			ref := sampleReference()
			ref.ID = fmt.Sprintf("ref-b-%d", i)
			_, err := b.Upsert(ctx, ref)
			return err
		})
	}
	require.NoError(t, g.Wait())

	refs, err := a.LoadAll(ctx)
	require.NoError(t, err)
	assert.Len(t, refs, SeedSize+20)
}

// racingBackend commits a competing write right before the first Put it
// sees, forcing the caller into a version conflict.
type racingBackend struct {
	*MemoryBackend
	once  sync.Once
	rival model.Reference
}

func (r *racingBackend) Put(ctx context.Context, key string, data []byte, expected string) (string, error) {
	r.once.Do(func() {
		blob, err := r.MemoryBackend.Get(ctx, key)
		if err != nil {
			return
		}
		var refs []model.Reference
		if err := json.Unmarshal(blob.Data, &refs); err != nil {
			return
		}
		raw, _ := json.Marshal(append([]model.Reference{r.rival}, refs...))
		r.MemoryBackend.Set(key, raw)
	})
	return r.MemoryBackend.Put(ctx, key, data, expected)
}

func TestUpsert_RetriesAfterVersionConflict(t *testing.T) {
	ctx := context.Background()
	mem := NewMemoryBackend()
	seeder := newTestStore(t, mem)
	_, err := seeder.LoadAll(ctx)
	require.NoError(t, err)

	rival := sampleReference()
	rival.ID = "ref-rival"
	rival.CreatedAt = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	rival.UpdatedAt = rival.CreatedAt

	s := newTestStore(t, &racingBackend{MemoryBackend: mem, rival: rival})

	mine := sampleReference()
	mine.ID = "ref-mine"
	_, err = s.Upsert(ctx, mine)
	require.NoError(t, err)

	refs, err := s.LoadAll(ctx)
	require.NoError(t, err)
	assert.NotNil(t, findByID(refs, "ref-rival"), "competing write must survive")
	assert.NotNil(t, findByID(refs, "ref-mine"))
	assert.Len(t, refs, SeedSize+2)
}

type conflictingBackend struct {
	*MemoryBackend
}

func (c *conflictingBackend) Put(ctx context.Context, key string, data []byte, expected string) (string, error) {
	if expected == VersionAny || expected == VersionAbsent {
		return c.MemoryBackend.Put(ctx, key, data, expected)
	}
	return "", ErrVersionConflict
}

func TestUpsert_GivesUpAfterMaxAttempts(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t, &conflictingBackend{NewMemoryBackend()}, WithMaxAttempts(3))

	_, err := s.LoadAll(ctx)
	require.NoError(t, err)

	_, err = s.Upsert(ctx, sampleReference())
	assert.ErrorIs(t, err, ErrWriteConflict)
}

func TestMutexLocker_HonorsContext(t *testing.T) {
	l := NewMutexLocker()
	unlock, err := l.Lock(context.Background())
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = l.Lock(ctx)
	assert.ErrorIs(t, err, ErrLockNotObtained)

	require.NoError(t, unlock(context.Background()))
	unlock, err = l.Lock(context.Background())
	require.NoError(t, err)
	require.NoError(t, unlock(context.Background()))
}
