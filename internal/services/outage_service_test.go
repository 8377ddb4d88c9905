package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/jat99/PowerMonitor/internal/db/models"
	"github.com/jat99/PowerMonitor/internal/db/repository"
	"github.com/jat99/PowerMonitor/internal/outage"
	"github.com/jat99/PowerMonitor/internal/testutil"
	"github.com/jat99/PowerMonitor/internal/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingPublisher keeps every published event
type recordingPublisher struct {
	mu     sync.Mutex
	events []OutageEvent
}

func (p *recordingPublisher) PublishOutageEvent(_ context.Context, event OutageEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
}

func (p *recordingPublisher) types() []OutageEventType {
	p.mu.Lock()
	defer p.mu.Unlock()
	types := make([]OutageEventType, len(p.events))
	for i, e := range p.events {
		types[i] = e.Type
	}
	return types
}

func newOutageService(t *testing.T) (*OutageService, *recordingPublisher, *testutil.TestSetup) {
	ts := testutil.NewTestSetup(t)
	pub := &recordingPublisher{}
	svc := NewOutageService(repository.NewOutageRepository(ts.DB.DB), time.UTC, pub, ts.Logger)
	return svc, pub, ts
}

func TestOutageService_OpenAndResolve(t *testing.T) {
	svc, pub, _ := newOutageService(t)
	ctx := context.Background()
	start := testutil.MustTime("2024-01-15T14:23:00Z")

	opened, err := svc.Open(ctx, start, 120.5, "Grid failure")
	require.NoError(t, err)
	assert.Equal(t, outage.Active, opened.Status)
	assert.Equal(t, "Ongoing", opened.Duration)
	assert.Equal(t, "Jan 15, 02:23 PM", opened.FormattedStart)
	assert.Equal(t, outage.Placeholder, opened.FormattedEnd)
	assert.NotEmpty(t, opened.ID)

	active, err := svc.Active(ctx)
	require.NoError(t, err)
	require.NotNil(t, active)
	assert.Equal(t, opened.ID, active.ID)

	_, err = svc.Open(ctx, start.Add(time.Minute), 119, "")
	assert.ErrorIs(t, err, outage.ErrAlreadyActive)

	resolved, err := svc.Resolve(ctx, opened.ID, start.Add(22*time.Minute), 120.2)
	require.NoError(t, err)
	assert.Equal(t, outage.Resolved, resolved.Status)
	assert.Equal(t, "22 min", resolved.Duration)
	assert.Equal(t, "Jan 15, 02:45 PM", resolved.FormattedEnd)

	_, err = svc.Resolve(ctx, opened.ID, start.Add(30*time.Minute), 120)
	assert.ErrorIs(t, err, outage.ErrLifecycle, "resolved exactly once")

	active, err = svc.Active(ctx)
	require.NoError(t, err)
	assert.Nil(t, active)

	assert.Equal(t, []OutageEventType{OutageOpened, OutageResolved}, pub.types())
}

func TestOutageService_ResolveErrors(t *testing.T) {
	svc, pub, _ := newOutageService(t)
	ctx := context.Background()
	start := testutil.MustTime("2024-01-15T14:23:00Z")

	_, err := svc.ResolveLatest(ctx, start, 120)
	assert.ErrorIs(t, err, repository.ErrNotFound)

	_, err = svc.Resolve(ctx, "abc", start, 120)
	assert.ErrorIs(t, err, utils.ErrBadRequest)

	_, err = svc.Resolve(ctx, "42", start, 120)
	assert.ErrorIs(t, err, repository.ErrNotFound)

	_, err = svc.Open(ctx, start, 120, "")
	require.NoError(t, err)

	_, err = svc.ResolveLatest(ctx, start.Add(-time.Minute), 120)
	assert.ErrorIs(t, err, outage.ErrLifecycle, "end before start")

	_, closed, err := svc.ResolveActive(ctx, start.Add(2*time.Hour+15*time.Minute), 121)
	require.NoError(t, err)
	assert.True(t, closed)

	_, closed, err = svc.ResolveActive(ctx, start.Add(3*time.Hour), 121)
	require.NoError(t, err)
	assert.False(t, closed)

	assert.Equal(t, []OutageEventType{OutageOpened, OutageResolved}, pub.types())
}

func TestOutageService_FetchThroughRegistry(t *testing.T) {
	svc, _, _ := newOutageService(t)
	ctx := context.Background()

	for _, s := range []string{"2024-01-11T10:30:00Z", "2024-01-12T16:45:00Z", "2024-01-15T14:23:00Z"} {
		start := testutil.MustTime(s)
		_, err := svc.Open(ctx, start, 120, "")
		require.NoError(t, err)
		_, err = svc.ResolveLatest(ctx, start.Add(time.Hour), 120)
		require.NoError(t, err)
	}

	registry := outage.NewRegistry(svc, svc.Location())

	all, err := registry.List(ctx, outage.Query{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "1h", all[0].Duration)

	day, err := registry.List(ctx, outage.ByDate(testutil.MustTime("2024-01-12T00:00:00Z")))
	require.NoError(t, err)
	require.Len(t, day, 1)
	assert.Equal(t, "Jan 12, 04:45 PM", day[0].FormattedStart)

	rng, err := registry.List(ctx, outage.ByRange(
		testutil.MustTime("2024-01-12T00:00:00Z"),
		testutil.MustTime("2024-01-15T00:00:00Z")))
	require.NoError(t, err)
	assert.Len(t, rng, 2, "end day is inclusive")

	none, err := registry.List(ctx, outage.ByDate(testutil.MustTime("2024-02-01T00:00:00Z")))
	require.NoError(t, err)
	assert.Empty(t, none)
}

// staleOutageRepository never sees an active outage, like a writer racing another
type staleOutageRepository struct {
	repository.OutageRepository
}

func (r staleOutageRepository) GetActive(context.Context) (*models.Outage, error) {
	return nil, repository.ErrNotFound
}

func (r staleOutageRepository) Transaction(ctx context.Context, fn func(repo repository.OutageRepository) error) error {
	return r.OutageRepository.Transaction(ctx, func(tx repository.OutageRepository) error {
		return fn(staleOutageRepository{tx})
	})
}

func TestOutageService_SingleActive(t *testing.T) {
	t.Run("Should let one of concurrent opens win", func(t *testing.T) {
		svc, pub, _ := newOutageService(t)
		ctx := context.Background()
		start := testutil.MustTime("2024-01-15T14:23:00Z")

		const writers = 8
		errs := make(chan error, writers)
		var wg sync.WaitGroup
		for i := 0; i < writers; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				_, err := svc.Open(ctx, start.Add(time.Duration(i)*time.Second), 120, "")
				errs <- err
			}(i)
		}
		wg.Wait()
		close(errs)

		opened := 0
		for err := range errs {
			if err == nil {
				opened++
				continue
			}
			assert.ErrorIs(t, err, outage.ErrAlreadyActive)
		}
		assert.Equal(t, 1, opened)
		assert.Equal(t, []OutageEventType{OutageOpened}, pub.types())
	})

	t.Run("Should refuse an open that missed the active row", func(t *testing.T) {
		ts := testutil.NewTestSetup(t)
		repo := staleOutageRepository{repository.NewOutageRepository(ts.DB.DB)}
		svc := NewOutageService(repo, time.UTC, nil, ts.Logger)
		ctx := context.Background()
		start := testutil.MustTime("2024-01-15T14:23:00Z")

		_, err := svc.Open(ctx, start, 120, "")
		require.NoError(t, err)

		_, err = svc.Open(ctx, start.Add(time.Minute), 119, "")
		assert.ErrorIs(t, err, outage.ErrAlreadyActive)

		rows, err := repo.ListStartedBetween(ctx, time.Time{}, time.Time{})
		require.NoError(t, err)
		assert.Len(t, rows, 1)
	})
}
