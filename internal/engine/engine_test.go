package engine

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/pxengine/internal/px"
	"github.com/roach88/pxengine/internal/testutil"
)

// fakeCalc records recomputes and can fail or block them.
type fakeCalc struct {
	mu     sync.Mutex
	calls  []int64
	events []int64
	fail   map[int64]error

	gate     chan struct{} // when set, Recompute waits on it
	inflight atomic.Int32
	peak     atomic.Int32
	ctxErrs  []error
}

func (f *fakeCalc) Recompute(ctx context.Context, id int64) (px.Summary, error) {
	n := f.inflight.Add(1)
	defer f.inflight.Add(-1)
	for {
		p := f.peak.Load()
		if n <= p || f.peak.CompareAndSwap(p, n) {
			break
		}
	}
	if f.gate != nil {
		<-f.gate
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, id)
	f.ctxErrs = append(f.ctxErrs, ctx.Err())
	if err := f.fail[id]; err != nil {
		return px.Summary{}, err
	}
	return px.Summary{CharacterID: id}, nil
}

func (f *fakeCalc) RecomputeEvent(_ context.Context, eventID int64) ([]px.Summary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, eventID)
	return nil, nil
}

func (f *fakeCalc) recorded() []int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]int64(nil), f.calls...)
}

type fakeRoster map[int64][]int64

func (r fakeRoster) CharacterIDs(_ context.Context, eventID int64) ([]int64, error) {
	return r[eventID], nil
}

func newTestEngine(calc *fakeCalc, roster fakeRoster, opts ...Option) *Engine {
	opts = append([]Option{
		WithSequencer(testutil.NewDeterministicClock()),
		WithIDGenerator(testutil.NewSequenceIDGenerator("job")),
	}, opts...)
	return New(calc, roster, opts...)
}

func TestNotify_CharacterScopedInline(t *testing.T) {
	calc := &fakeCalc{}
	e := newTestEngine(calc, fakeRoster{1: {1, 2, 3}})

	err := e.Notify(context.Background(), Change{
		Relation:     "delivery.characters",
		EventID:      1,
		CharacterIDs: []int64{2, 3},
	})
	require.NoError(t, err)

	assert.Equal(t, []int64{2, 3}, calc.recorded())
	assert.Empty(t, calc.events)
}

func TestNotify_EventWideInline(t *testing.T) {
	calc := &fakeCalc{}
	e := newTestEngine(calc, fakeRoster{1: {1, 2, 3}})

	for _, rel := range []string{
		"ability.prerequisites", "ability.requirements",
		"modifier.abilities", "modifier.prerequisites", "modifier.requirements",
		"rule.abilities",
	} {
		require.NoError(t, e.Notify(context.Background(), Change{Relation: rel, EventID: 1, CharacterIDs: []int64{9}}))
	}

	assert.Empty(t, calc.recorded(), "roster recompute goes through RecomputeEvent")
	assert.Equal(t, []int64{1, 1, 1, 1, 1, 1}, calc.events)
}

func TestNotify_EventWideAsync(t *testing.T) {
	calc := &fakeCalc{}
	e := newTestEngine(calc, fakeRoster{1: {1, 2, 3}}, WithAsync(true))
	ctx := context.Background()

	require.NoError(t, e.Notify(ctx, Change{Relation: "rule.abilities", EventID: 1}))
	require.NoError(t, e.Notify(ctx, Change{Relation: "ability.characters", EventID: 1, CharacterIDs: []int64{2}}))
	assert.Equal(t, 3, e.Pending(), "character 2 coalesced")
	assert.Empty(t, calc.recorded())

	n, err := e.ProcessPending(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Equal(t, []int64{1, 2, 3}, calc.recorded())
}

func TestEnqueue_StampsJobs(t *testing.T) {
	calc := &fakeCalc{}
	e := newTestEngine(calc, nil, WithAsync(true))

	require.True(t, e.Enqueue(Job{CharacterID: 1}))
	require.True(t, e.Enqueue(Job{CharacterID: 2}))

	j1, _ := e.queue.TryDequeue()
	j2, _ := e.queue.TryDequeue()
	assert.Equal(t, "job-1", j1.ID)
	assert.Equal(t, int64(1), j1.Seq)
	assert.Equal(t, "job-2", j2.ID)
	assert.Equal(t, int64(2), j2.Seq)
}

func TestProcess_MissingCharacterIsBenign(t *testing.T) {
	calc := &fakeCalc{fail: map[int64]error{
		5: &px.Error{Code: px.ErrCodeCharacterNotFound, Message: "gone", CharacterID: 5},
	}}
	e := newTestEngine(calc, nil, WithAsync(true))
	e.Enqueue(Job{CharacterID: 5})

	n, err := e.ProcessPending(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	processed, failed := e.Stats()
	assert.Equal(t, int64(1), processed)
	assert.Equal(t, int64(0), failed)
}

func TestProcess_FailureLogsAndContinues(t *testing.T) {
	boom := errors.New("disk full")
	calc := &fakeCalc{fail: map[int64]error{2: boom}}
	e := newTestEngine(calc, nil, WithAsync(true))
	for _, id := range []int64{1, 2, 3} {
		e.Enqueue(Job{CharacterID: id, Reason: "test"})
	}

	n, err := e.ProcessPending(context.Background())
	assert.Equal(t, 3, n)
	require.Error(t, err)
	assert.True(t, IsJobError(err))
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, []int64{1, 2, 3}, calc.recorded())

	_, failed := e.Stats()
	assert.Equal(t, int64(1), failed)
}

func TestNotify_Listeners(t *testing.T) {
	calc := &fakeCalc{}
	e := newTestEngine(calc, fakeRoster{})

	var got []Change
	e.OnChange(func(c Change) { got = append(got, c) })

	change := Change{Relation: "modifier.abilities", EventID: 4}
	require.NoError(t, e.Notify(context.Background(), change))
	assert.Equal(t, []Change{change}, got)
}

func TestNotify_AfterStop(t *testing.T) {
	calc := &fakeCalc{}
	e := newTestEngine(calc, nil, WithAsync(true))
	e.Stop()

	err := e.Notify(context.Background(), Change{Relation: "ability.characters", EventID: 1, CharacterIDs: []int64{1}})
	assert.ErrorIs(t, err, ErrStopped)
}

func TestRun_BoundedWorkers(t *testing.T) {
	calc := &fakeCalc{gate: make(chan struct{})}
	e := newTestEngine(calc, nil, WithAsync(true), WithWorkers(2))
	for id := int64(1); id <= 6; id++ {
		e.Enqueue(Job{CharacterID: id})
	}

	done := make(chan error, 1)
	go func() { done <- e.Run(context.Background()) }()

	// Release jobs one at a time.
	for i := 0; i < 6; i++ {
		select {
		case calc.gate <- struct{}{}:
		case <-time.After(2 * time.Second):
			t.Fatal("worker never picked up a job")
		}
	}
	e.Stop()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after Stop")
	}

	assert.ElementsMatch(t, []int64{1, 2, 3, 4, 5, 6}, calc.recorded())
	assert.LessOrEqual(t, calc.peak.Load(), int32(2))
}

func TestRun_CancelFinishesRunningJob(t *testing.T) {
	calc := &fakeCalc{gate: make(chan struct{})}
	e := newTestEngine(calc, nil, WithAsync(true), WithWorkers(1))
	e.Enqueue(Job{CharacterID: 1})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- e.Run(ctx) }()

	require.Eventually(t, func() bool { return calc.inflight.Load() == 1 }, 2*time.Second, time.Millisecond)
	cancel()
	e.Enqueue(Job{CharacterID: 2})
	calc.gate <- struct{}{}

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}

	assert.Equal(t, []int64{1}, calc.recorded(), "no new job taken after cancel")
	assert.NoError(t, calc.ctxErrs[0], "started recompute is not cancelled")
	assert.Equal(t, 1, e.Pending())
}
