package px

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/roach88/pxengine/internal/model"
)

// Repository is the entity storage the calculator reads and writes.
// *store.Store satisfies it. Lookups of missing entities return errors
// wrapping model.ErrNotFound.
type Repository interface {
	Character(ctx context.Context, id int64) (model.Character, error)
	CharacterIDs(ctx context.Context, eventID int64) ([]int64, error)
	LoadCatalog(ctx context.Context, eventID int64) (*model.Catalog, error)

	CharacterAbilities(ctx context.Context, characterID int64) (model.IDSet, error)
	CharacterOptions(ctx context.Context, characterID int64) (model.IDSet, error)
	AddCharacterAbilities(ctx context.Context, characterID int64, abilities model.IDSet) error
	RemoveAbilityClosure(ctx context.Context, characterID int64, closure func(owned model.IDSet) model.IDSet) (model.IDSet, error)
	DeliveredPX(ctx context.Context, characterID int64) (int64, error)

	GetOrCreateAnswer(ctx context.Context, questionID, characterID int64) (model.Answer, error)
	SaveAnswer(ctx context.Context, questionID, characterID int64, text string) error
}

// Config is the typed settings access the calculator needs.
// *settings.Service satisfies it.
type Config interface {
	Int(ctx context.Context, ref model.Ref, name string) (int64, bool, error)
	IDList(ctx context.Context, ref model.Ref, name string) (model.IDSet, bool, error)
	SaveAll(ctx context.Context, ref model.Ref, values map[string]string) error
}

// Calculator derives PX aggregates and computed fields.
// Safe for concurrent use; work on one character is serialized.
type Calculator struct {
	repo   Repository
	cfg    Config
	locks  *characterLocks
	logger *slog.Logger
	tracer trace.Tracer
}

// Option configures a Calculator.
type Option func(*Calculator)

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(c *Calculator) {
		c.logger = l
	}
}

// WithTracer sets the tracer. Default: the global otel tracer provider.
func WithTracer(t trace.Tracer) Option {
	return func(c *Calculator) {
		c.tracer = t
	}
}

// New creates a calculator over the given storage and settings.
func New(repo Repository, cfg Config, opts ...Option) *Calculator {
	c := &Calculator{
		repo:   repo,
		cfg:    cfg,
		locks:  newCharacterLocks(),
		logger: slog.Default(),
		tracer: otel.Tracer("github.com/roach88/pxengine/internal/px"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// load reads a character and the catalog of its event.
func (c *Calculator) load(ctx context.Context, characterID int64) (model.Character, *snapshot, error) {
	ch, err := c.repo.Character(ctx, characterID)
	if errors.Is(err, model.ErrNotFound) {
		return model.Character{}, nil, characterNotFound(characterID, err)
	}
	if err != nil {
		return model.Character{}, nil, fmt.Errorf("load character %d: %w", characterID, err)
	}

	cat, err := c.repo.LoadCatalog(ctx, ch.EventID)
	if errors.Is(err, model.ErrNotFound) {
		return model.Character{}, nil, eventNotFound(characterID, err)
	}
	if err != nil {
		return model.Character{}, nil, fmt.Errorf("load catalog of event %d: %w", ch.EventID, err)
	}
	return ch, newSnapshot(cat), nil
}

// buildContext reads the character's owned abilities and selected options.
func (c *Calculator) buildContext(ctx context.Context, ch model.Character, snap *snapshot) (*Context, error) {
	owned, err := c.repo.CharacterAbilities(ctx, ch.ID)
	if err != nil {
		return nil, fmt.Errorf("owned abilities of character %d: %w", ch.ID, err)
	}
	options, err := c.repo.CharacterOptions(ctx, ch.ID)
	if err != nil {
		return nil, fmt.Errorf("options of character %d: %w", ch.ID, err)
	}
	return BuildContext(ch.ID, owned, options, snap.modifiers), nil
}

// characterLocks hands out one mutex per character id.
// Entries are dropped once no goroutine holds or waits for them.
type characterLocks struct {
	mu    sync.Mutex
	locks map[int64]*refMutex
}

type refMutex struct {
	sync.Mutex
	refs int
}

func newCharacterLocks() *characterLocks {
	return &characterLocks{locks: make(map[int64]*refMutex)}
}

// Lock acquires the lock of id and returns its release function.
func (l *characterLocks) Lock(id int64) func() {
	l.mu.Lock()
	m, ok := l.locks[id]
	if !ok {
		m = &refMutex{}
		l.locks[id] = m
	}
	m.refs++
	l.mu.Unlock()

	m.Lock()
	return func() {
		m.Unlock()
		l.mu.Lock()
		m.refs--
		if m.refs == 0 {
			delete(l.locks, id)
		}
		l.mu.Unlock()
	}
}
