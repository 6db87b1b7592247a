// Package relindex builds per-event id -> name listings of relationships
// for display: who owns an ability, what a modifier applies to, which
// abilities trigger a rule.
//
// Listings are cached per event. Attach wires the cache to engine change
// signals so any relationship mutation drops the event's entry.
package relindex

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/roach88/pxengine/internal/engine"
	"github.com/roach88/pxengine/internal/model"
	"github.com/roach88/pxengine/internal/store"
)

// Source is the read surface the index is built from. *store.Store satisfies it.
type Source interface {
	LoadCatalog(ctx context.Context, eventID int64) (*model.Catalog, error)
	EventNames(ctx context.Context, eventID int64) (store.Names, error)
	EventEdges(ctx context.Context, e store.Edge, eventID int64) (map[int64]model.IDSet, error)
	Deliveries(ctx context.Context, eventID int64) ([]model.Delivery, error)
}

// AbilityEntry lists the relationships of one ability by name.
type AbilityEntry struct {
	ID            int64    `json:"id"`
	Name          string   `json:"name"`
	Prerequisites []string `json:"prerequisites"`
	Requirements  []string `json:"requirements"`
	Characters    []string `json:"characters"`
}

// DeliveryEntry lists the recipients of one delivery.
type DeliveryEntry struct {
	ID         int64    `json:"id"`
	Name       string   `json:"name"`
	Characters []string `json:"characters"`
}

// ModifierEntry lists the three edge sets of one modifier.
type ModifierEntry struct {
	ID            int64    `json:"id"`
	Name          string   `json:"name"`
	Abilities     []string `json:"abilities"`
	Prerequisites []string `json:"prerequisites"`
	Requirements  []string `json:"requirements"`
}

// RuleEntry lists the target field and trigger abilities of one rule.
type RuleEntry struct {
	ID        int64    `json:"id"`
	Name      string   `json:"name"`
	Field     string   `json:"field"`
	Abilities []string `json:"abilities"`
}

// Listing is the relationship index of one event. Entries keep catalog
// order; names within an entry are sorted with the root collation.
type Listing struct {
	EventID    int64           `json:"event_id"`
	Abilities  []AbilityEntry  `json:"abilities"`
	Deliveries []DeliveryEntry `json:"deliveries"`
	Modifiers  []ModifierEntry `json:"modifiers"`
	Rules      []RuleEntry     `json:"rules"`
}

// Index caches listings per event.
//
// Thread-safety: safe for concurrent use. A listing returned by Get must
// be treated as read-only.
type Index struct {
	src Source

	mu      sync.Mutex
	entries map[int64]*Listing
	gens    map[int64]uint64 // bumped by Invalidate
	builds  int
}

// New creates an empty index over src.
func New(src Source) *Index {
	return &Index{src: src, entries: make(map[int64]*Listing), gens: make(map[int64]uint64)}
}

// Attach invalidates cached listings whenever eng reports a change.
func (x *Index) Attach(eng *engine.Engine) {
	eng.OnChange(func(c engine.Change) { x.Invalidate(c.EventID) })
}

// Get returns the listing of an event, building it on a cache miss.
// A listing built while the event was invalidated is returned but not
// cached.
func (x *Index) Get(ctx context.Context, eventID int64) (*Listing, error) {
	x.mu.Lock()
	if l, ok := x.entries[eventID]; ok {
		x.mu.Unlock()
		return l, nil
	}
	gen := x.gens[eventID]
	x.mu.Unlock()

	l, err := x.build(ctx, eventID)
	if err != nil {
		return nil, err
	}

	x.mu.Lock()
	defer x.mu.Unlock()
	x.builds++
	if x.gens[eventID] == gen {
		x.entries[eventID] = l
	}
	return l, nil
}

// Invalidate drops the cached listing of an event.
func (x *Index) Invalidate(eventID int64) {
	x.mu.Lock()
	defer x.mu.Unlock()
	delete(x.entries, eventID)
	x.gens[eventID]++
}

// Builds returns how many listings have been built since New.
func (x *Index) Builds() int {
	x.mu.Lock()
	defer x.mu.Unlock()
	return x.builds
}

func (x *Index) build(ctx context.Context, eventID int64) (*Listing, error) {
	cat, err := x.src.LoadCatalog(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("relationship index of event %d: %w", eventID, err)
	}
	names, err := x.src.EventNames(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("relationship index of event %d: %w", eventID, err)
	}
	owners, err := x.src.EventEdges(ctx, store.EdgeAbilityCharacters, eventID)
	if err != nil {
		return nil, fmt.Errorf("relationship index of event %d: %w", eventID, err)
	}
	deliveries, err := x.src.Deliveries(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("relationship index of event %d: %w", eventID, err)
	}

	n := newNamer()
	l := &Listing{
		EventID:    eventID,
		Abilities:  make([]AbilityEntry, 0, len(cat.Abilities)),
		Deliveries: make([]DeliveryEntry, 0, len(deliveries)),
		Modifiers:  make([]ModifierEntry, 0, len(cat.Modifiers)),
		Rules:      make([]RuleEntry, 0, len(cat.Rules)),
	}
	for _, a := range cat.Abilities {
		l.Abilities = append(l.Abilities, AbilityEntry{
			ID:            a.ID,
			Name:          a.Name,
			Prerequisites: n.list(names.Abilities, a.Prerequisites),
			Requirements:  n.list(names.Options, a.Requirements),
			Characters:    n.list(names.Characters, owners[a.ID]),
		})
	}
	for _, d := range deliveries {
		l.Deliveries = append(l.Deliveries, DeliveryEntry{
			ID:         d.ID,
			Name:       d.Name,
			Characters: n.list(names.Characters, d.Characters),
		})
	}
	for _, m := range cat.Modifiers {
		l.Modifiers = append(l.Modifiers, ModifierEntry{
			ID:            m.ID,
			Name:          m.Name,
			Abilities:     n.list(names.Abilities, m.Abilities),
			Prerequisites: n.list(names.Abilities, m.Prerequisites),
			Requirements:  n.list(names.Options, m.Requirements),
		})
	}
	for _, r := range cat.Rules {
		l.Rules = append(l.Rules, RuleEntry{
			ID:        r.ID,
			Name:      r.Name,
			Field:     names.Questions[r.QuestionID],
			Abilities: n.list(names.Abilities, r.Abilities),
		})
	}
	return l, nil
}

type namer struct {
	col *collate.Collator
}

func newNamer() *namer {
	return &namer{col: collate.New(language.Und)}
}

// list resolves ids to names. Ids without a name (another event's rows)
// are dropped. Always returns a non-nil slice.
func (n *namer) list(names map[int64]string, ids model.IDSet) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids.Sorted() {
		if name, ok := names[id]; ok {
			out = append(out, name)
		}
	}
	slices.SortStableFunc(out, n.col.CompareString)
	return out
}
