// Package settings is the typed, cached key/value configuration service
// for events and characters.
//
// Values are persisted as text. Reads load every setting of an entity at
// once and cache them; writes go through to the backend and refresh the
// cache. The PX aggregates (px_tot, px_used, px_avail) and the free
// ability list live here and are a rebuildable cache of the catalog.
package settings

import (
	"context"
	"encoding/json"
	"fmt"
	"maps"
	"strconv"
	"sync"

	"github.com/cockroachdb/apd/v3"

	"github.com/roach88/pxengine/internal/model"
)

// Setting names.
const (
	// KeyPXStart is the starting PX baseline of an event.
	KeyPXStart = "px_start"

	// KeyPXTotal is the PX a character has earned.
	KeyPXTotal = "px_tot"

	// KeyPXUsed is the PX a character has spent.
	KeyPXUsed = "px_used"

	// KeyPXAvailable is KeyPXTotal minus KeyPXUsed.
	KeyPXAvailable = "px_avail"

	// KeyFreeAbilities is the JSON list of ability ids granted for free.
	KeyFreeAbilities = "free_abilities"
)

// Backend persists settings rows. *store.Store satisfies it.
type Backend interface {
	Settings(ctx context.Context, ref model.Ref) (map[string]string, error)
	SaveSettings(ctx context.Context, ref model.Ref, values map[string]string) error
}

// Service provides cached typed access to settings.
// Safe for concurrent use.
type Service struct {
	backend Backend

	mu    sync.RWMutex
	cache map[model.Ref]map[string]string
}

// New creates a settings service over backend.
func New(backend Backend) *Service {
	return &Service{
		backend: backend,
		cache:   make(map[model.Ref]map[string]string),
	}
}

// Get returns a raw setting value. The second result is false when unset.
func (s *Service) Get(ctx context.Context, ref model.Ref, name string) (string, bool, error) {
	values, err := s.load(ctx, ref)
	if err != nil {
		return "", false, err
	}
	v, ok := values[name]
	return v, ok, nil
}

// Save writes one setting.
func (s *Service) Save(ctx context.Context, ref model.Ref, name, value string) error {
	return s.SaveAll(ctx, ref, map[string]string{name: value})
}

// SaveAll writes several settings of one entity in a single backend
// transaction.
func (s *Service) SaveAll(ctx context.Context, ref model.Ref, values map[string]string) error {
	if len(values) == 0 {
		return nil
	}
	if err := s.backend.SaveSettings(ctx, ref, values); err != nil {
		return fmt.Errorf("save settings %s/%d: %w", ref.Kind, ref.ID, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if cached, ok := s.cache[ref]; ok {
		next := maps.Clone(cached)
		maps.Copy(next, values)
		s.cache[ref] = next
	}
	return nil
}

// Invalidate drops the cached settings of ref.
func (s *Service) Invalidate(ref model.Ref) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.cache, ref)
}

// Reset drops every cached entry.
func (s *Service) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cache = make(map[model.Ref]map[string]string)
}

// load returns the cached settings of ref, reading the backend on a miss.
// The returned map must not be modified.
func (s *Service) load(ctx context.Context, ref model.Ref) (map[string]string, error) {
	s.mu.RLock()
	values, ok := s.cache[ref]
	s.mu.RUnlock()
	if ok {
		return values, nil
	}

	values, err := s.backend.Settings(ctx, ref)
	if err != nil {
		return nil, fmt.Errorf("load settings %s/%d: %w", ref.Kind, ref.ID, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	// Another reader may have filled the entry meanwhile; keep one copy.
	if cached, ok := s.cache[ref]; ok {
		return cached, nil
	}
	s.cache[ref] = values
	return values, nil
}

// Int returns a setting parsed as an integer.
func (s *Service) Int(ctx context.Context, ref model.Ref, name string) (int64, bool, error) {
	raw, ok, err := s.Get(ctx, ref, name)
	if err != nil || !ok {
		return 0, ok, err
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, false, fmt.Errorf("setting %s: parse int %q: %w", name, raw, err)
	}
	return n, true, nil
}

// Bool returns a setting parsed as a boolean ("True"/"False").
func (s *Service) Bool(ctx context.Context, ref model.Ref, name string) (bool, bool, error) {
	raw, ok, err := s.Get(ctx, ref, name)
	if err != nil || !ok {
		return false, ok, err
	}
	b, err := ParseBool(raw)
	if err != nil {
		return false, false, fmt.Errorf("setting %s: %w", name, err)
	}
	return b, true, nil
}

// Decimal returns a setting parsed as an arbitrary-precision decimal.
func (s *Service) Decimal(ctx context.Context, ref model.Ref, name string) (*apd.Decimal, bool, error) {
	raw, ok, err := s.Get(ctx, ref, name)
	if err != nil || !ok {
		return nil, ok, err
	}
	d, _, err := apd.NewFromString(raw)
	if err != nil {
		return nil, false, fmt.Errorf("setting %s: parse decimal %q: %w", name, raw, err)
	}
	return d, true, nil
}

// IDList returns a setting parsed as a JSON array of ids.
func (s *Service) IDList(ctx context.Context, ref model.Ref, name string) (model.IDSet, bool, error) {
	raw, ok, err := s.Get(ctx, ref, name)
	if err != nil || !ok {
		return model.NewIDSet(), ok, err
	}
	var ids model.IDSet
	if err := json.Unmarshal([]byte(raw), &ids); err != nil {
		return model.NewIDSet(), false, fmt.Errorf("setting %s: parse id list %q: %w", name, raw, err)
	}
	return ids, true, nil
}

// FormatInt encodes an integer setting value.
func FormatInt(n int64) string {
	return strconv.FormatInt(n, 10)
}

// FormatBool encodes a boolean setting value as "True" or "False".
func FormatBool(b bool) string {
	if b {
		return "True"
	}
	return "False"
}

// ParseBool decodes "True"/"False". Lowercase and 1/0 are also accepted.
func ParseBool(raw string) (bool, error) {
	switch raw {
	case "True", "true", "1":
		return true, nil
	case "False", "false", "0", "":
		return false, nil
	}
	return false, fmt.Errorf("parse bool %q", raw)
}

// FormatIDList encodes an id set as a sorted JSON array.
func FormatIDList(ids model.IDSet) string {
	data, _ := json.Marshal(ids)
	return string(data)
}
