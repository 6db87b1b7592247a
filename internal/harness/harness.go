package harness

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"strconv"

	"github.com/roach88/pxengine/internal/catalog"
	"github.com/roach88/pxengine/internal/engine"
	"github.com/roach88/pxengine/internal/model"
	"github.com/roach88/pxengine/internal/px"
	"github.com/roach88/pxengine/internal/settings"
	"github.com/roach88/pxengine/internal/store"
	"github.com/roach88/pxengine/internal/testutil"
)

// Harness is the scenario execution environment: a fresh store, the PX
// calculator and an engine with deterministic job ids and sequence.
type Harness struct {
	store  *store.Store
	config *settings.Service
	calc   *px.Calculator
	engine *engine.Engine
	writer *engine.Writer
	clock  *testutil.DeterministicClock
	keys   *catalog.Keys
	names  reverseKeys
}

// reverseKeys maps row ids back to catalog keys for reporting.
type reverseKeys struct {
	abilities map[int64]string
	questions map[int64]string
}

// Run executes a scenario and returns the result.
//
// Each scenario runs in a fresh in-memory database for isolation.
//
// Execution flow:
// 1. Create fresh in-memory database
// 2. Import the catalog and recompute the event
// 3. Execute steps, checking expect clauses
// 4. Snapshot every character and evaluate assertions
func Run(scenario *Scenario) (*Result, error) {
	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	ctx := context.Background()
	cfg := settings.New(st)
	calc := px.New(st, cfg, px.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	eng := engine.New(calc, st,
		engine.WithAsync(scenario.Async),
		engine.WithSequencer(testutil.NewDeterministicClock()),
		engine.WithIDGenerator(testutil.NewSequenceIDGenerator("job")),
	)

	keys, err := catalog.Import(ctx, st, &scenario.Catalog)
	if err != nil {
		return nil, fmt.Errorf("failed to import catalog: %w", err)
	}
	if _, err := calc.RecomputeEvent(ctx, keys.EventID); err != nil {
		return nil, fmt.Errorf("failed to recompute event: %w", err)
	}

	h := &Harness{
		store:  st,
		config: cfg,
		calc:   calc,
		engine: eng,
		writer: engine.NewWriter(st, cfg, calc, eng),
		clock:  testutil.NewDeterministicClock(),
		keys:   keys,
		names:  reverse(keys),
	}

	result := NewResult()
	for i, step := range scenario.Steps {
		if err := h.executeStep(ctx, i, step, result); err != nil {
			return nil, fmt.Errorf("step %d (%s): %w", i, step.Action, err)
		}
	}

	for key, id := range keys.Characters {
		state, err := h.snapshot(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("failed to snapshot character %q: %w", key, err)
		}
		result.Final[key] = state
	}

	for _, msg := range EvaluateAssertions(result, scenario.Assertions) {
		result.AddError(msg)
	}
	return result, nil
}

func reverse(keys *catalog.Keys) reverseKeys {
	r := reverseKeys{
		abilities: make(map[int64]string, len(keys.Abilities)),
		questions: make(map[int64]string, len(keys.Questions)),
	}
	for k, id := range keys.Abilities {
		r.abilities[id] = k
	}
	for k, id := range keys.Questions {
		r.questions[id] = k
	}
	return r
}

// executeStep runs one step and records its trace event. Step failures are
// outcomes; the returned error is reserved for scenarios that reference
// unknown keys.
func (h *Harness) executeStep(ctx context.Context, index int, step Step, result *Result) error {
	ev := TraceEvent{
		Seq:    h.clock.Next(),
		Action: step.Action,
		Target: step.target(),
	}

	removed, err := h.apply(ctx, step)
	var keyErr *unknownKeyError
	if errors.As(err, &keyErr) {
		return err
	}

	if (step.Action == ActionRefund || step.Action == ActionRevoke) && err == nil {
		ev.Removed = h.abilityKeys(removed)
	}
	if h.engine.Async() {
		n, perr := h.engine.ProcessPending(ctx)
		ev.Jobs = n
		if err == nil {
			err = perr
		}
	}
	ev.Outcome = outcome(err)
	result.AddTrace(ev)

	want := "ok"
	if step.Expect != nil && step.Expect.Error != "" {
		want = step.Expect.Error
	}
	if ev.Outcome != want {
		result.AddError(fmt.Sprintf("steps[%d] %s %s: outcome %s, want %s (%v)",
			index, step.Action, ev.Target, ev.Outcome, want, err))
	}
	if step.Expect != nil && len(step.Expect.Removed) > 0 {
		wantRemoved := slices.Sorted(slices.Values(step.Expect.Removed))
		if !slices.Equal(ev.Removed, wantRemoved) {
			result.AddError(fmt.Sprintf("steps[%d] %s %s: removed %v, want %v",
				index, step.Action, ev.Target, ev.Removed, wantRemoved))
		}
	}
	return nil
}

// outcome maps a step error to its trace label.
func outcome(err error) string {
	if err == nil {
		return "ok"
	}
	if code, ok := px.CodeOf(err); ok {
		return string(code)
	}
	if errors.Is(err, store.ErrNotFound) {
		return "NOT_FOUND"
	}
	return "ERROR"
}

// apply runs the action of a step. For refunds and revokes the removed ids
// are returned.
func (h *Harness) apply(ctx context.Context, step Step) (model.IDSet, error) {
	switch step.Action {
	case ActionGrant, ActionRevoke:
		ch, err := h.character(step.Character)
		if err != nil {
			return nil, err
		}
		abilities, err := h.resolve(step.Abilities, h.keys.Abilities, "ability")
		if err != nil {
			return nil, err
		}
		if step.Action == ActionGrant {
			return nil, h.writer.GrantAbilities(ctx, ch, abilities)
		}
		return h.writer.RevokeAbilities(ctx, ch, abilities)

	case ActionPurchase, ActionRefund:
		ch, err := h.character(step.Character)
		if err != nil {
			return nil, err
		}
		ability, err := h.lookup(step.Ability, h.keys.Abilities, "ability")
		if err != nil {
			return nil, err
		}
		if step.Action == ActionPurchase {
			_, err := h.writer.Purchase(ctx, ch, ability)
			return nil, err
		}
		removed, _, err := h.writer.Refund(ctx, ch, ability)
		return removed, err

	case ActionSelect, ActionDeselect:
		ch, err := h.character(step.Character)
		if err != nil {
			return nil, err
		}
		opt, err := h.lookup(step.Option, h.keys.Options, "option")
		if err != nil {
			return nil, err
		}
		if step.Action == ActionSelect {
			return nil, h.writer.SelectOption(ctx, ch, opt)
		}
		return nil, h.writer.DeselectOption(ctx, ch, opt)

	case ActionDeliver:
		recipients, err := h.resolve(step.Characters, h.keys.Characters, "character")
		if err != nil {
			return nil, err
		}
		id, err := h.writer.CreateDelivery(ctx, model.Delivery{
			EventID:    h.keys.EventID,
			Name:       step.Delivery,
			Amount:     *step.Amount,
			Characters: recipients,
		})
		if id != 0 {
			h.keys.Deliveries[step.Delivery] = id
		}
		return nil, err

	case ActionSetAmount:
		d, err := h.lookup(step.Delivery, h.keys.Deliveries, "delivery")
		if err != nil {
			return nil, err
		}
		return nil, h.writer.UpdateDeliveryAmount(ctx, d, *step.Amount)

	case ActionSetCost:
		a, err := h.lookup(step.Ability, h.keys.Abilities, "ability")
		if err != nil {
			return nil, err
		}
		return nil, h.writer.UpdateAbilityCost(ctx, a, *step.Amount)

	case ActionSetStart:
		return nil, h.writer.SetStartingPX(ctx, h.keys.EventID, *step.Amount)

	case ActionLink, ActionUnlink, ActionSetLinks:
		return nil, h.link(ctx, step)

	case ActionRecompute:
		ch, err := h.character(step.Character)
		if err != nil {
			return nil, err
		}
		_, err = h.calc.Recompute(ctx, ch)
		return nil, err

	case ActionRecomputeEvent:
		_, err := h.calc.RecomputeEvent(ctx, h.keys.EventID)
		return nil, err
	}
	return nil, &unknownKeyError{kind: "action", key: step.Action}
}

func (h *Harness) link(ctx context.Context, step Step) error {
	e, ok := store.EdgeByRelation(step.Relation)
	if !ok {
		return &unknownKeyError{kind: "relation", key: step.Relation}
	}
	kinds := relationKinds[e.Relation]
	owner, err := h.lookup(step.Owner, h.namespace(kinds.owner), kinds.owner)
	if err != nil {
		return err
	}
	targets, err := h.resolve(step.Targets, h.namespace(kinds.target), kinds.target)
	if err != nil {
		return err
	}

	switch step.Action {
	case ActionLink:
		return h.writer.AddEdges(ctx, e, owner, targets)
	case ActionUnlink:
		return h.writer.RemoveEdges(ctx, e, owner, targets)
	default:
		return h.writer.SetEdges(ctx, e, owner, targets)
	}
}

// relationKinds names the key namespaces of each edge's owner and target.
var relationKinds = map[string]struct{ owner, target string }{
	store.EdgeAbilityPrerequisites.Relation:  {"ability", "ability"},
	store.EdgeAbilityRequirements.Relation:   {"ability", "option"},
	store.EdgeAbilityCharacters.Relation:     {"ability", "character"},
	store.EdgeDeliveryCharacters.Relation:    {"delivery", "character"},
	store.EdgeModifierAbilities.Relation:     {"modifier", "ability"},
	store.EdgeModifierPrerequisites.Relation: {"modifier", "ability"},
	store.EdgeModifierRequirements.Relation:  {"modifier", "option"},
	store.EdgeRuleAbilities.Relation:         {"rule", "ability"},
}

func (h *Harness) namespace(kind string) map[string]int64 {
	switch kind {
	case "ability":
		return h.keys.Abilities
	case "option":
		return h.keys.Options
	case "character":
		return h.keys.Characters
	case "delivery":
		return h.keys.Deliveries
	case "modifier":
		return h.keys.Modifiers
	case "rule":
		return h.keys.Rules
	}
	return nil
}

type unknownKeyError struct {
	kind, key string
}

func (e *unknownKeyError) Error() string {
	return fmt.Sprintf("unknown %s %q", e.kind, e.key)
}

func (h *Harness) character(key string) (int64, error) {
	return h.lookup(key, h.keys.Characters, "character")
}

func (h *Harness) lookup(key string, ids map[string]int64, kind string) (int64, error) {
	id, ok := ids[key]
	if !ok {
		return 0, &unknownKeyError{kind: kind, key: key}
	}
	return id, nil
}

func (h *Harness) resolve(keys []string, ids map[string]int64, kind string) (model.IDSet, error) {
	set := model.NewIDSet()
	for _, k := range keys {
		id, err := h.lookup(k, ids, kind)
		if err != nil {
			return nil, err
		}
		set.Add(id)
	}
	return set, nil
}

// abilityKeys returns the sorted keys of ability ids. Always non-nil.
func (h *Harness) abilityKeys(ids model.IDSet) []string {
	out := make([]string, 0, len(ids))
	for id := range ids {
		out = append(out, h.names.abilities[id])
	}
	slices.Sort(out)
	return out
}

// snapshot reads the persisted state of a character.
func (h *Harness) snapshot(ctx context.Context, characterID int64) (CharacterState, error) {
	values, err := h.store.Settings(ctx, model.CharacterRef(characterID))
	if err != nil {
		return CharacterState{}, err
	}
	state := CharacterState{Fields: make(map[string]string)}
	for key, dst := range map[string]*int64{
		settings.KeyPXTotal:     &state.Total,
		settings.KeyPXUsed:      &state.Used,
		settings.KeyPXAvailable: &state.Available,
	} {
		if raw, ok := values[key]; ok {
			if *dst, err = strconv.ParseInt(raw, 10, 64); err != nil {
				return CharacterState{}, fmt.Errorf("parse %s: %w", key, err)
			}
		}
	}

	owned, err := h.store.CharacterAbilities(ctx, characterID)
	if err != nil {
		return CharacterState{}, err
	}
	state.Owned = h.abilityKeys(owned)

	free, _, err := h.config.IDList(ctx, model.CharacterRef(characterID), settings.KeyFreeAbilities)
	if err != nil {
		return CharacterState{}, err
	}
	state.Free = h.abilityKeys(free)

	offers, err := h.calc.Available(ctx, characterID, nil)
	if err != nil {
		return CharacterState{}, err
	}
	state.Offers = make([]OfferState, 0, len(offers))
	for _, o := range offers {
		state.Offers = append(state.Offers, OfferState{Ability: h.names.abilities[o.Ability.ID], Cost: o.Cost})
	}

	answers, err := h.store.Answers(ctx, characterID)
	if err != nil {
		return CharacterState{}, err
	}
	for _, a := range answers {
		if key, ok := h.names.questions[a.QuestionID]; ok {
			state.Fields[key] = a.Text
		}
	}
	return state, nil
}
