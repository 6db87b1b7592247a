package px

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/roach88/pxengine/internal/model"
	"github.com/roach88/pxengine/internal/settings"
)

// Summary is the outcome of recomputing one character.
type Summary struct {
	CharacterID int64 `json:"character_id"`

	// Skipped is true when the event does not use PX; nothing was written.
	Skipped bool `json:"skipped,omitempty"`

	Total     int64 `json:"px_tot"`
	Used      int64 `json:"px_used"`
	Available int64 `json:"px_avail"`

	Owned   model.IDSet `json:"owned"`
	Free    model.IDSet `json:"free_abilities"`
	Granted model.IDSet `json:"granted,omitempty"`
	Revoked model.IDSet `json:"revoked,omitempty"`

	// Fields maps computed question ids to their written text.
	Fields map[int64]string `json:"fields,omitempty"`
}

// Recompute rebuilds the PX aggregates and computed fields of a character.
// Idempotent: repeating it without a state change writes identical values.
func (c *Calculator) Recompute(ctx context.Context, characterID int64) (Summary, error) {
	ch, snap, err := c.load(ctx, characterID)
	if err != nil {
		return Summary{}, err
	}
	return c.recomputeCharacter(ctx, ch, snap)
}

// RecomputeEvent rebuilds every character of an event with a single
// catalog load. Characters are processed in id order.
func (c *Calculator) RecomputeEvent(ctx context.Context, eventID int64) ([]Summary, error) {
	cat, err := c.repo.LoadCatalog(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("load catalog of event %d: %w", eventID, err)
	}
	snap := newSnapshot(cat)

	ids, err := c.repo.CharacterIDs(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("roster of event %d: %w", eventID, err)
	}

	out := make([]Summary, 0, len(ids))
	for _, id := range ids {
		sum, err := c.recomputeCharacter(ctx, model.Character{ID: id, EventID: eventID}, snap)
		if err != nil {
			return out, err
		}
		out = append(out, sum)
	}
	return out, nil
}

func (c *Calculator) recomputeCharacter(ctx context.Context, ch model.Character, snap *snapshot) (Summary, error) {
	unlock := c.locks.Lock(ch.ID)
	defer unlock()
	return c.recomputeLocked(ctx, ch, snap)
}

// recomputeLocked runs the recompute steps. The caller holds the character lock.
func (c *Calculator) recomputeLocked(ctx context.Context, ch model.Character, snap *snapshot) (Summary, error) {
	ctx, span := c.tracer.Start(ctx, "px.Recompute",
		trace.WithAttributes(attribute.Int64("character.id", ch.ID)),
	)
	defer span.End()

	sum, err := c.recompute(ctx, ch, snap)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "recompute failed")
		return Summary{}, err
	}
	span.SetAttributes(
		attribute.Int64("px.total", sum.Total),
		attribute.Int64("px.used", sum.Used),
		attribute.Bool("skipped", sum.Skipped),
	)
	return sum, nil
}

func (c *Calculator) recompute(ctx context.Context, ch model.Character, snap *snapshot) (Summary, error) {
	if !snap.cat.Event.HasFeature(model.FeaturePX) {
		return Summary{CharacterID: ch.ID, Skipped: true}, nil
	}

	baseline, _, err := c.cfg.Int(ctx, model.EventRef(ch.EventID), settings.KeyPXStart)
	if err != nil {
		return Summary{}, fmt.Errorf("starting px of event %d: %w", ch.EventID, err)
	}

	pc, err := c.buildContext(ctx, ch, snap)
	if err != nil {
		return Summary{}, err
	}

	ref := model.CharacterRef(ch.ID)
	free, _, err := c.cfg.IDList(ctx, ref, settings.KeyFreeAbilities)
	if err != nil {
		return Summary{}, fmt.Errorf("free abilities of character %d: %w", ch.ID, err)
	}
	fr, err := c.reconcileFree(ctx, snap, pc, free)
	if err != nil {
		return Summary{}, err
	}

	delivered, err := c.repo.DeliveredPX(ctx, ch.ID)
	if err != nil {
		return Summary{}, err
	}

	sum := Summary{
		CharacterID: ch.ID,
		Total:       baseline + delivered,
		Used:        UsedPX(snap.cat, pc),
		Owned:       pc.Owned,
		Free:        fr.free,
		Granted:     fr.granted,
		Revoked:     fr.revoked,
	}
	sum.Available = sum.Total - sum.Used

	values := map[string]string{
		settings.KeyPXTotal:     settings.FormatInt(sum.Total),
		settings.KeyPXUsed:      settings.FormatInt(sum.Used),
		settings.KeyPXAvailable: settings.FormatInt(sum.Available),
	}
	if fr.freeListChanged(free) {
		values[settings.KeyFreeAbilities] = settings.FormatIDList(fr.free)
	}
	if err := c.cfg.SaveAll(ctx, ref, values); err != nil {
		return Summary{}, fmt.Errorf("save aggregates of character %d: %w", ch.ID, err)
	}

	if sum.Fields, err = c.applyRules(ctx, snap, pc); err != nil {
		return Summary{}, err
	}

	c.logger.Debug("recomputed character",
		"character", ch.ID,
		"px_tot", sum.Total,
		"px_used", sum.Used,
		"px_avail", sum.Available,
		"granted", fr.granted.Sorted(),
		"revoked", fr.revoked.Sorted(),
	)
	return sum, nil
}
