package px

import (
	"context"
	"fmt"

	"github.com/cockroachdb/apd/v3"

	"github.com/roach88/pxengine/internal/model"
)

// ruleApplies reports whether a rule fires for the owned abilities.
// A rule without trigger abilities always fires.
func ruleApplies(r model.Rule, owned model.IDSet) bool {
	return r.Abilities.Len() == 0 || r.Abilities.Intersects(owned)
}

// applyOperation returns acc op amount. Division by zero leaves acc unchanged.
func applyOperation(acc *apd.Decimal, op model.Operation, amount *apd.Decimal) (*apd.Decimal, error) {
	out := new(apd.Decimal)
	var err error
	switch op {
	case model.OpAdd:
		_, err = decimalContext.Add(out, acc, amount)
	case model.OpSub:
		_, err = decimalContext.Sub(out, acc, amount)
	case model.OpMul:
		_, err = decimalContext.Mul(out, acc, amount)
	case model.OpDiv:
		if amount.IsZero() {
			return acc, nil
		}
		_, err = decimalContext.Quo(out, acc, amount)
	default:
		return nil, &Error{
			Code:    ErrCodeInvalidOperation,
			Message: fmt.Sprintf("unknown operation %q", op),
		}
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return out, nil
}

// EvaluateRules computes every computed field of the catalog for the owned
// abilities. Rules run in (order, id) order; rules targeting a question that
// is not a computed field are ignored. Every computed field is present in
// the result, starting from zero.
func EvaluateRules(cat *model.Catalog, owned model.IDSet) (map[int64]*apd.Decimal, error) {
	values := make(map[int64]*apd.Decimal, len(cat.Computed))
	for _, q := range cat.Computed {
		values[q.ID] = apd.New(0, 0)
	}

	for _, r := range cat.Rules {
		acc, ok := values[r.QuestionID]
		if !ok || !ruleApplies(r, owned) {
			continue
		}
		amount, _, err := apd.NewFromString(r.Amount)
		if err != nil {
			return nil, &Error{
				Code:    ErrCodeInvalidAmount,
				Message: fmt.Sprintf("rule %d amount %q", r.ID, r.Amount),
				Err:     err,
			}
		}
		next, err := applyOperation(acc, r.Operation, amount)
		if err != nil {
			return nil, fmt.Errorf("rule %d: %w", r.ID, err)
		}
		values[r.QuestionID] = next
	}
	return values, nil
}

// applyRules evaluates the computed fields of one character and writes the
// formatted values to their answers. Returns the written text per question.
func (c *Calculator) applyRules(ctx context.Context, snap *snapshot, pc *Context) (map[int64]string, error) {
	values, err := EvaluateRules(snap.cat, pc.Owned)
	if err != nil {
		return nil, err
	}

	out := make(map[int64]string, len(values))
	for _, q := range snap.cat.Computed {
		text := FormatDecimal(values[q.ID])
		out[q.ID] = text

		ans, err := c.repo.GetOrCreateAnswer(ctx, q.ID, pc.CharacterID)
		if err != nil {
			return nil, fmt.Errorf("answer for question %d: %w", q.ID, err)
		}
		if ans.Text == text {
			continue
		}
		if err := c.repo.SaveAnswer(ctx, q.ID, pc.CharacterID, text); err != nil {
			return nil, fmt.Errorf("save answer for question %d: %w", q.ID, err)
		}
	}
	return out, nil
}
