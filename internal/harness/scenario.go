package harness

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/roach88/pxengine/internal/catalog"
)

// Scenario defines a conformance scenario: a catalog, a sequence of steps
// run through the engine, and assertions on the final character state.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Async routes recomputes through the background queue. The queue is
	// drained after every step.
	Async bool `yaml:"async,omitempty"`

	// Catalog is imported into a fresh store before the first step. The
	// whole event is recomputed once after import.
	Catalog catalog.File `yaml:"catalog"`

	// Steps run in order. A failing step does not stop the scenario.
	Steps []Step `yaml:"steps"`

	// Assertions validate the final state of characters.
	Assertions []Assertion `yaml:"assertions"`
}

// Step actions.
const (
	ActionGrant          = "grant"
	ActionRevoke         = "revoke"
	ActionPurchase       = "purchase"
	ActionRefund         = "refund"
	ActionSelect         = "select"
	ActionDeselect       = "deselect"
	ActionDeliver        = "deliver"
	ActionSetAmount      = "set_amount"
	ActionSetCost        = "set_cost"
	ActionSetStart       = "set_start"
	ActionLink           = "link"
	ActionUnlink         = "unlink"
	ActionSetLinks       = "set_links"
	ActionRecompute      = "recompute"
	ActionRecomputeEvent = "recompute_event"
)

// Step is one mutation or recompute. Entities are referenced by catalog key.
type Step struct {
	Action string `yaml:"action"`

	Character  string   `yaml:"character,omitempty"`
	Ability    string   `yaml:"ability,omitempty"`
	Abilities  []string `yaml:"abilities,omitempty"`
	Option     string   `yaml:"option,omitempty"` // "question.option"
	Delivery   string   `yaml:"delivery,omitempty"`
	Characters []string `yaml:"characters,omitempty"`
	Amount     *int64   `yaml:"amount,omitempty"`

	// Relation, Owner and Targets describe link/unlink/set_links steps,
	// e.g. relation "modifier.abilities", owner "discount", targets ["sword"].
	Relation string   `yaml:"relation,omitempty"`
	Owner    string   `yaml:"owner,omitempty"`
	Targets  []string `yaml:"targets,omitempty"`

	// Expect checks the step outcome. Nil means the step must succeed.
	Expect *Expect `yaml:"expect,omitempty"`
}

// target names the entity a step acts on, for the trace.
func (s Step) target() string {
	for _, t := range []string{s.Character, s.Owner, s.Delivery, s.Ability} {
		if t != "" {
			return t
		}
	}
	return ""
}

// Expect is the expected outcome of a step.
type Expect struct {
	// Error is the expected error code, e.g. "ABILITY_UNAVAILABLE".
	Error string `yaml:"error,omitempty"`

	// Removed lists the ability keys a refund or revoke must remove.
	Removed []string `yaml:"removed,omitempty"`
}

// Assertion checks the persisted state of one character after the last
// step. Nil fields are not checked; an empty list asserts emptiness.
type Assertion struct {
	Character string `yaml:"character"`

	Total     *int64 `yaml:"px_tot,omitempty"`
	Used      *int64 `yaml:"px_used,omitempty"`
	Available *int64 `yaml:"px_avail,omitempty"`

	Owned  *[]string `yaml:"owned,omitempty"`
	Free   *[]string `yaml:"free,omitempty"`
	Offers *[]string `yaml:"offers,omitempty"` // ability keys in offer order

	// Fields maps computed question keys to their expected text.
	Fields map[string]string `yaml:"fields,omitempty"`
}

// stepRequirements lists the fields each action needs.
var stepRequirements = map[string][]string{
	ActionGrant:          {"character", "abilities"},
	ActionRevoke:         {"character", "abilities"},
	ActionPurchase:       {"character", "ability"},
	ActionRefund:         {"character", "ability"},
	ActionSelect:         {"character", "option"},
	ActionDeselect:       {"character", "option"},
	ActionDeliver:        {"delivery", "amount"},
	ActionSetAmount:      {"delivery", "amount"},
	ActionSetCost:        {"ability", "amount"},
	ActionSetStart:       {"amount"},
	ActionLink:           {"relation", "owner"},
	ActionUnlink:         {"relation", "owner"},
	ActionSetLinks:       {"relation", "owner"},
	ActionRecompute:      {"character"},
	ActionRecomputeEvent: {},
}

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses scenario YAML with strict field checking.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // Reject unknown fields
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
// Catalog semantics are checked on import.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if s.Catalog.Event.Slug == "" {
		return fmt.Errorf("catalog.event.slug is required")
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}

	for i, step := range s.Steps {
		if err := validateStep(step); err != nil {
			return fmt.Errorf("steps[%d]: %w", i, err)
		}
	}
	for i, a := range s.Assertions {
		if a.Character == "" {
			return fmt.Errorf("assertions[%d]: character is required", i)
		}
	}
	return nil
}

func validateStep(step Step) error {
	required, ok := stepRequirements[step.Action]
	if !ok {
		return fmt.Errorf("unknown action %q", step.Action)
	}
	for _, field := range required {
		missing := false
		switch field {
		case "character":
			missing = step.Character == ""
		case "ability":
			missing = step.Ability == ""
		case "abilities":
			missing = len(step.Abilities) == 0
		case "option":
			missing = step.Option == ""
		case "delivery":
			missing = step.Delivery == ""
		case "amount":
			missing = step.Amount == nil
		case "relation":
			missing = step.Relation == ""
		case "owner":
			missing = step.Owner == ""
		}
		if missing {
			return fmt.Errorf("%s: %s is required", step.Action, field)
		}
	}
	if step.Expect != nil && step.Expect.Error == "" && len(step.Expect.Removed) == 0 {
		return fmt.Errorf("%s: expect needs error or removed", step.Action)
	}
	return nil
}
