package model

// Event is the tenancy boundary. Every other entity belongs to one event.
type Event struct {
	ID       int64    `json:"id"`
	Slug     string   `json:"slug"`
	Name     string   `json:"name"`
	Features []string `json:"features"`
}

// Feature slugs toggled per event.
const (
	// FeaturePX enables progression point accounting.
	FeaturePX = "px"

	// FeatureModifiers enables cost modifiers.
	FeatureModifiers = "modifiers"
)

// HasFeature reports whether the event has the given feature enabled.
func (e Event) HasFeature(feature string) bool {
	for _, f := range e.Features {
		if f == feature {
			return true
		}
	}
	return false
}

// Character is a player character within an event.
type Character struct {
	ID      int64  `json:"id"`
	EventID int64  `json:"event_id"`
	Name    string `json:"name"`
}

// Ability is a purchasable perk.
//
// Prerequisites is a directed edge set: A requiring B does not imply that B
// requires A. Cycles are not rejected; an ability on a cycle can never
// become available.
type Ability struct {
	ID            int64  `json:"id"`
	EventID       int64  `json:"event_id"`
	Name          string `json:"name"`
	Cost          int64  `json:"cost"`
	Visible       bool   `json:"visible"`
	Prerequisites IDSet  `json:"prerequisites"` // Ability ids
	Requirements  IDSet  `json:"requirements"`  // Option ids
}

// Delivery grants PX to a set of characters.
type Delivery struct {
	ID         int64  `json:"id"`
	EventID    int64  `json:"event_id"`
	Name       string `json:"name"`
	Amount     int64  `json:"amount"`
	Characters IDSet  `json:"characters"`
}

// Modifier overrides the cost of the abilities it applies to when its
// prerequisite and requirement conditions hold.
type Modifier struct {
	ID            int64  `json:"id"`
	EventID       int64  `json:"event_id"`
	Name          string `json:"name"`
	Order         int64  `json:"order"`
	Cost          int64  `json:"cost"`
	Abilities     IDSet  `json:"abilities"`     // Abilities whose cost is overridden
	Prerequisites IDSet  `json:"prerequisites"` // Ability ids gating the modifier
	Requirements  IDSet  `json:"requirements"`  // Option ids gating the modifier
}

// Rule is one arithmetic step applied to a computed field.
// An empty Abilities set makes the rule apply to every character.
type Rule struct {
	ID         int64     `json:"id"`
	EventID    int64     `json:"event_id"`
	Name       string    `json:"name"`
	Order      int64     `json:"order"`
	QuestionID int64     `json:"question_id"`
	Operation  Operation `json:"operation"`
	Amount     string    `json:"amount"` // Decimal text, e.g. "2.5"
	Abilities  IDSet     `json:"abilities"`
}

// QuestionType classifies writing questions.
type QuestionType string

const (
	// QuestionComputed marks a field derived entirely from rules.
	QuestionComputed QuestionType = "computed"
	// QuestionSingle is a single-choice question with options.
	QuestionSingle QuestionType = "single"
	// QuestionMultiple is a multiple-choice question with options.
	QuestionMultiple QuestionType = "multiple"
	// QuestionText is a free text question.
	QuestionText QuestionType = "text"
)

// ValidQuestionTypes defines allowed question types.
var ValidQuestionTypes = map[QuestionType]bool{
	QuestionComputed: true,
	QuestionSingle:   true,
	QuestionMultiple: true,
	QuestionText:     true,
}

// Question is a character writing question.
type Question struct {
	ID      int64        `json:"id"`
	EventID int64        `json:"event_id"`
	Name    string       `json:"name"`
	Type    QuestionType `json:"type"`
}

// Option is a selectable answer of a choice question.
// Selected options act as requirement conditions.
type Option struct {
	ID         int64  `json:"id"`
	QuestionID int64  `json:"question_id"`
	Name       string `json:"name"`
}

// Answer is the text answer of a character to a question.
type Answer struct {
	ID          int64  `json:"id"`
	QuestionID  int64  `json:"question_id"`
	CharacterID int64  `json:"character_id"`
	Text        string `json:"text"`
}
