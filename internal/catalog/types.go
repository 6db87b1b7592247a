package catalog

import "strings"

// File is the decoded form of a catalog file.
//
// Struct tags carry both yaml (gopkg.in/yaml.v3) and json names; CUE
// decoding goes through the json tags.
type File struct {
	Event      Event       `yaml:"event" json:"event"`
	Questions  []Question  `yaml:"questions,omitempty" json:"questions,omitempty"`
	Abilities  []Ability   `yaml:"abilities,omitempty" json:"abilities,omitempty"`
	Modifiers  []Modifier  `yaml:"modifiers,omitempty" json:"modifiers,omitempty"`
	Rules      []Rule      `yaml:"rules,omitempty" json:"rules,omitempty"`
	Characters []Character `yaml:"characters,omitempty" json:"characters,omitempty"`
	Deliveries []Delivery  `yaml:"deliveries,omitempty" json:"deliveries,omitempty"`
}

// Event describes the event row and its PX baseline.
type Event struct {
	Slug     string   `yaml:"slug" json:"slug"`
	Name     string   `yaml:"name" json:"name"`
	Features []string `yaml:"features,omitempty" json:"features,omitempty"`
	PXStart  *int64   `yaml:"px_start,omitempty" json:"px_start,omitempty"`
}

// Question is a writing question. Only choice questions carry options.
type Question struct {
	Key     string   `yaml:"key" json:"key"`
	Name    string   `yaml:"name" json:"name"`
	Type    string   `yaml:"type" json:"type"`
	Options []Option `yaml:"options,omitempty" json:"options,omitempty"`
}

// Option is one answer of a choice question.
type Option struct {
	Key  string `yaml:"key" json:"key"`
	Name string `yaml:"name" json:"name"`
}

// Ability is a purchasable perk. Visible defaults to true when omitted.
type Ability struct {
	Key           string   `yaml:"key" json:"key"`
	Name          string   `yaml:"name" json:"name"`
	Cost          int64    `yaml:"cost" json:"cost"`
	Visible       *bool    `yaml:"visible,omitempty" json:"visible,omitempty"`
	Prerequisites []string `yaml:"prerequisites,omitempty" json:"prerequisites,omitempty"` // ability keys
	Requirements  []string `yaml:"requirements,omitempty" json:"requirements,omitempty"`   // "question.option"
}

// IsVisible reports the effective visibility.
func (a Ability) IsVisible() bool {
	return a.Visible == nil || *a.Visible
}

// Modifier overrides ability costs when its conditions hold.
type Modifier struct {
	Key           string   `yaml:"key" json:"key"`
	Name          string   `yaml:"name" json:"name"`
	Order         int64    `yaml:"order,omitempty" json:"order,omitempty"`
	Cost          int64    `yaml:"cost" json:"cost"`
	Abilities     []string `yaml:"abilities,omitempty" json:"abilities,omitempty"`
	Prerequisites []string `yaml:"prerequisites,omitempty" json:"prerequisites,omitempty"`
	Requirements  []string `yaml:"requirements,omitempty" json:"requirements,omitempty"`
}

// Rule is one arithmetic step on a computed question.
type Rule struct {
	Key       string   `yaml:"key" json:"key"`
	Name      string   `yaml:"name,omitempty" json:"name,omitempty"`
	Order     int64    `yaml:"order,omitempty" json:"order,omitempty"`
	Field     string   `yaml:"field" json:"field"` // computed question key
	Operation string   `yaml:"operation" json:"operation"`
	Amount    string   `yaml:"amount" json:"amount"`
	Abilities []string `yaml:"abilities,omitempty" json:"abilities,omitempty"`
}

// Character is a player character with its starting state.
type Character struct {
	Key       string   `yaml:"key" json:"key"`
	Name      string   `yaml:"name" json:"name"`
	Abilities []string `yaml:"abilities,omitempty" json:"abilities,omitempty"`
	Options   []string `yaml:"options,omitempty" json:"options,omitempty"` // "question.option"
}

// Delivery grants PX to characters.
type Delivery struct {
	Key        string   `yaml:"key" json:"key"`
	Name       string   `yaml:"name" json:"name"`
	Amount     int64    `yaml:"amount" json:"amount"`
	Characters []string `yaml:"characters,omitempty" json:"characters,omitempty"`
}

// OptionRef joins a question key and option key into a requirement reference.
func OptionRef(question, option string) string {
	return question + "." + option
}

func splitOptionRef(ref string) (question, option string) {
	question, option, _ = strings.Cut(ref, ".")
	return question, option
}
