package catalog

import (
	"fmt"

	"github.com/cockroachdb/apd/v3"

	"github.com/roach88/pxengine/internal/model"
)

// Validation error codes (E200-E299)
const (
	ErrMissingField     = "E200" // required field empty
	ErrDuplicateKey     = "E201" // key reused within one namespace
	ErrDanglingRef      = "E202" // reference to an undeclared key
	ErrUnknownOperation = "E203" // rule operation not ADD/SUB/MUL/DIV
	ErrNegativeCost     = "E204" // ability or modifier cost below zero
	ErrInvalidAmount    = "E205" // rule amount is not a decimal
	ErrInvalidType      = "E206" // unknown question type
	ErrNotComputed      = "E207" // rule field is not a computed question
	ErrOptionsOnText    = "E208" // options declared on a non-choice question
	ErrSingleChoice     = "E209" // several options of one single-choice question
	ErrUnknownFeature   = "E210" // feature other than px/modifiers
)

// ValidationError is one semantic problem in a catalog file.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

// Validate reports every semantic error in f. It does not fail fast.
func Validate(f *File) []ValidationError {
	v := &validator{
		questions: make(map[string]Question),
		options:   make(map[string]string),
		abilities: make(map[string]bool),
		chars:     make(map[string]bool),
	}
	v.event(f.Event)
	v.declare(f)
	v.checkAbilities(f.Abilities)
	v.checkModifiers(f.Modifiers)
	v.checkRules(f.Rules)
	v.checkCharacters(f.Characters)
	v.checkDeliveries(f.Deliveries)
	return v.errs
}

type validator struct {
	errs      []ValidationError
	questions map[string]Question
	options   map[string]string // "q.o" -> question type
	abilities map[string]bool
	chars     map[string]bool
}

func (v *validator) add(field, code, format string, args ...any) {
	v.errs = append(v.errs, ValidationError{Field: field, Code: code, Message: fmt.Sprintf(format, args...)})
}

func (v *validator) event(ev Event) {
	if ev.Slug == "" {
		v.add("event.slug", ErrMissingField, "event slug is required")
	}
	for i, feat := range ev.Features {
		if feat != model.FeaturePX && feat != model.FeatureModifiers {
			v.add(fmt.Sprintf("event.features[%d]", i), ErrUnknownFeature, "unknown feature %q", feat)
		}
	}
}

// declare registers every key, reporting duplicates per namespace.
func (v *validator) declare(f *File) {
	for i, q := range f.Questions {
		field := fmt.Sprintf("questions[%d]", i)
		if !v.key(field, q.Key, "question", v.questions[q.Key].Key != "") {
			continue
		}
		v.questions[q.Key] = q
		typ := model.QuestionType(q.Type)
		if !model.ValidQuestionTypes[typ] {
			v.add(field+".type", ErrInvalidType, "unknown question type %q", q.Type)
		}
		choice := typ == model.QuestionSingle || typ == model.QuestionMultiple
		if len(q.Options) > 0 && !choice {
			v.add(field+".options", ErrOptionsOnText, "question %q of type %q cannot have options", q.Key, q.Type)
		}
		for j, o := range q.Options {
			ref := OptionRef(q.Key, o.Key)
			if v.key(fmt.Sprintf("%s.options[%d]", field, j), o.Key, "option", v.options[ref] != "") {
				v.options[ref] = q.Type
			}
		}
	}
	for i, a := range f.Abilities {
		if v.key(fmt.Sprintf("abilities[%d]", i), a.Key, "ability", v.abilities[a.Key]) {
			v.abilities[a.Key] = true
		}
	}
	for i, c := range f.Characters {
		if v.key(fmt.Sprintf("characters[%d]", i), c.Key, "character", v.chars[c.Key]) {
			v.chars[c.Key] = true
		}
	}

	seen := make(map[string]bool)
	for i, m := range f.Modifiers {
		if v.key(fmt.Sprintf("modifiers[%d]", i), m.Key, "modifier", seen[m.Key]) {
			seen[m.Key] = true
		}
	}
	seen = make(map[string]bool)
	for i, r := range f.Rules {
		if v.key(fmt.Sprintf("rules[%d]", i), r.Key, "rule", seen[r.Key]) {
			seen[r.Key] = true
		}
	}
	seen = make(map[string]bool)
	for i, d := range f.Deliveries {
		if v.key(fmt.Sprintf("deliveries[%d]", i), d.Key, "delivery", seen[d.Key]) {
			seen[d.Key] = true
		}
	}
}

// key reports whether key may be registered.
func (v *validator) key(field, key, kind string, duplicate bool) bool {
	if key == "" {
		v.add(field+".key", ErrMissingField, "%s key is required", kind)
		return false
	}
	if duplicate {
		v.add(field+".key", ErrDuplicateKey, "duplicate %s key %q", kind, key)
		return false
	}
	return true
}

func (v *validator) abilityRefs(field string, keys []string) {
	for i, k := range keys {
		if !v.abilities[k] {
			v.add(fmt.Sprintf("%s[%d]", field, i), ErrDanglingRef, "unknown ability %q", k)
		}
	}
}

func (v *validator) optionRefs(field string, refs []string) {
	for i, r := range refs {
		if v.options[r] == "" {
			v.add(fmt.Sprintf("%s[%d]", field, i), ErrDanglingRef, "unknown option %q", r)
		}
	}
}

func (v *validator) checkAbilities(abilities []Ability) {
	for i, a := range abilities {
		field := fmt.Sprintf("abilities[%d]", i)
		if a.Cost < 0 {
			v.add(field+".cost", ErrNegativeCost, "ability %q has negative cost %d", a.Key, a.Cost)
		}
		v.abilityRefs(field+".prerequisites", a.Prerequisites)
		v.optionRefs(field+".requirements", a.Requirements)
	}
}

func (v *validator) checkModifiers(modifiers []Modifier) {
	for i, m := range modifiers {
		field := fmt.Sprintf("modifiers[%d]", i)
		if m.Cost < 0 {
			v.add(field+".cost", ErrNegativeCost, "modifier %q has negative cost %d", m.Key, m.Cost)
		}
		v.abilityRefs(field+".abilities", m.Abilities)
		v.abilityRefs(field+".prerequisites", m.Prerequisites)
		v.optionRefs(field+".requirements", m.Requirements)
	}
}

func (v *validator) checkRules(rules []Rule) {
	for i, r := range rules {
		field := fmt.Sprintf("rules[%d]", i)
		if _, err := model.ParseOperation(r.Operation); err != nil {
			v.add(field+".operation", ErrUnknownOperation, "rule %q: %v", r.Key, err)
		}
		if _, _, err := apd.NewFromString(r.Amount); err != nil {
			v.add(field+".amount", ErrInvalidAmount, "rule %q: amount %q is not a decimal", r.Key, r.Amount)
		}
		q, ok := v.questions[r.Field]
		switch {
		case !ok:
			v.add(field+".field", ErrDanglingRef, "unknown question %q", r.Field)
		case model.QuestionType(q.Type) != model.QuestionComputed:
			v.add(field+".field", ErrNotComputed, "question %q is %q, not computed", r.Field, q.Type)
		}
		v.abilityRefs(field+".abilities", r.Abilities)
	}
}

func (v *validator) checkCharacters(chars []Character) {
	for i, c := range chars {
		field := fmt.Sprintf("characters[%d]", i)
		v.abilityRefs(field+".abilities", c.Abilities)
		v.optionRefs(field+".options", c.Options)

		single := make(map[string]string)
		for _, ref := range c.Options {
			if v.options[ref] != string(model.QuestionSingle) {
				continue
			}
			q, _ := splitOptionRef(ref)
			if prev, dup := single[q]; dup {
				v.add(field+".options", ErrSingleChoice, "options %q and %q answer single-choice question %q", prev, ref, q)
				continue
			}
			single[q] = ref
		}
	}
}

func (v *validator) checkDeliveries(deliveries []Delivery) {
	for i, d := range deliveries {
		field := fmt.Sprintf("deliveries[%d].characters", i)
		for j, k := range d.Characters {
			if !v.chars[k] {
				v.add(fmt.Sprintf("%s[%d]", field, j), ErrDanglingRef, "unknown character %q", k)
			}
		}
	}
}
