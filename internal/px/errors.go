package px

import (
	"errors"
	"fmt"
)

// Error is a calculator failure with a stable code for callers and the CLI.
type Error struct {
	// Code identifies the error category.
	Code ErrorCode

	// Message is a human-readable description.
	Message string

	// CharacterID identifies the affected character, if any.
	CharacterID int64

	// AbilityID identifies the affected ability, if any.
	AbilityID int64

	// Err is the underlying cause, if any.
	Err error
}

// ErrorCode categorizes calculator errors.
type ErrorCode string

const (
	// ErrCodeCharacterNotFound indicates the character does not exist.
	ErrCodeCharacterNotFound ErrorCode = "CHARACTER_NOT_FOUND"

	// ErrCodeEventNotFound indicates the event does not exist.
	ErrCodeEventNotFound ErrorCode = "EVENT_NOT_FOUND"

	// ErrCodeAbilityNotFound indicates the ability is not in the character's event.
	ErrCodeAbilityNotFound ErrorCode = "ABILITY_NOT_FOUND"

	// ErrCodeAbilityUnavailable indicates the ability cannot be purchased now.
	ErrCodeAbilityUnavailable ErrorCode = "ABILITY_UNAVAILABLE"

	// ErrCodeAbilityNotOwned indicates a refund of an ability the character lacks.
	ErrCodeAbilityNotOwned ErrorCode = "ABILITY_NOT_OWNED"

	// ErrCodeInvalidOperation indicates a rule with an unknown operation.
	ErrCodeInvalidOperation ErrorCode = "INVALID_OPERATION"

	// ErrCodeInvalidAmount indicates a rule amount that is not a decimal.
	ErrCodeInvalidAmount ErrorCode = "INVALID_AMOUNT"
)

// Error implements the error interface.
func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	if e.CharacterID != 0 {
		msg += fmt.Sprintf(" (character=%d)", e.CharacterID)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// CodeOf returns the code of the first *Error in err's chain.
// Uses errors.As to handle wrapped errors.
func CodeOf(err error) (ErrorCode, bool) {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Code, true
	}
	return "", false
}

// IsNotFound returns true if err reports a missing character, event or ability.
func IsNotFound(err error) bool {
	code, ok := CodeOf(err)
	if !ok {
		return false
	}
	switch code {
	case ErrCodeCharacterNotFound, ErrCodeEventNotFound, ErrCodeAbilityNotFound:
		return true
	}
	return false
}

// IsUnavailable returns true if err reports an ability that cannot be purchased.
func IsUnavailable(err error) bool {
	code, ok := CodeOf(err)
	return ok && code == ErrCodeAbilityUnavailable
}

// IsRuleError returns true if err reports a malformed computed-field rule.
func IsRuleError(err error) bool {
	code, ok := CodeOf(err)
	return ok && (code == ErrCodeInvalidOperation || code == ErrCodeInvalidAmount)
}

func characterNotFound(id int64, cause error) *Error {
	return &Error{
		Code:        ErrCodeCharacterNotFound,
		Message:     "character does not exist",
		CharacterID: id,
		Err:         cause,
	}
}

func eventNotFound(characterID int64, cause error) *Error {
	return &Error{
		Code:        ErrCodeEventNotFound,
		Message:     "event of character does not exist",
		CharacterID: characterID,
		Err:         cause,
	}
}

func abilityNotFound(characterID, abilityID int64) *Error {
	return &Error{
		Code:        ErrCodeAbilityNotFound,
		Message:     fmt.Sprintf("ability %d not in the character's event", abilityID),
		CharacterID: characterID,
		AbilityID:   abilityID,
	}
}

func abilityUnavailable(characterID, abilityID int64) *Error {
	return &Error{
		Code:        ErrCodeAbilityUnavailable,
		Message:     fmt.Sprintf("ability %d is not available", abilityID),
		CharacterID: characterID,
		AbilityID:   abilityID,
	}
}

func abilityNotOwned(characterID, abilityID int64) *Error {
	return &Error{
		Code:        ErrCodeAbilityNotOwned,
		Message:     fmt.Sprintf("ability %d is not owned", abilityID),
		CharacterID: characterID,
		AbilityID:   abilityID,
	}
}
