package appform

import (
	"errors"
	"fmt"
	"strconv"

	"flame/service/app"
)

var (
	ErrUnknownField = errors.New("unknown form field")
	ErrFieldType    = errors.New("field does not accept this value type")
)

// InputOptions selects how a raw input value is coerced before it is stored.
type InputOptions struct {
	IsNumber bool
	IsBool   bool
}

// applyInput writes one edited field into state. Boolean coercion follows
// select semantics: any non-zero integer is true, zero or garbage is false.
func applyInput(state *app.NewApp, name, value string, opts InputOptions) error {
	switch {
	case opts.IsNumber:
		// apps carry no numeric fields
		if !isField(name) {
			return fmt.Errorf("%w: %s", ErrUnknownField, name)
		}
		return fmt.Errorf("%w: %s is not numeric", ErrFieldType, name)

	case opts.IsBool:
		n, err := strconv.Atoi(value)
		b := err == nil && n != 0
		switch name {
		case "isPublic":
			state.IsPublic = b
			return nil
		case "name", "url", "icon":
			return fmt.Errorf("%w: %s is not boolean", ErrFieldType, name)
		}
		return fmt.Errorf("%w: %s", ErrUnknownField, name)
	}

	switch name {
	case "name":
		state.Name = value
	case "url":
		state.URL = value
	case "icon":
		state.Icon = value
	case "isPublic":
		return fmt.Errorf("%w: isPublic needs boolean coercion", ErrFieldType)
	default:
		return fmt.Errorf("%w: %s", ErrUnknownField, name)
	}
	return nil
}

func isField(name string) bool {
	switch name {
	case "name", "url", "icon", "isPublic":
		return true
	}
	return false
}
