package selection

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
)

// ErrInvalidName is matched by every rename validation failure.
var ErrInvalidName = errors.New("invalid environment name")

// InvalidNameError explains why a candidate name was rejected.
type InvalidNameError struct {
	Input  string
	Reason string
}

// Error implements the error interface
func (e *InvalidNameError) Error() string {
	return fmt.Sprintf("invalid environment name %q: %s", e.Input, e.Reason)
}

// Is implements errors.Is support
func (e *InvalidNameError) Is(target error) bool { return target == ErrInvalidName }

// ValidateName checks a candidate environment name after trimming.
func ValidateName(input string) error {
	name := strings.TrimSpace(input)
	if name == "" {
		return &InvalidNameError{Input: input, Reason: "name is empty"}
	}
	if strings.IndexFunc(name, unicode.IsSpace) >= 0 {
		return &InvalidNameError{Input: input, Reason: "name must not contain spaces"}
	}
	return nil
}

// ResolveName turns rename-prompt input into the name to install under.
// Empty input keeps original; anything else must pass ValidateName.
func ResolveName(original, input string) (string, error) {
	if input == "" {
		return original, nil
	}
	if err := ValidateName(input); err != nil {
		return "", err
	}
	return strings.TrimSpace(input), nil
}
