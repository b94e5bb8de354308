package llm

import (
	"errors"
	"fmt"
)

var (
	// ErrUnsupportedModel is returned for a model display name missing from the model table.
	ErrUnsupportedModel = errors.New("unsupported model")

	// ErrUnsupportedProvider is returned for an unknown provider name.
	ErrUnsupportedProvider = errors.New("unsupported provider")

	// ErrInvalidConnection is returned for a malformed endpoint or tunnel setting.
	ErrInvalidConnection = errors.New("invalid connection")
)

// ConfigError reports a provider configuration problem. It is raised
// before any network call and is never retried.
type ConfigError struct {
	Field  string
	Value  string
	Reason string
	Err    error
}

func (e *ConfigError) Error() string {
	msg := fmt.Sprintf("%s %q", e.Field, e.Value)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	return msg
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

func configError(field, value string, err error, reason string) error {
	return &ConfigError{Field: field, Value: value, Reason: reason, Err: err}
}
