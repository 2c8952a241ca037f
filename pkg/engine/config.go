package engine

import "github.com/rhuss/mmbridge/pkg/api"

// Config holds configuration for the core engine.
type Config struct {
	// DefaultModel is used when the request omits the model field.
	// Empty string means a model is always required in the request.
	DefaultModel string

	// Validation bounds the accepted request shape. The zero value applies
	// api.DefaultValidationConfig.
	Validation api.ValidationConfig
}

func (c Config) validation() api.ValidationConfig {
	if c.Validation == (api.ValidationConfig{}) {
		return api.DefaultValidationConfig()
	}
	return c.Validation
}
