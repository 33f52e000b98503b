// Package secrets resolves credential material such as the Gemini API key
// from files, environment variables, or inline configuration values.
package secrets

import (
	"fmt"
	"os"
	"strings"
)

// Source names a secret and the places it may come from. A file takes
// precedence over an environment variable, which takes precedence over an
// inline value.
type Source struct {
	// Name is used in error messages to give more context about the secret.
	Name string
	// File points to a file containing the secret value.
	File string
	// Env is the name of an environment variable holding the secret value.
	Env string
	// Value is an inline secret value provided via configuration or flags.
	Value string
}

// Load resolves the secret from the highest-precedence location that is set.
// The returned value is always trimmed. An error is returned when no location
// yields a non-empty secret.
func Load(src Source) (string, error) {
	name := strings.TrimSpace(src.Name)
	if name == "" {
		name = "secret"
	}

	if file := strings.TrimSpace(src.File); file != "" {
		data, err := os.ReadFile(file)
		if err != nil {
			return "", fmt.Errorf("reading %s from file %q: %w", name, file, err)
		}

		secret := strings.TrimSpace(string(data))
		if secret == "" {
			return "", fmt.Errorf("%s file %q is empty", name, file)
		}

		return secret, nil
	}

	if env := strings.TrimSpace(src.Env); env != "" {
		if secret := strings.TrimSpace(os.Getenv(env)); secret != "" {
			return secret, nil
		}
	}

	if secret := strings.TrimSpace(src.Value); secret != "" {
		return secret, nil
	}

	return "", fmt.Errorf("%s is not configured", name)
}
