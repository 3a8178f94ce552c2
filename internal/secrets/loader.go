package secrets

import (
	"errors"
	"fmt"
	"os"
	"strings"
)

// ErrNotConfigured is returned when neither an inline value nor a file is set.
var ErrNotConfigured = errors.New("not configured")

// Source describes how to load a secret value.
type Source struct {
	// Name is used in error messages to give more context about the secret.
	Name string
	// Value is an inline secret value provided via configuration or environment.
	Value string
	// File points to a file containing the secret value. When set it takes
	// precedence over Value.
	File string
	// Env is the environment variable the value is normally bound to. It is
	// only used for reporting.
	Env string
}

// Load returns the trimmed secret from the provided source. An error wrapping
// ErrNotConfigured is returned when no usable value is set; file read failures
// and empty files are reported separately.
func Load(src Source) (string, error) {
	name := strings.TrimSpace(src.Name)
	if name == "" {
		name = "secret"
	}

	file := strings.TrimSpace(src.File)
	if file != "" {
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

	secret := strings.TrimSpace(src.Value)
	if secret == "" {
		if src.Env != "" {
			return "", fmt.Errorf("%s (%s): %w", name, src.Env, ErrNotConfigured)
		}
		return "", fmt.Errorf("%s: %w", name, ErrNotConfigured)
	}

	return secret, nil
}

// Missing returns the environment variable names of the sources that are not
// configured at all. Sources with a file set are never reported.
func Missing(sources ...Source) []string {
	missing := make([]string, 0, len(sources))
	for _, src := range sources {
		if strings.TrimSpace(src.File) != "" || strings.TrimSpace(src.Value) != "" {
			continue
		}
		name := src.Env
		if name == "" {
			name = src.Name
		}
		missing = append(missing, name)
	}
	return missing
}
