package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

const (
	KindValidator = "validator"
	KindShow      = "show"
)

// Template renders the defaults for kind as TOML.
func Template(kind string) (string, error) {
	var v any
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case KindValidator:
		v = DefaultValidatorConfig()
	case KindShow:
		// duration is left out so the loader derives it from the
		// minutes, seconds and fps the user edits.
		show := DefaultShowConfig()
		show.Duration = 0
		v = show
	default:
		return "", fmt.Errorf("unknown config kind: %s", kind)
	}
	out, err := toml.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("render %s template: %w", kind, err)
	}
	return string(out), nil
}

func WriteTemplate(path, kind string, overwrite bool) error {
	template, err := Template(kind)
	if err != nil {
		return err
	}
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config already exists: %s", path)
		}
	}
	return os.WriteFile(path, []byte(template), 0o600)
}

// Load validates the file at path as kind.
func Load(path, kind string) error {
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case KindValidator:
		_, err := LoadValidatorConfig(path)
		return err
	case KindShow:
		_, err := LoadShowConfig(path)
		return err
	default:
		return fmt.Errorf("unknown config kind: %s", kind)
	}
}
