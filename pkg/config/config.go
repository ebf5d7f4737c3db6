// Package config loads fleetwatch's JSON configuration and applies
// validation with defaults.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
)

var errInvalidDuration = errors.New("invalid duration")

// LoadFile decodes the JSON file at path into dst.
func LoadFile(path string, dst interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config %s: %w", path, err)
	}

	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("parsing config %s: %w", path, err)
	}

	return nil
}

// ValidateConfig runs validation when cfg implements Validator; plain
// structs pass through.
func ValidateConfig(cfg interface{}) error {
	if v, ok := cfg.(Validator); ok {
		return v.Validate()
	}

	return nil
}

// LoadAndValidate loads a configuration file and validates it.
func LoadAndValidate(path string, cfg interface{}) error {
	if err := LoadFile(path, cfg); err != nil {
		return err
	}

	return ValidateConfig(cfg)
}
