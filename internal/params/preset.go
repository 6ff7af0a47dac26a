// SPDX-License-Identifier: MIT
package params

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// LoadFile reads a YAML preset and applies it to store. A preset is a flat
// map from parameter id to value:
//
//	Peak Freq: 1000
//	Peak Gain: 6
//	LowCut Slope: 24 dB/Oct
//	Peak Bypassed: false
//
// Choices accept either an index or a label. Valid entries are applied even
// when others fail; all failures are returned joined.
func LoadFile(path string, store *Store) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read preset file %s: %w", path, err)
	}

	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("failed to parse preset file %s: %w", path, err)
	}

	return Apply(raw, store)
}

// Apply stores each entry of values. See LoadFile for accepted forms.
func Apply(values map[string]any, store *Store) error {
	var errs []error
	for key, raw := range values {
		id := ID(key)
		p, ok := store.Parameter(id)
		if !ok {
			errs = append(errs, fmt.Errorf("preset key %q: %w", key, ErrUnknownParameter))
			continue
		}

		v, err := presetValue(p, raw)
		if err != nil {
			errs = append(errs, fmt.Errorf("preset key %q: %w", key, err))
			continue
		}
		if err := store.Set(id, v); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func presetValue(p Parameter, raw any) (float64, error) {
	switch v := raw.(type) {
	case int:
		return float64(v), nil
	case float64:
		return v, nil
	case bool:
		if v {
			return 1, nil
		}
		return 0, nil
	case string:
		if p.Kind == Choice {
			if i, ok := p.ParseChoice(v); ok {
				return float64(i), nil
			}
		}
		return 0, fmt.Errorf("unrecognised value %q", v)
	default:
		return 0, fmt.Errorf("unsupported value type %T", raw)
	}
}
