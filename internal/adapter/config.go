package adapter

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"gamepilot/internal/action"
)

// LoadOptions reads adapter settings from a YAML file. Fields left out of
// the file keep their defaults; a map that is present replaces the default
// map entirely.
//
//	buttons:
//	  SOUTH: space
//	  EAST: f
//	triggers:
//	  RIGHT_TRIGGER: left
//	sensitivity: 20
func LoadOptions(path string) (Options, error) {
	opts := DefaultOptions()
	data, err := os.ReadFile(path)
	if err != nil {
		return opts, fmt.Errorf("read adapter map: %w", err)
	}
	return parseOptions(data, opts)
}

func parseOptions(data []byte, base Options) (Options, error) {
	var file Options
	if err := yaml.Unmarshal(data, &file); err != nil {
		return base, fmt.Errorf("parse adapter map: %w", err)
	}

	if file.ButtonMap != nil {
		for b := range file.ButtonMap {
			if !b.Known() {
				return base, fmt.Errorf("adapter map: unknown button %q", b)
			}
		}
		base.ButtonMap = lowerValues(file.ButtonMap)
	}
	if file.TriggerMap != nil {
		for t := range file.TriggerMap {
			if t != action.LeftTrigger && t != action.RightTrigger {
				return base, fmt.Errorf("adapter map: unknown trigger %q", t)
			}
		}
		base.TriggerMap = lowerValues(file.TriggerMap)
	}
	if file.Sensitivity != 0 {
		base.Sensitivity = file.Sensitivity
	}
	if file.Deadzone != 0 {
		base.Deadzone = file.Deadzone
	}
	if file.MaxMouseDelta != 0 {
		base.MaxMouseDelta = file.MaxMouseDelta
	}
	if file.TriggerThreshold != 0 {
		base.TriggerThreshold = file.TriggerThreshold
	}
	return base, nil
}

func lowerValues[K comparable](m map[K]string) map[K]string {
	out := make(map[K]string, len(m))
	for k, v := range m {
		out[k] = strings.ToLower(strings.TrimSpace(v))
	}
	return out
}
