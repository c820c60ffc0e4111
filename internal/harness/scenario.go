package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/roach88/exposure/internal/exposure"
)

// Scenario defines one deterministic run of a tracker.
type Scenario struct {
	// Name uniquely identifies this scenario. Also the golden file name.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Config is a directory of CUE element configurations.
	// Relative paths are resolved against the scenario file location.
	Config string `yaml:"config,omitempty"`

	// Element names the configured element to track. Required with Config.
	Element string `yaml:"element,omitempty"`

	// Inline element fields, used when Config is empty.
	Target     string                    `yaml:"target,omitempty"`
	Modes      []string                  `yaml:"modes,omitempty"`
	CanDigSend *bool                     `yaml:"can_dig_send,omitempty"`
	Payload    map[string]any            `yaml:"payload,omitempty"`
	Observer   *exposure.ObserverOptions `yaml:"observer,omitempty"`

	// Registered controls whether a dispatch sink is registered. Default true.
	Registered *bool `yaml:"registered,omitempty"`

	// NoSource runs the tracker without an intersection source.
	NoSource bool `yaml:"no_source,omitempty"`

	// RefuseSubscriptions makes the first N subscribe calls fail.
	RefuseSubscriptions int `yaml:"refuse_subscriptions,omitempty"`

	// InstanceID is the fixed tracker instance ID.
	// If empty, defaults to "test-instance-default".
	InstanceID string `yaml:"instance_id,omitempty"`

	Steps      []Step      `yaml:"steps"`
	Assertions []Assertion `yaml:"assertions"`
}

// Step is one timeline entry.
type Step struct {
	// At is the offset from testutil.Epoch, in milliseconds.
	At int64 `yaml:"at_ms"`

	// Action is one of the Action* constants.
	Action string `yaml:"action"`
}

// Step actions.
const (
	ActionActivate   = "activate"
	ActionDeactivate = "deactivate"
	ActionEnter      = "enter"
	ActionExit       = "exit"
	ActionLateEnter  = "late_enter"
	ActionLateExit   = "late_exit"
)

var validActions = map[string]bool{
	ActionActivate:   true,
	ActionDeactivate: true,
	ActionEnter:      true,
	ActionExit:       true,
	ActionLateEnter:  true,
	ActionLateExit:   true,
}

// Assertion validates the dispatch trace or the final tracker state.
type Assertion struct {
	// Type is one of the Assert* constants.
	Type string `yaml:"type"`

	// Mode restricts dispatch_count and dispatch_contains to one mode.
	Mode string `yaml:"mode,omitempty"`

	// Count is the expected number of dispatches (dispatch_count).
	Count int `yaml:"count,omitempty"`

	// Event, EventParams and ActionParams are matched by dispatch_contains.
	// Params use subset semantics: only the listed keys are compared.
	Event        any            `yaml:"event,omitempty"`
	EventParams  map[string]any `yaml:"event_params,omitempty"`
	ActionParams map[string]any `yaml:"action_params,omitempty"`

	// Modes is the exact expected mode sequence (dispatch_order).
	Modes []string `yaml:"modes,omitempty"`

	// Expect holds expected state fields (final_state), subset match.
	Expect map[string]any `yaml:"expect,omitempty"`

	// Code is the expected warning code (warning).
	Code string `yaml:"code,omitempty"`
}

// Assertion type constants.
const (
	AssertDispatchCount    = "dispatch_count"
	AssertDispatchContains = "dispatch_contains"
	AssertDispatchOrder    = "dispatch_order"
	AssertFinalState       = "final_state"
	AssertWarning          = "warning"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	scenario, err := ParseScenario(data)
	if err != nil {
		return nil, err
	}

	if scenario.Config != "" && !filepath.IsAbs(scenario.Config) {
		scenario.Config = filepath.Join(filepath.Dir(path), scenario.Config)
	}
	return scenario, nil
}

// ParseScenario parses and validates scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	// Strict decoding catches typos like "assertion:" vs "assertions:".
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// FindScenarioFiles returns the .yaml and .yml files under dir, optionally
// filtered by a glob matched against the file name without extension.
func FindScenarioFiles(dir, filter string) ([]string, error) {
	var files []string

	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}

		ext := filepath.Ext(path)
		if ext != ".yaml" && ext != ".yml" {
			return nil
		}

		if filter != "" {
			name := strings.TrimSuffix(filepath.Base(path), ext)
			matched, err := filepath.Match(filter, name)
			if err != nil {
				return fmt.Errorf("invalid filter pattern: %w", err)
			}
			if !matched {
				return nil
			}
		}

		files = append(files, path)
		return nil
	})

	return files, err
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	if s.Config != "" {
		if s.Element == "" {
			return fmt.Errorf("element is required when config is set")
		}
		if s.Target != "" || len(s.Modes) > 0 || s.Payload != nil || s.Observer != nil || s.CanDigSend != nil {
			return fmt.Errorf("inline element fields cannot be combined with config")
		}
	} else if s.Element != "" {
		return fmt.Errorf("element requires config")
	}

	if s.RefuseSubscriptions < 0 {
		return fmt.Errorf("refuse_subscriptions must be non-negative")
	}

	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}
	var last int64
	for i, step := range s.Steps {
		if !validActions[step.Action] {
			return fmt.Errorf("steps[%d]: unknown action %q", i, step.Action)
		}
		if step.At < 0 {
			return fmt.Errorf("steps[%d]: at_ms must be non-negative", i)
		}
		if step.At < last {
			return fmt.Errorf("steps[%d]: at_ms %d is before previous step (%d)", i, step.At, last)
		}
		last = step.At
	}

	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}
	for i := range s.Assertions {
		if err := validateAssertion(i, &s.Assertions[i]); err != nil {
			return err
		}
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertDispatchCount:
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for dispatch_count", index)
		}
	case AssertDispatchContains:
		if a.Mode == "" && a.Event == nil && a.EventParams == nil && a.ActionParams == nil {
			return fmt.Errorf("assertions[%d]: dispatch_contains needs at least one of mode, event, event_params, action_params", index)
		}
	case AssertDispatchOrder:
		if a.Modes == nil {
			return fmt.Errorf("assertions[%d]: modes list is required for dispatch_order", index)
		}
	case AssertFinalState:
		if len(a.Expect) == 0 {
			return fmt.Errorf("assertions[%d]: expect is required for final_state", index)
		}
	case AssertWarning:
		if a.Code == "" {
			return fmt.Errorf("assertions[%d]: code is required for warning", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}
