package harness

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Scenario is a sequence of resolver operations with expectations.
type Scenario struct {
	// Name uniquely identifies the scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what the scenario validates.
	Description string `yaml:"description"`

	// Setup steps run before the flow and are not traced.
	Setup []Step `yaml:"setup,omitempty"`

	// Flow steps are traced and checked against their expect clauses.
	Flow []Step `yaml:"flow"`

	// Assertions validate the trace and the final state.
	Assertions []Assertion `yaml:"assertions,omitempty"`
}

// Step is one resolver operation.
type Step struct {
	// Op is insert, update, delete, query or exists.
	Op string `yaml:"op"`

	// Target is the identifier the operation addresses.
	Target string `yaml:"target"`

	// Values are the columns written by insert and update.
	Values map[string]any `yaml:"values,omitempty"`

	// Where narrows update, delete, query and exists with column equalities.
	Where map[string]any `yaml:"where,omitempty"`

	// Expect is checked against the outcome. Nil means no check.
	Expect *Expect `yaml:"expect,omitempty"`
}

// Expect describes the expected outcome of a step.
type Expect struct {
	// Present is whether the operation produced something: a row was
	// inserted, rows were affected, or the query matched.
	Present *bool `yaml:"present,omitempty"`

	// Identifier is the identifier an insert returns.
	Identifier string `yaml:"identifier,omitempty"`

	// Count is the affected (update, delete) or matched (query) row count.
	Count *int `yaml:"count,omitempty"`

	// Rows is a subset match over the query result, in order.
	Rows []map[string]any `yaml:"rows,omitempty"`

	// Error is the expected errs code, e.g. UNKNOWN_ROUTE.
	Error string `yaml:"error,omitempty"`
}

// Assertion validates the trace or the final state.
type Assertion struct {
	// Type is one of notified, not_notified, notify_count or final_state.
	Type string `yaml:"type"`

	// Identifier is the notified identifier (notified, not_notified).
	Identifier string `yaml:"identifier,omitempty"`

	// Count is the total notification count (notify_count) or the row
	// count (final_state).
	Count *int `yaml:"count,omitempty"`

	// Target is the identifier queried by final_state.
	Target string `yaml:"target,omitempty"`

	// Where narrows final_state with column equalities.
	Where map[string]any `yaml:"where,omitempty"`

	// Rows is a subset match over the final_state result, in order.
	Rows []map[string]any `yaml:"rows,omitempty"`
}

// Step operations.
const (
	OpInsert = "insert"
	OpUpdate = "update"
	OpDelete = "delete"
	OpQuery  = "query"
	OpExists = "exists"
)

// Assertion types.
const (
	AssertNotified    = "notified"
	AssertNotNotified = "not_notified"
	AssertNotifyCount = "notify_count"
	AssertFinalState  = "final_state"
)

// LoadScenario reads and parses a scenario YAML file.
// Unknown fields are rejected so typos fail loudly.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
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

func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if len(s.Flow) == 0 {
		return fmt.Errorf("flow list is required and must be non-empty")
	}
	for i, step := range append(append([]Step{}, s.Setup...), s.Flow...) {
		if err := validateStep(step); err != nil {
			return fmt.Errorf("step %d: %w", i, err)
		}
	}
	for i, a := range s.Assertions {
		if err := validateAssertion(a); err != nil {
			return fmt.Errorf("assertion %d: %w", i, err)
		}
	}
	return nil
}

func validateStep(s Step) error {
	switch s.Op {
	case OpInsert, OpUpdate:
		if len(s.Values) == 0 && s.Op == OpUpdate {
			return fmt.Errorf("update requires values")
		}
	case OpDelete, OpQuery, OpExists:
		if len(s.Values) != 0 {
			return fmt.Errorf("%s does not take values", s.Op)
		}
	default:
		return fmt.Errorf("unknown op %q", s.Op)
	}
	if s.Target == "" {
		return fmt.Errorf("target is required")
	}
	return nil
}

func validateAssertion(a Assertion) error {
	switch a.Type {
	case AssertNotified, AssertNotNotified:
		if a.Identifier == "" {
			return fmt.Errorf("%s requires identifier", a.Type)
		}
	case AssertNotifyCount:
		if a.Count == nil {
			return fmt.Errorf("notify_count requires count")
		}
	case AssertFinalState:
		if a.Target == "" {
			return fmt.Errorf("final_state requires target")
		}
	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}
	return nil
}
