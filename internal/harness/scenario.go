package harness

import (
	"bytes"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/roach88/jobtrail/internal/model"
)

// DefaultStart is the clock start used when a scenario does not set one.
var DefaultStart = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

// DefaultTick is the clock step used when a scenario does not set one.
const DefaultTick = time.Second

// Scenario is a scripted edit session with expectations on its outcome.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Start is the RFC 3339 time of the first clock reading.
	Start string `yaml:"start,omitempty"`

	// Tick is the clock step as a Go duration ("1s", "250ms").
	Tick string `yaml:"tick,omitempty"`

	// Steps run in order against one store.
	Steps []Step `yaml:"steps"`

	// Assertions validate the final records and queue.
	Assertions []Assertion `yaml:"assertions"`
}

// Step is one editor or queue operation.
type Step struct {
	// Op is one of the Op* constants.
	Op string `yaml:"op"`

	// Kind is the record kind (create, update, remove, reconcile, enqueue).
	Kind string `yaml:"kind,omitempty"`

	// ID is the target record id (update, remove, reconcile, enqueue).
	ID *int64 `yaml:"id,omitempty"`

	// NewID is the server id assigned by a reconcile step.
	NewID *int64 `yaml:"new_id,omitempty"`

	// Fields are the record values for create and update. A null value
	// clears the field on update.
	Fields map[string]any `yaml:"fields,omitempty"`

	// Entry is the 1-based queue position addressed by ack and attempt.
	Entry int `yaml:"entry,omitempty"`

	// Operation is the queue operation type of an enqueue step.
	Operation string `yaml:"operation,omitempty"`

	// Expect is checked after the step runs. Without it the step must
	// succeed.
	Expect *Expect `yaml:"expect,omitempty"`
}

// Expect describes the expected outcome of a step.
type Expect struct {
	// ID is the id a create step must produce.
	ID *int64 `yaml:"id,omitempty"`

	// Error is the error code the step must fail with (e.g. NOT_FOUND).
	Error string `yaml:"error,omitempty"`

	// Outcome is the coalescing outcome of an enqueue step (e.g. rejected).
	Outcome string `yaml:"outcome,omitempty"`
}

// Assertion validates the final state.
type Assertion struct {
	// Type is one of the Assert* constants.
	Type string `yaml:"type"`

	// Kind and ID address a record (record_present, record_absent, field).
	Kind string `yaml:"kind,omitempty"`
	ID   *int64 `yaml:"id,omitempty"`

	// Field is the record field compared by a field assertion.
	Field string `yaml:"field,omitempty"`

	// Value is the expected field value (field) or next id
	// (next_provisional_id).
	Value any `yaml:"value,omitempty"`

	// Count is the expected queue length (queue_count).
	Count int `yaml:"count,omitempty"`

	// Entries is the expected queue, "<op> <kind> <id>" each (queue_order).
	Entries []string `yaml:"entries,omitempty"`
}

// Step op constants.
const (
	OpCreate    = "create"
	OpUpdate    = "update"
	OpRemove    = "remove"
	OpReconcile = "reconcile"
	OpAck       = "ack"
	OpAttempt   = "attempt"
	OpEnqueue   = "enqueue"
)

// Assertion type constants.
const (
	AssertQueueCount        = "queue_count"
	AssertQueueOrder        = "queue_order"
	AssertRecordPresent     = "record_present"
	AssertRecordAbsent      = "record_absent"
	AssertField             = "field"
	AssertNextProvisionalID = "next_provisional_id"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses and validates scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	// Reject unknown fields so that "assertion:" vs "assertions:" typos fail.
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

// Clock returns the scenario's clock start and step.
func (s *Scenario) Clock() (time.Time, time.Duration, error) {
	start, tick := DefaultStart, DefaultTick
	if s.Start != "" {
		t, err := time.Parse(time.RFC3339, s.Start)
		if err != nil {
			return time.Time{}, 0, fmt.Errorf("start: %w", err)
		}
		start = t.UTC()
	}
	if s.Tick != "" {
		d, err := time.ParseDuration(s.Tick)
		if err != nil {
			return time.Time{}, 0, fmt.Errorf("tick: %w", err)
		}
		if d <= 0 {
			return time.Time{}, 0, fmt.Errorf("tick must be positive, got %s", s.Tick)
		}
		tick = d
	}
	return start, tick, nil
}

func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("at least one step is required")
	}
	if _, _, err := s.Clock(); err != nil {
		return err
	}
	for i, step := range s.Steps {
		if err := validateStep(i, step); err != nil {
			return err
		}
	}
	for i, a := range s.Assertions {
		if err := validateAssertion(i, a); err != nil {
			return err
		}
	}
	return nil
}

func validateStep(index int, step Step) error {
	needKind := func() error {
		if step.Kind == "" {
			return fmt.Errorf("steps[%d]: kind is required for %s", index, step.Op)
		}
		if _, err := model.ParseKind(step.Kind); err != nil {
			return fmt.Errorf("steps[%d]: %w", index, err)
		}
		return nil
	}
	needID := func() error {
		if step.ID == nil {
			return fmt.Errorf("steps[%d]: id is required for %s", index, step.Op)
		}
		return nil
	}

	switch step.Op {
	case OpCreate:
		return needKind()
	case OpUpdate, OpRemove:
		if err := needKind(); err != nil {
			return err
		}
		return needID()
	case OpReconcile:
		if err := needKind(); err != nil {
			return err
		}
		if err := needID(); err != nil {
			return err
		}
		if step.NewID == nil {
			return fmt.Errorf("steps[%d]: new_id is required for reconcile", index)
		}
	case OpAck, OpAttempt:
		if step.Entry < 1 {
			return fmt.Errorf("steps[%d]: entry must be a 1-based queue position for %s", index, step.Op)
		}
	case OpEnqueue:
		if err := needKind(); err != nil {
			return err
		}
		if err := needID(); err != nil {
			return err
		}
		if !model.OpType(step.Operation).Valid() {
			return fmt.Errorf("steps[%d]: operation must be upsert or delete, got %q", index, step.Operation)
		}
	case "":
		return fmt.Errorf("steps[%d]: op is required", index)
	default:
		return fmt.Errorf("steps[%d]: unknown op %q", index, step.Op)
	}
	return nil
}

func validateAssertion(index int, a Assertion) error {
	needRecord := func() error {
		if a.Kind == "" || a.ID == nil {
			return fmt.Errorf("assertions[%d]: kind and id are required for %s", index, a.Type)
		}
		if _, err := model.ParseKind(a.Kind); err != nil {
			return fmt.Errorf("assertions[%d]: %w", index, err)
		}
		return nil
	}

	switch a.Type {
	case AssertQueueCount:
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for queue_count", index)
		}
	case AssertQueueOrder:
		if len(a.Entries) == 0 {
			return fmt.Errorf("assertions[%d]: entries list is required for queue_order", index)
		}
	case AssertRecordPresent, AssertRecordAbsent:
		return needRecord()
	case AssertField:
		if err := needRecord(); err != nil {
			return err
		}
		if a.Field == "" {
			return fmt.Errorf("assertions[%d]: field is required for field", index)
		}
	case AssertNextProvisionalID:
		if _, ok := toInt64(a.Value); !ok {
			return fmt.Errorf("assertions[%d]: value must be an integer for next_provisional_id", index)
		}
	case "":
		return fmt.Errorf("assertions[%d]: type is required", index)
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}

func toInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int64:
		return n, true
	}
	return 0, false
}
