package harness

import (
	"context"
	"fmt"
	"reflect"
	"strings"

	"github.com/roach88/jobtrail/internal/editor"
	"github.com/roach88/jobtrail/internal/model"
	"github.com/roach88/jobtrail/internal/store"
)

// AssertionError is returned when an assertion fails.
// It includes the queue at evaluation time to help debug the failure.
type AssertionError struct {
	Type     string             // Assertion type for categorization
	Expected string             // Human-readable expected outcome
	Actual   string             // Human-readable actual outcome
	Queue    []model.QueueEntry // Queue for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Queue) > 0 {
		fmt.Fprintf(&buf, "\nQueue:\n")
		for i, entry := range e.Queue {
			fmt.Fprintf(&buf, "  [%d] %s\n", i+1, entry)
		}
	}
	return buf.String()
}

// EvaluateAssertions checks every assertion against the editor's current
// state and returns the failure messages.
func EvaluateAssertions(ctx context.Context, ed *editor.Editor, assertions []Assertion) []string {
	var errs []string
	for i, a := range assertions {
		if err := evaluate(ctx, ed, a); err != nil {
			errs = append(errs, fmt.Sprintf("assertion %d: %s", i, err))
		}
	}
	return errs
}

func evaluate(ctx context.Context, ed *editor.Editor, a Assertion) error {
	switch a.Type {
	case AssertQueueCount, AssertQueueOrder:
		queue, err := ed.DrainQueue(ctx)
		if err != nil {
			return err
		}
		if a.Type == AssertQueueCount {
			return assertQueueCount(queue, a)
		}
		return assertQueueOrder(queue, a)
	case AssertRecordPresent, AssertRecordAbsent, AssertField:
		return assertRecord(ctx, ed, a)
	case AssertNextProvisionalID:
		return assertNextProvisionalID(ctx, ed, a)
	}
	return fmt.Errorf("unknown assertion type %q", a.Type)
}

func assertQueueCount(queue []model.QueueEntry, a Assertion) error {
	if len(queue) != a.Count {
		return &AssertionError{
			Type:     AssertQueueCount,
			Expected: fmt.Sprintf("%d queued entries", a.Count),
			Actual:   fmt.Sprintf("%d queued entries", len(queue)),
			Queue:    queue,
		}
	}
	return nil
}

// describeEntry renders an entry the way queue_order assertions spell it.
func describeEntry(e model.QueueEntry) string {
	return fmt.Sprintf("%s %s %d", e.Operation, e.EntityType, e.EntityID)
}

func assertQueueOrder(queue []model.QueueEntry, a Assertion) error {
	actual := make([]string, len(queue))
	for i, e := range queue {
		actual[i] = describeEntry(e)
	}

	expected := make([]string, len(a.Entries))
	for i, s := range a.Entries {
		expected[i] = normalizeEntry(s)
	}

	if !reflect.DeepEqual(expected, actual) {
		return &AssertionError{
			Type:     AssertQueueOrder,
			Expected: fmt.Sprintf("%q", expected),
			Actual:   fmt.Sprintf("%q", actual),
			Queue:    queue,
		}
	}
	return nil
}

// normalizeEntry accepts any spelling of the kind ("Applications",
// "application") and collapses whitespace.
func normalizeEntry(s string) string {
	parts := strings.Fields(s)
	if len(parts) == 3 {
		if k, err := model.ParseKind(parts[1]); err == nil {
			parts[1] = k.String()
		}
	}
	return strings.Join(parts, " ")
}

func assertRecord(ctx context.Context, ed *editor.Editor, a Assertion) error {
	kind, err := model.ParseKind(a.Kind)
	if err != nil {
		return err
	}

	rec, err := ed.Get(ctx, kind, *a.ID)
	present := err == nil
	if err != nil && !store.IsNotFound(err) {
		return err
	}

	switch a.Type {
	case AssertRecordPresent:
		if !present {
			return &AssertionError{
				Type:     a.Type,
				Expected: fmt.Sprintf("%s %d to exist", kind, *a.ID),
				Actual:   "not found",
			}
		}
	case AssertRecordAbsent:
		if present {
			return &AssertionError{
				Type:     a.Type,
				Expected: fmt.Sprintf("%s %d to be absent", kind, *a.ID),
				Actual:   rec.String(),
			}
		}
	case AssertField:
		if !present {
			return &AssertionError{
				Type:     a.Type,
				Expected: fmt.Sprintf("%s %d to exist", kind, *a.ID),
				Actual:   "not found",
			}
		}
		return assertField(rec, a)
	}
	return nil
}

func assertField(rec model.Record, a Assertion) error {
	want, err := model.NormalizeFields(rec.Kind, model.Fields{a.Field: a.Value})
	if err != nil {
		return err
	}
	expected := want[a.Field]
	actual, exists := rec.Fields[a.Field]

	if expected == nil {
		if exists {
			return &AssertionError{
				Type:     a.Type,
				Expected: fmt.Sprintf("%s.%s to be absent", rec.Kind, a.Field),
				Actual:   fmt.Sprintf("%v", actual),
			}
		}
		return nil
	}

	if !exists || !reflect.DeepEqual(expected, actual) {
		return &AssertionError{
			Type:     a.Type,
			Expected: fmt.Sprintf("%s %d %s = %v (type %T)", rec.Kind, rec.ID, a.Field, expected, expected),
			Actual:   fmt.Sprintf("%s %d %s = %v (type %T)", rec.Kind, rec.ID, a.Field, actual, actual),
		}
	}
	return nil
}

func assertNextProvisionalID(ctx context.Context, ed *editor.Editor, a Assertion) error {
	want, _ := toInt64(a.Value)
	info, err := ed.Info(ctx)
	if err != nil {
		return err
	}
	if info.NextProvisionalID != want {
		return &AssertionError{
			Type:     a.Type,
			Expected: fmt.Sprintf("next provisional id %d", want),
			Actual:   fmt.Sprintf("next provisional id %d", info.NextProvisionalID),
		}
	}
	return nil
}
