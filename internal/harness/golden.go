package harness

import (
	"testing"
	"time"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/jobtrail/internal/model"
)

// timestampLayout renders queue times at the store's millisecond resolution.
const timestampLayout = "2006-01-02T15:04:05.000Z07:00"

// Snapshot converts a result to a map[string]any for canonical JSON
// serialization. model.MarshalCanonical only handles plain values, so every
// typed field is flattened here.
func Snapshot(scenarioName string, r *Result) map[string]any {
	trace := make([]any, len(r.Trace))
	for i, ev := range r.Trace {
		m := map[string]any{
			"step":   ev.Step,
			"op":     ev.Op,
			"result": ev.Result,
		}
		if ev.Kind != "" {
			m["kind"] = ev.Kind
		}
		if ev.ID != nil {
			m["id"] = *ev.ID
		}
		if ev.NewID != nil {
			m["newId"] = *ev.NewID
		}
		if ev.Entry != nil {
			m["entry"] = *ev.Entry
		}
		trace[i] = m
	}

	records := make(map[string]any, len(model.Kinds))
	for _, kind := range model.Kinds {
		list := make([]any, 0, len(r.Records[kind]))
		for _, rec := range r.Records[kind] {
			list = append(list, rec.Map())
		}
		records[kind.String()] = list
	}

	queue := make([]any, len(r.Queue))
	for i, e := range r.Queue {
		m := map[string]any{
			"id":            e.ID,
			"seq":           e.Seq,
			"operationType": string(e.Operation),
			"entityType":    e.EntityType.String(),
			"entityId":      e.EntityID,
			"timestamp":     formatTime(e.Timestamp),
		}
		if e.LastAttempt != nil {
			m["lastAttempt"] = formatTime(*e.LastAttempt)
		}
		queue[i] = m
	}

	return map[string]any{
		"scenario":          scenarioName,
		"trace":             trace,
		"records":           records,
		"queue":             queue,
		"nextProvisionalId": r.NextProvisionalID,
	}
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timestampLayout)
}

// MarshalSnapshot renders a result as canonical JSON.
func MarshalSnapshot(scenarioName string, r *Result) ([]byte, error) {
	return model.MarshalCanonical(Snapshot(scenarioName, r))
}

// RunWithGolden executes a scenario and compares its final state against a
// golden file stored in testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns an error if the scenario cannot run. A mismatch fails t via goldie.
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}
	if err := AssertGolden(t, scenario.Name, result); err != nil {
		return nil, err
	}
	return result, nil
}

// AssertGolden compares an already computed result against its golden file.
func AssertGolden(t *testing.T, scenarioName string, result *Result) error {
	t.Helper()

	data, err := MarshalSnapshot(scenarioName, result)
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenarioName, data)
	return nil
}
