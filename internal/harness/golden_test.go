package harness

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunWithGolden_Testdata(t *testing.T) {
	files, err := filepath.Glob("testdata/scenarios/*.yaml")
	require.NoError(t, err)
	require.NotEmpty(t, files)

	for _, f := range files {
		name := strings.TrimSuffix(filepath.Base(f), ".yaml")
		t.Run(name, func(t *testing.T) {
			scenario, err := LoadScenario(f)
			require.NoError(t, err)
			require.Equal(t, name, scenario.Name, "golden file is named after the scenario")

			result, err := RunWithGolden(t, scenario)
			require.NoError(t, err)
			assert.True(t, result.Pass, "errors: %v", result.Errors)
		})
	}
}

func TestMarshalSnapshot_Deterministic(t *testing.T) {
	scenario, err := LoadScenario("testdata/scenarios/coalescing.yaml")
	require.NoError(t, err)

	first, err := Run(scenario)
	require.NoError(t, err)
	second, err := Run(scenario)
	require.NoError(t, err)

	a, err := MarshalSnapshot(scenario.Name, first)
	require.NoError(t, err)
	b, err := MarshalSnapshot(scenario.Name, second)
	require.NoError(t, err)
	assert.Equal(t, string(a), string(b))
}

func TestSnapshot_OmitsEmptyOptionalFields(t *testing.T) {
	result := NewResult()
	result.AddTrace(TraceEvent{Step: 0, Op: OpAck, Result: "no_entry"})

	data, err := MarshalSnapshot("empty", result)
	require.NoError(t, err)
	assert.Equal(t,
		`{"nextProvisionalId":0,"queue":[],"records":{"application":[],"interview":[],"statusCode":[]},"scenario":"empty","trace":[{"op":"ack","result":"no_entry","step":0}]}`,
		string(data))
}
