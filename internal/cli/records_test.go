package cli

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/jobtrail/internal/model"
)

func testDB(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "jobtrail.db")
}

// decodeResponse parses a JSON CLI response, decoding Data into data.
func decodeResponse(t *testing.T, out string, data any) CLIResponse {
	t.Helper()
	var raw struct {
		Status string          `json:"status"`
		Data   json.RawMessage `json:"data"`
		Error  *CLIError       `json:"error"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &raw), "output: %s", out)
	if data != nil && len(raw.Data) > 0 {
		require.NoError(t, json.Unmarshal(raw.Data, data))
	}
	return CLIResponse{Status: raw.Status, Error: raw.Error}
}

func TestCreateCommand_Provisional(t *testing.T) {
	db := testDB(t)

	out, err := runRoot(t, db, "create", "application",
		"--set", "companyName=Acme", "--set", "roleTitle=Platform Engineer")
	require.NoError(t, err)
	assert.Contains(t, out, "Created application -1")
	assert.Contains(t, out, "roleTitle=Platform Engineer")

	out, err = runRoot(t, db, "--format", "json", "create", "application", "--set", "companyName=Globex")
	require.NoError(t, err)
	var rec map[string]any
	resp := decodeResponse(t, out, &rec)
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, float64(-2), rec["id"])
	assert.Equal(t, "Globex", rec["companyName"])
}

func TestCreateCommand_TypedFields(t *testing.T) {
	db := testDB(t)

	_, err := runRoot(t, db, "create", "statusCode",
		"--set", "id=3", "--set", "code=OFFER", "--set", "isActive=true")
	require.NoError(t, err)

	out, err := runRoot(t, db, "--format", "json", "get", "statusCodes", "3")
	require.NoError(t, err)
	var rec map[string]any
	decodeResponse(t, out, &rec)
	assert.Equal(t, true, rec["isActive"])
	assert.Equal(t, float64(3), rec["id"])

	_, err = runRoot(t, db, "create", "interview", "--set", "applicationId=-1", "--set", "interviewerName=Kim")
	require.NoError(t, err)
	out, err = runRoot(t, db, "--format", "json", "get", "interview", "--", "-1")
	require.NoError(t, err)
	decodeResponse(t, out, &rec)
	assert.Equal(t, float64(-1), rec[model.FieldApplicationID])
}

func TestCreateCommand_Errors(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		wantCode string
		wantExit int
	}{
		{"unknown field", []string{"create", "application", "--set", "salary=lots"}, "INVALID_FIELD", ExitCommandError},
		{"bad assignment", []string{"create", "application", "--set", "companyName"}, "INVALID_FIELD", ExitCommandError},
		{"bad boolean", []string{"create", "statusCode", "--set", "isActive=maybe"}, "INVALID_FIELD", ExitCommandError},
		{"provisional id", []string{"create", "application", "--set", "id=-4"}, "PROVISIONAL_ID_SUPPLIED", ExitCommandError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := runRoot(t, testDB(t), append([]string{"--format", "json"}, tt.args...)...)
			require.Error(t, err)
			assert.Equal(t, tt.wantExit, GetExitCode(err))
			assert.True(t, IsReported(err))

			resp := decodeResponse(t, out, nil)
			assert.Equal(t, "error", resp.Status)
			require.NotNil(t, resp.Error)
			assert.Equal(t, tt.wantCode, resp.Error.Code)
		})
	}
}

func TestCreateCommand_ServerIDConflict(t *testing.T) {
	db := testDB(t)
	_, err := runRoot(t, db, "create", "application", "--set", "id=1001", "--set", "companyName=Acme")
	require.NoError(t, err)

	out, err := runRoot(t, db, "create", "application", "--set", "id=1001")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "Error [ID_CONFLICT]")
}

func TestCreateCommand_InvalidKind(t *testing.T) {
	_, err := runRoot(t, testDB(t), "create", "offers", "--set", "x=y")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "invalid kind")
}

func TestUpdateCommand(t *testing.T) {
	db := testDB(t)
	_, err := runRoot(t, db, "create", "application", "--set", "companyName=Acme", "--set", "notes=call back")
	require.NoError(t, err)

	out, err := runRoot(t, db, "update", "application", "--set", "statusCode=OFFER", "--set", "notes=", "--", "-1")
	require.NoError(t, err)
	assert.Contains(t, out, "Updated application -1")
	assert.Contains(t, out, "statusCode=OFFER")
	assert.NotContains(t, out, "notes=")

	out, err = runRoot(t, db, "--format", "json", "queue")
	require.NoError(t, err)
	var view QueueView
	decodeResponse(t, out, &view)
	assert.Equal(t, 1, view.Depth, "create and update coalesce into one upsert")
}

func TestUpdateCommand_Errors(t *testing.T) {
	db := testDB(t)
	_, err := runRoot(t, db, "create", "application", "--set", "id=7", "--set", "companyName=Acme")
	require.NoError(t, err)

	_, err = runRoot(t, db, "update", "application", "7")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "at least one --set")

	out, err := runRoot(t, db, "update", "application", "8", "--set", "notes=x")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "Error [NOT_FOUND]")

	out, err = runRoot(t, db, "update", "application", "7", "--set", "id=9")
	require.Error(t, err)
	assert.Contains(t, out, "Error [IMMUTABLE_ID]")

	_, err = runRoot(t, db, "update", "application", "seven", "--set", "notes=x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `invalid id "seven"`)
}

func TestRemoveCommand(t *testing.T) {
	db := testDB(t)
	_, err := runRoot(t, db, "create", "application", "--set", "id=42", "--set", "companyName=Acme")
	require.NoError(t, err)
	_, err = runRoot(t, db, "create", "application", "--set", "companyName=Draft")
	require.NoError(t, err)

	out, err := runRoot(t, db, "remove", "application", "42")
	require.NoError(t, err)
	assert.Contains(t, out, "Removed application 42")

	out, err = runRoot(t, db, "remove", "application", "--", "-1")
	require.NoError(t, err)
	assert.Contains(t, out, "Removed application -1")

	out, err = runRoot(t, db, "--format", "json", "queue")
	require.NoError(t, err)
	var view QueueView
	decodeResponse(t, out, &view)
	require.Len(t, view.Entries, 1)
	assert.Equal(t, model.OpDelete, view.Entries[0].Operation)
	assert.Equal(t, int64(42), view.Entries[0].EntityID)
}

func TestRemoveCommand_MissingIsNoOp(t *testing.T) {
	out, err := runRoot(t, testDB(t), "--format", "json", "remove", "interview", "5")
	require.NoError(t, err)

	var res RemoveResult
	resp := decodeResponse(t, out, &res)
	assert.Equal(t, "ok", resp.Status)
	assert.False(t, res.Removed)
	assert.Equal(t, model.KindInterview, res.Kind)
}

func TestGetCommand_NotFound(t *testing.T) {
	out, err := runRoot(t, testDB(t), "get", "application", "99")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "Error [NOT_FOUND]")
}

func TestListCommand(t *testing.T) {
	db := testDB(t)

	out, err := runRoot(t, db, "list", "applications")
	require.NoError(t, err)
	assert.Contains(t, out, "No application records.")

	_, err = runRoot(t, db, "create", "application", "--set", "companyName=Acme")
	require.NoError(t, err)
	_, err = runRoot(t, db, "create", "application", "--set", "id=1001", "--set", "companyName=Globex")
	require.NoError(t, err)
	for _, appID := range []string{"-1", "-1", "1001"} {
		_, err = runRoot(t, db, "create", "interview", "--set", "applicationId="+appID)
		require.NoError(t, err)
	}

	out, err = runRoot(t, db, "--format", "json", "list", "application")
	require.NoError(t, err)
	var apps []map[string]any
	decodeResponse(t, out, &apps)
	require.Len(t, apps, 2)
	assert.Equal(t, float64(-1), apps[0]["id"])
	assert.Equal(t, float64(1001), apps[1]["id"])

	out, err = runRoot(t, db, "--format", "json", "list", "interviews", "--application", "-1")
	require.NoError(t, err)
	var interviews []map[string]any
	decodeResponse(t, out, &interviews)
	assert.Len(t, interviews, 2)

	out, err = runRoot(t, db, "--format", "json", "list", "interviews", "--application=1001")
	require.NoError(t, err)
	decodeResponse(t, out, &interviews)
	assert.Len(t, interviews, 1)
}

func TestListCommand_ApplicationFilterRequiresInterviews(t *testing.T) {
	_, err := runRoot(t, testDB(t), "list", "applications", "--application", "3")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestParseAssignments(t *testing.T) {
	fields, err := parseAssignments(model.KindStatusCode, []string{
		"code=OFFER", "isActive=false", "label=", "id=12", "code=ACCEPTED=yes",
	})
	require.NoError(t, err)
	assert.Equal(t, model.Fields{
		"code":     "ACCEPTED=yes",
		"isActive": false,
		"label":    nil,
		"id":       "12",
	}, fields)

	_, err = parseAssignments(model.KindInterview, []string{"applicationId=abc"})
	require.Error(t, err)

	_, err = parseAssignments(model.KindInterview, []string{"=x"})
	require.Error(t, err)
}
