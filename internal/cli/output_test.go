package cli

import (
	"bytes"
	"errors"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/livestore/internal/errs"
)

func TestOutputFormatter_JSONSuccess(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{
		Format: "json",
		Writer: buf,
	}

	data := map[string]string{"result": "success"}
	err := formatter.Success(data)
	require.NoError(t, err)

	var resp CLIResponse
	err = json.Unmarshal(buf.Bytes(), &resp)
	require.NoError(t, err)
	assert.Equal(t, "ok", resp.Status)
	assert.NotNil(t, resp.Data)
}

func TestOutputFormatter_JSONError(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{
		Format: "json",
		Writer: buf,
	}

	err := formatter.Error("UNKNOWN_ROUTE", "no route matches /nope", nil)
	require.NoError(t, err)

	var resp CLIResponse
	err = json.Unmarshal(buf.Bytes(), &resp)
	require.NoError(t, err)
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "UNKNOWN_ROUTE", resp.Error.Code)
	assert.Equal(t, "no route matches /nope", resp.Error.Message)
}

func TestOutputFormatter_TextError(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{
		Format: "text",
		Writer: buf,
	}

	err := formatter.Error("INVALID_CONFIG", "workers: must not be negative", map[string]string{"field": "workers"})
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "Error [INVALID_CONFIG]")
	assert.NotContains(t, buf.String(), "Details:")
}

func TestOutputFormatter_TextErrorVerbose(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{
		Format:  "text",
		Writer:  buf,
		Verbose: true,
	}

	err := formatter.Error("INVALID_CONFIG", "bad", map[string]string{"field": "workers"})
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "Details:")
}

func TestOutputFormatter_RecordsText(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{Format: "text", Writer: buf}

	err := formatter.Records([]map[string]any{
		{"title": "b", "id": int64(2)},
		{"title": "a", "id": int64(1), "finished": true},
	})
	require.NoError(t, err)
	assert.Equal(t, "{\"id\":2,\"title\":\"b\"}\n{\"finished\":true,\"id\":1,\"title\":\"a\"}\n", buf.String())
}

func TestOutputFormatter_RecordsJSON(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{Format: "json", Writer: buf}

	require.NoError(t, formatter.Records([]map[string]any{{"id": int64(1)}}))

	var resp struct {
		Status string           `json:"status"`
		Data   []map[string]int `json:"data"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, []map[string]int{{"id": 1}}, resp.Data)
}

func TestOutputFormatter_ReportError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code string
	}{
		{"coded", errs.New(errs.CodeUnknownRoute, "no route"), "UNKNOWN_ROUTE"},
		{"wrapped", errs.Execution(errors.New("disk full"), "insert"), "EXECUTION_FAILED"},
		{"plain", errors.New("boom"), "EXECUTION_FAILED"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := &bytes.Buffer{}
			formatter := &OutputFormatter{Format: "json", Writer: buf}
			require.NoError(t, formatter.ReportError(tt.err))

			var resp CLIResponse
			require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
			require.NotNil(t, resp.Error)
			assert.Equal(t, tt.code, resp.Error.Code)
		})
	}
}

func TestOutputFormatter_VerboseLog(t *testing.T) {
	tests := []struct {
		name    string
		verbose bool
		wantLog bool
	}{
		{"verbose_enabled", true, true},
		{"verbose_disabled", false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := &bytes.Buffer{}
			errOut := &bytes.Buffer{}
			formatter := &OutputFormatter{
				Format:    "json",
				Writer:    out,
				ErrWriter: errOut,
				Verbose:   tt.verbose,
			}

			formatter.VerboseLog("querying %s", "/tasks")

			assert.Empty(t, out.String())
			if tt.wantLog {
				assert.Contains(t, errOut.String(), "querying /tasks")
			} else {
				assert.Empty(t, errOut.String())
			}
		})
	}
}

func TestGetExitCode(t *testing.T) {
	assert.Equal(t, ExitCommandError, GetExitCode(NewExitError(ExitCommandError, "bad")))
	assert.Equal(t, ExitFailure, GetExitCode(errors.New("plain")))

	cfgErr := wrapResolveError("query failed", errs.New(errs.CodeUnknownRoute, "no route"))
	assert.Equal(t, ExitCommandError, cfgErr.Code)
	assert.ErrorContains(t, cfgErr, "query failed: ")

	execErr := wrapResolveError("query failed", errs.Execution(errors.New("locked"), "select"))
	assert.Equal(t, ExitFailure, execErr.Code)
}
