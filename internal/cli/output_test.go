package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/pxengine/internal/catalog"
	"github.com/roach88/pxengine/internal/model"
	"github.com/roach88/pxengine/internal/px"
)

func TestOutputFormatter_JSONSuccess(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{
		Format: "json",
		Writer: buf,
	}

	err := formatter.Success(map[string]string{"result": "success"}, nil)
	require.NoError(t, err)

	var resp CLIResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.NotNil(t, resp.Data)
	assert.Nil(t, resp.Error)
}

func TestOutputFormatter_JSONError(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{
		Format: "json",
		Writer: buf,
	}

	err := formatter.Error("ABILITY_UNAVAILABLE", "ability 4 is not available", nil)
	require.NoError(t, err)

	var resp CLIResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "ABILITY_UNAVAILABLE", resp.Error.Code)
	assert.Equal(t, "ability 4 is not available", resp.Error.Message)
}

func TestOutputFormatter_TextSuccess(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{
		Format: "text",
		Writer: buf,
	}

	err := formatter.Success("ignored", func(w io.Writer) {
		fmt.Fprintln(w, "✓ Catalog valid")
	})
	require.NoError(t, err)
	assert.Equal(t, "✓ Catalog valid\n", buf.String())

	buf.Reset()
	require.NoError(t, formatter.Success("plain", nil))
	assert.Equal(t, "plain\n", buf.String())
}

func TestOutputFormatter_TextErrorVerbose(t *testing.T) {
	tests := []struct {
		name        string
		verbose     bool
		wantDetails bool
	}{
		{"verbose_enabled", true, true},
		{"verbose_disabled", false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := &bytes.Buffer{}
			formatter := &OutputFormatter{
				Format:  "text",
				Writer:  buf,
				Verbose: tt.verbose,
			}

			err := formatter.Error("E202", "unknown ability", map[string]string{"field": "abilities[0]"})
			require.NoError(t, err)
			assert.Contains(t, buf.String(), "Error [E202]: unknown ability")
			if tt.wantDetails {
				assert.Contains(t, buf.String(), "Details:")
			} else {
				assert.NotContains(t, buf.String(), "Details:")
			}
		})
	}
}

func TestOutputFormatter_Failure(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{Format: "json", Writer: buf}

	err := formatter.Failure("E202", "validation failed with 1 error(s)", CheckResult{Valid: false}, nil)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	var resp CLIResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "error", resp.Status)
	assert.NotNil(t, resp.Data)
	assert.Equal(t, "E202", resp.Error.Code)
}

func TestOutputFormatter_VerboseLog(t *testing.T) {
	out := &bytes.Buffer{}
	diag := &bytes.Buffer{}
	formatter := &OutputFormatter{Format: "json", Writer: out, ErrWriter: diag, Verbose: true}

	formatter.VerboseLog("Checked %s", "harrowmere.yaml")
	assert.Empty(t, out.String())
	assert.Equal(t, "Checked harrowmere.yaml\n", diag.String())

	formatter.Verbose = false
	formatter.VerboseLog("dropped")
	assert.Equal(t, "Checked harrowmere.yaml\n", diag.String())
}

func TestReport(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode string
		wantExit int
	}{
		{
			name:     "character not found",
			err:      fmt.Errorf("recompute: %w", &px.Error{Code: px.ErrCodeCharacterNotFound, Message: "character does not exist"}),
			wantCode: "CHARACTER_NOT_FOUND",
			wantExit: ExitCommandError,
		},
		{
			name:     "unavailable",
			err:      &px.Error{Code: px.ErrCodeAbilityUnavailable, Message: "ability 3 is not available"},
			wantCode: "ABILITY_UNAVAILABLE",
			wantExit: ExitFailure,
		},
		{
			name: "invalid catalog",
			err: &catalog.InvalidError{Errors: []catalog.ValidationError{
				{Field: "abilities[0].prerequisites[0]", Code: catalog.ErrDanglingRef, Message: "unknown ability"},
			}},
			wantCode: catalog.ErrDanglingRef,
			wantExit: ExitFailure,
		},
		{
			name:     "parse error",
			err:      &catalog.ParseError{File: "x.yaml", Line: 3, Column: 1, Message: "bad indent"},
			wantCode: ErrCodeParse,
			wantExit: ExitFailure,
		},
		{
			name:     "missing event",
			err:      fmt.Errorf("event nowhere: %w", model.ErrNotFound),
			wantCode: ErrCodeNotFound,
			wantExit: ExitCommandError,
		},
		{
			name:     "missing file",
			err:      fmt.Errorf("read catalog: %w", os.ErrNotExist),
			wantCode: ErrCodeNotFound,
			wantExit: ExitCommandError,
		},
		{
			name:     "argument error",
			err:      NewExitError(ExitCommandError, "database not found: px.db"),
			wantCode: ErrCodeInvalidArgs,
			wantExit: ExitCommandError,
		},
		{
			name:     "generic",
			err:      errors.New("disk on fire"),
			wantCode: ErrCodeGeneric,
			wantExit: ExitFailure,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := &bytes.Buffer{}
			formatter := &OutputFormatter{Format: "json", Writer: buf}

			err := formatter.Report(tt.err)
			require.Error(t, err)
			assert.Equal(t, tt.wantExit, GetExitCode(err))
			assert.ErrorIs(t, err, tt.err)

			var resp CLIResponse
			require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
			require.NotNil(t, resp.Error)
			assert.Equal(t, tt.wantCode, resp.Error.Code)
		})
	}
}

func TestGetExitCode(t *testing.T) {
	assert.Equal(t, ExitCommandError, GetExitCode(NewExitError(ExitCommandError, "bad")))
	assert.Equal(t, ExitFailure, GetExitCode(fmt.Errorf("wrapped: %w", NewExitError(ExitFailure, "failed"))))
	assert.Equal(t, ExitFailure, GetExitCode(errors.New("plain")))
}
