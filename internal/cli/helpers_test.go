package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/stretchr/testify/require"
)

const (
	nationalityCUE = "../circuits/nationality/contract.cue"
	scenariosDir   = "../harness/testdata/scenarios"
)

// run executes the root command with args and returns stdout and the
// command error. Logs and verbose output go to the returned stderr.
func run(t *testing.T, args ...string) (stdout, stderr string, err error) {
	t.Helper()
	out, errOut := &bytes.Buffer{}, &bytes.Buffer{}
	cmd := NewRootCommand()
	cmd.SetOut(out)
	cmd.SetErr(errOut)
	cmd.SetArgs(args)
	err = cmd.Execute()
	return out.String(), errOut.String(), err
}

// runJSON executes the root command in JSON format and decodes the response.
func runJSON(t *testing.T, args ...string) (CLIResponse, error) {
	t.Helper()
	out, _, err := run(t, append([]string{"--format", "json"}, args...)...)
	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp), "output: %s", out)
	return resp, err
}

// decodeData re-decodes a response payload into v.
func decodeData(t *testing.T, resp CLIResponse, v any) {
	t.Helper()
	data, err := json.Marshal(resp.Data)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, v))
}

// tempDB returns a fresh database path.
func tempDB(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "ledgerq.db")
}

// writeFile writes content to name in a fresh temp dir and returns the path.
func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// credentialArgs is a valid verify_and_record_nationality argument list for
// subject, checked at the test timestamp.
func credentialArgs(subject int, now string) string {
	return `[{"id":1,"issuer":"123456789012345678901234567890","issuedAt":1677523200,` +
		`"expiresAt":1709145600,"subject":` + strconv.Itoa(subject) + `,` +
		`"nationality":"987654321098765432109876543210","signature":[11,22]},` + now + `]`
}

func mustRead(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}
