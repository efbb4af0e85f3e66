package cli

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/ledgerq/internal/config"
)

func TestRootCommand_Subcommands(t *testing.T) {
	cmd := NewRootCommand()
	var names []string
	for _, sub := range cmd.Commands() {
		names = append(names, sub.Name())
	}
	assert.ElementsMatch(t,
		[]string{"compile", "validate", "deploy", "invoke", "ledger", "replay", "trace", "test"},
		names)
}

func TestRootCommand_InvalidFormat(t *testing.T) {
	_, _, err := run(t, "--format", "xml", "deploy", "--db", tempDB(t))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), `invalid format "xml"`)
}

func TestRootOptions_ConfigPrecedence(t *testing.T) {
	path := writeFile(t, "ledgerq.yaml", "db_path: from-file.db\nlog_level: warn\ngas_limit: 500\n")

	opts := &RootOptions{ConfigPath: path, Database: "from-flag.db"}
	cfg, err := opts.Config()
	require.NoError(t, err)
	assert.Equal(t, "from-flag.db", cfg.DBPath)
	assert.Equal(t, zerolog.WarnLevel, cfg.Level())
	assert.Equal(t, uint64(500), cfg.GasLimit)

	opts = &RootOptions{ConfigPath: path, Verbose: true, LogLevel: "error"}
	cfg, err = opts.Config()
	require.NoError(t, err)
	assert.Equal(t, zerolog.DebugLevel, cfg.Level(), "verbose wins over --log-level")
}

func TestRootOptions_ConfigDefaultsAndErrors(t *testing.T) {
	cfg, err := (&RootOptions{}).Config()
	require.NoError(t, err)
	assert.Equal(t, config.Default(), cfg)

	_, err = (&RootOptions{Contract: "Nope"}).Config()
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown contract "Nope"`)

	_, err = (&RootOptions{ConfigPath: "does-not-exist.yaml"}).Config()
	require.Error(t, err)
}

func TestLogger_JSON(t *testing.T) {
	buf := &bytes.Buffer{}
	cfg := config.Default()
	cfg.LogFormat = "json"
	cfg.LogLevel = "info"

	l := Logger(cfg, buf)
	l.Debug().Msg("hidden")
	l.Info().Str("k", "v").Msg("shown")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "shown", line["message"])
	assert.Equal(t, "v", line["k"])
}

func TestLogger_Console(t *testing.T) {
	buf := &bytes.Buffer{}
	l := Logger(config.Default(), buf)
	l.Info().Msg("hello")
	assert.Contains(t, buf.String(), "hello")
	assert.Contains(t, buf.String(), "INF")
}
