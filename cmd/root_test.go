package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/outreach-cli/internal/config"
)

func TestRootCommand_HasSubcommands(t *testing.T) {
	cmds := rootCmd.Commands()

	names := make(map[string]bool)
	for _, c := range cmds {
		names[c.Name()] = true
	}

	expected := []string{"ingest", "send", "classify", "sessions", "feedback", "serve", "migrate"}
	for _, name := range expected {
		assert.True(t, names[name], "expected subcommand %q not found", name)
	}
}

func TestRootCommand_Metadata(t *testing.T) {
	assert.Equal(t, "outreach-cli", rootCmd.Use)
	assert.NotEmpty(t, rootCmd.Short)
	assert.NotEmpty(t, rootCmd.Long)
}

func TestIngestCommand_Flags(t *testing.T) {
	flag := ingestCmd.Flags().Lookup("file")
	require.NotNil(t, flag, "ingest command should have --file flag")

	modeFlag := ingestCmd.Flags().Lookup("mode")
	require.NotNil(t, modeFlag, "ingest command should have --mode flag")
	assert.Equal(t, "contacts", modeFlag.DefValue)

	skipFlag := ingestCmd.Flags().Lookup("skip-rows")
	require.NotNil(t, skipFlag)
	assert.Equal(t, "1", skipFlag.DefValue)
}

func TestSendCommand_Flags(t *testing.T) {
	for _, flagName := range []string{"file", "message", "batch-size", "dry-run"} {
		flag := sendCmd.Flags().Lookup(flagName)
		assert.NotNil(t, flag, "send should have --%s flag", flagName)
	}
}

func TestServeCommand_Flags(t *testing.T) {
	flag := serveCmd.Flags().Lookup("port")
	require.NotNil(t, flag, "serve command should have --port flag")
	assert.Equal(t, "0", flag.DefValue)
}

func TestFeedbackCommand_HasSubcommands(t *testing.T) {
	cmds := feedbackCmd.Commands()
	names := make(map[string]bool)
	for _, c := range cmds {
		names[c.Name()] = true
	}
	assert.True(t, names["override"], "feedback should have subcommand override")
}

func TestDispatchConfigMerge(t *testing.T) {
	origCfg, origBatch := cfg, sendBatchSize
	t.Cleanup(func() { cfg, sendBatchSize = origCfg, origBatch })

	cfg = &config.Config{
		Dispatch: config.DispatchConfig{BatchSize: 5, BatchDelayMs: 2000},
	}

	sendBatchSize = 0
	dc := dispatchConfig()
	assert.Equal(t, 5, dc.BatchSize)
	assert.Equal(t, 2*time.Second, dc.BatchDelay)

	sendBatchSize = 3
	dc = dispatchConfig()
	assert.Equal(t, 3, dc.BatchSize)
}
