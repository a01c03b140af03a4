package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const smokeScenario = `
name: cli-smoke
description: one page view plus a custom event
start_page:
  url: "https://shop.example/"
  title: "Home"
steps:
  - track:
      type: product_viewed
      props:
        sku: TS-001
expect_events:
  - page_view
  - product_viewed
`

func writeScenario(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "scenario.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestSimulate_PassingScenario(t *testing.T) {
	path := writeScenario(t, smokeScenario)

	out, err := runCommand(t, "simulate", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Scenario: cli-smoke")
	assert.Contains(t, out, "page_view")
	assert.Contains(t, out, "product_viewed")
	assert.Contains(t, out, "PASS (2 events)")
}

func TestSimulate_FailingScenario(t *testing.T) {
	path := writeScenario(t, `
name: cli-mismatch
description: expects an event the pipeline never emits
start_page:
  url: "https://shop.example/"
steps: []
expect_events:
  - page_view
  - never_emitted
`)
	out, err := runCommand(t, "simulate", path)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "FAIL")
}

func TestSimulate_JSONOutput(t *testing.T) {
	path := writeScenario(t, smokeScenario)

	out, err := runCommand(t, "--format", "json", "simulate", path)
	require.NoError(t, err)

	var resp struct {
		Status string           `json:"status"`
		Data   SimulationResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.True(t, resp.Data.Passed)
	assert.Equal(t, []string{"page_view", "product_viewed"}, resp.Data.Events)
}

func TestSimulate_MissingScenarioIsCommandError(t *testing.T) {
	_, err := runCommand(t, "simulate", filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}
