package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeScenarioFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "scenario.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadScenario_Valid(t *testing.T) {
	path := writeScenarioFile(t, `
name: smoke
description: loads a page and tracks one event
start_page:
  url: "https://shop.example/"
steps:
  - track:
      type: custom
expect_events: [page_view, custom]
`)
	scenario, err := LoadScenario(path)
	require.NoError(t, err)
	assert.Equal(t, "smoke", scenario.Name)
	require.Len(t, scenario.Steps, 1)
	assert.Equal(t, "custom", scenario.Steps[0].Track.Type)
}

func TestLoadScenario_RejectsUnknownFields(t *testing.T) {
	path := writeScenarioFile(t, `
name: typo
description: misspelled key
start_page:
  url: "https://shop.example/"
expectevents: [page_view]
`)
	_, err := LoadScenario(path)
	assert.Error(t, err)
}

func TestLoadScenario_RequiredFields(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"missing name", "description: d\nstart_page:\n  url: u\nexpect_events: [a]\n"},
		{"missing description", "name: n\nstart_page:\n  url: u\nexpect_events: [a]\n"},
		{"missing start page", "name: n\ndescription: d\nexpect_events: [a]\n"},
		{"missing expectations", "name: n\ndescription: d\nstart_page:\n  url: u\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadScenario(writeScenarioFile(t, tt.content))
			assert.Error(t, err)
		})
	}
}

func TestLoadScenario_RejectsMultiActionStep(t *testing.T) {
	path := writeScenarioFile(t, `
name: overloaded
description: one step doing two things
start_page:
  url: "https://shop.example/"
steps:
  - field: email
    unload: true
expect_events: [page_view]
`)
	_, err := LoadScenario(path)
	assert.Error(t, err)
}

func TestLoadScenario_MissingFile(t *testing.T) {
	_, err := LoadScenario(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}
