package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "beacon.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func runCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := NewRootCommand()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestValidate_ValidConfig(t *testing.T) {
	path := writeConfig(t, `
api_endpoint: "https://collect.example.com/events"
project_id: shop-123
platform: shopify
batch_size: 20
`)
	out, err := runCommand(t, "validate", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Configuration is valid")
}

func TestValidate_MissingRequiredField(t *testing.T) {
	path := writeConfig(t, `
api_endpoint: "https://collect.example.com/events"
`)
	out, err := runCommand(t, "validate", path)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "project_id")
}

func TestValidate_UnknownFieldRejected(t *testing.T) {
	path := writeConfig(t, `
api_endpoint: "https://collect.example.com/events"
project_id: shop-123
projectid: duplicate-typo
`)
	_, err := runCommand(t, "validate", path)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
}

func TestValidate_BadPlatformAndRange(t *testing.T) {
	path := writeConfig(t, `
api_endpoint: "https://collect.example.com/events"
project_id: shop-123
platform: magento
batch_size: 0
`)
	_, err := runCommand(t, "validate", path)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
}

func TestValidate_NonHTTPEndpointRejected(t *testing.T) {
	path := writeConfig(t, `
api_endpoint: "ftp://collect.example.com/events"
project_id: shop-123
`)
	_, err := runCommand(t, "validate", path)
	require.Error(t, err)
}

func TestValidate_MissingFileIsCommandError(t *testing.T) {
	_, err := runCommand(t, "validate", filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestValidate_JSONOutput(t *testing.T) {
	path := writeConfig(t, `
api_endpoint: "https://collect.example.com/events"
project_id: shop-123
`)
	out, err := runCommand(t, "--format", "json", "validate", path)
	require.NoError(t, err)

	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
}
