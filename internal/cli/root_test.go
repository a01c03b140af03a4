package cli

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/beacon-analytics/beacon-go/internal/wire"
)

func TestRoot_RejectsInvalidFormat(t *testing.T) {
	_, err := runCommand(t, "--format", "xml", "version")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid format")
}

func TestVersion_Text(t *testing.T) {
	out, err := runCommand(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, wire.Version)
}

func TestVersion_JSON(t *testing.T) {
	out, err := runCommand(t, "--format", "json", "version")
	require.NoError(t, err)

	var resp struct {
		Status string            `json:"status"`
		Data   map[string]string `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, wire.Version, resp.Data["version"])
}
