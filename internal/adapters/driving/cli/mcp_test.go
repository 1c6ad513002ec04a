package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMCPCmd_Structure(t *testing.T) {
	assert.Equal(t, "mcp", mcpCmd.Use)

	var serve bool
	for _, c := range mcpCmd.Commands() {
		if c.Name() == "serve" {
			serve = true
		}
	}
	assert.True(t, serve)

	port := mcpServeCmd.Flags().Lookup("port")
	if assert.NotNil(t, port) {
		assert.Equal(t, "p", port.Shorthand)
		assert.Equal(t, "0", port.DefValue)
	}
}

func TestMCPServe_MissingSessions(t *testing.T) {
	setupTestServices(t, &Services{Polls: &mockPolls{}})

	err := execute(t, "mcp", "serve")

	assert.Error(t, err)
}

func TestMCPServe_NotConfigured(t *testing.T) {
	setupTestServices(t, nil)

	assert.ErrorIs(t, execute(t, "mcp", "serve"), errNotConfigured)
}
