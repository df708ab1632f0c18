package schemas

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigSchema_ValidJSON(t *testing.T) {
	require.NotEmpty(t, Config)

	var schema map[string]any
	require.NoError(t, json.Unmarshal(Config, &schema))
	assert.Equal(t, "object", schema["type"])
	assert.Contains(t, schema, "properties")
}
