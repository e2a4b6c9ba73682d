package openai

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRepairJSON(t *testing.T) {
	t.Run("valid JSON passes through", func(t *testing.T) {
		input := `{"name": "Impeller", "type": "Component"}`
		assert.Equal(t, input, repairJSON(input))
	})

	t.Run("fixes missing opening quote after comma", func(t *testing.T) {
		input := `{"name": "Impeller", type": "Component"}`
		repaired := repairJSON(input)

		var out map[string]string
		require.NoError(t, json.Unmarshal([]byte(repaired), &out))
		assert.Equal(t, "Component", out["type"])
	})

	t.Run("fixes missing opening quote after brace", func(t *testing.T) {
		input := `{name": "Impeller"}`
		repaired := repairJSON(input)

		var out map[string]string
		require.NoError(t, json.Unmarshal([]byte(repaired), &out))
		assert.Equal(t, "Impeller", out["name"])
	})

	t.Run("leaves values alone", func(t *testing.T) {
		input := `{"detail": "a, b: c"}`
		assert.Equal(t, input, repairJSON(input))
	})

	t.Run("empty string", func(t *testing.T) {
		assert.Equal(t, "", repairJSON(""))
	})
}
