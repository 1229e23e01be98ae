package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "properties": {
    "interval": {"type": "string"},
    "build": {
      "type": "object",
      "properties": {"commands": {"type": "array", "items": {"type": "string"}}},
      "additionalProperties": false
    }
  }
}`

func TestValidator(t *testing.T) {
	v, err := NewValidator("test.json", []byte(testSchema))
	require.NoError(t, err)

	t.Run("valid map", func(t *testing.T) {
		doc := map[string]interface{}{
			"interval": "30s",
			"build":    map[string]interface{}{"commands": []string{"make"}},
		}
		assert.NoError(t, v.Validate(doc))
	})

	t.Run("valid struct", func(t *testing.T) {
		type doc struct {
			Interval string `json:"interval"`
		}
		assert.NoError(t, v.Validate(doc{Interval: "1m"}))
	})

	t.Run("wrong type", func(t *testing.T) {
		err := v.Validate(map[string]interface{}{"interval": 30})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "/interval")
	})

	t.Run("unknown nested key", func(t *testing.T) {
		err := v.Validate(map[string]interface{}{
			"build": map[string]interface{}{"script": "make"},
		})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "/build")
	})
}

func TestNewValidatorRejectsBadSchema(t *testing.T) {
	_, err := NewValidator("bad.json", []byte(`{"type": 12}`))
	assert.Error(t, err)
}

func TestCompose(t *testing.T) {
	ext := []byte(`{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "properties": {"level": {"type": "string", "enum": ["debug", "info"]}},
  "additionalProperties": false
}`)

	composed, err := Compose([]byte(testSchema), map[string][]byte{"logging": ext})
	require.NoError(t, err)

	v, err := NewValidator("composed.json", composed)
	require.NoError(t, err)

	assert.NoError(t, v.Validate(map[string]interface{}{"logging": map[string]interface{}{"level": "debug"}}))
	assert.NoError(t, v.Validate(map[string]interface{}{"other_tool": map[string]interface{}{"x": 1}}))
	assert.Error(t, v.Validate(map[string]interface{}{"logging": map[string]interface{}{"level": "loud"}}))
}

func TestComposeRejectsCollision(t *testing.T) {
	_, err := Compose([]byte(testSchema), map[string][]byte{"build": []byte(`{}`)})
	assert.Error(t, err)
}
