package schema

import (
	"encoding/json"
	"testing"

	"github.com/sashabaranov/go-openai/jsonschema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pario-ai/typedchat/pkg/models"
)

type Recipe struct {
	Name        string   `json:"name" description:"dish name"`
	Ingredients []string `json:"ingredients"`
	Steps       []Step   `json:"steps"`
	PrepMinutes int      `json:"prep_minutes,omitempty"`
}

type Step struct {
	Order int    `json:"order"`
	Text  string `json:"text"`
}

func decodeSchema(t *testing.T, f models.ResponseFormat) map[string]any {
	t.Helper()
	require.Equal(t, models.FormatJSONSchema, f.Type)
	require.NotNil(t, f.JSONSchema)
	var m map[string]any
	require.NoError(t, json.Unmarshal(f.JSONSchema.Schema, &m))
	return m
}

func TestForStruct(t *testing.T) {
	f, err := For[Recipe]()
	require.NoError(t, err)
	assert.Equal(t, "Recipe", f.JSONSchema.Name)
	assert.True(t, f.JSONSchema.Strict)

	s := decodeSchema(t, f)
	assert.Equal(t, "object", s["type"])
	assert.Equal(t, false, s["additionalProperties"])
	// omitempty fields are still required in strict mode.
	assert.Equal(t, []any{"ingredients", "name", "prep_minutes", "steps"}, s["required"])

	props := s["properties"].(map[string]any)
	assert.Equal(t, "dish name", props["name"].(map[string]any)["description"])

	steps := props["steps"].(map[string]any)
	assert.Equal(t, "array", steps["type"])
	item := steps["items"].(map[string]any)
	assert.Equal(t, false, item["additionalProperties"])
	assert.Equal(t, []any{"order", "text"}, item["required"])
}

func TestForIsStable(t *testing.T) {
	a, err := For[Recipe]()
	require.NoError(t, err)
	b, err := For[Recipe]()
	require.NoError(t, err)
	assert.JSONEq(t, string(a.JSONSchema.Schema), string(b.JSONSchema.Schema))
}

func TestNameOf(t *testing.T) {
	assert.Equal(t, "Recipe", NameOf[Recipe]())
	assert.Equal(t, "Recipe", NameOf[*Recipe]())
	assert.Equal(t, DefaultName, NameOf[struct{ A int }]())
	assert.Equal(t, DefaultName, NameOf[[]Recipe]())
}

func TestStrictDoesNotMutateInput(t *testing.T) {
	in := jsonschema.Definition{
		Type: jsonschema.Object,
		Properties: map[string]jsonschema.Definition{
			"inner": {
				Type:       jsonschema.Object,
				Properties: map[string]jsonschema.Definition{"x": {Type: jsonschema.Integer}},
			},
		},
	}
	out := Strict(in)

	assert.Nil(t, in.Required)
	assert.Nil(t, in.Properties["inner"].Required)
	assert.Equal(t, []string{"inner"}, out.Required)
	assert.Equal(t, []string{"x"}, out.Properties["inner"].Required)
	assert.Equal(t, false, out.Properties["inner"].AdditionalProperties)
}

func TestUnconstrainedFormats(t *testing.T) {
	assert.Equal(t, models.FormatJSONObject, JSONObject().Type)
	assert.Nil(t, JSONObject().JSONSchema)
	assert.Equal(t, models.FormatText, Text().Type)
}
