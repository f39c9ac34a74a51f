// Package schema derives structured-output response formats from Go types.
package schema

import (
	"encoding/json"
	"fmt"
	"reflect"
	"slices"

	"github.com/sashabaranov/go-openai/jsonschema"

	"github.com/pario-ai/typedchat/pkg/models"
)

// DefaultName is used when the target type has no name (anonymous structs, slices).
const DefaultName = "response"

// For returns a strict json_schema response format describing T.
func For[T any]() (models.ResponseFormat, error) {
	var zero T
	def, err := jsonschema.GenerateSchemaForType(zero)
	if err != nil {
		return models.ResponseFormat{}, fmt.Errorf("generate schema: %w", err)
	}
	strict := Strict(*def)

	raw, err := json.Marshal(strict)
	if err != nil {
		return models.ResponseFormat{}, fmt.Errorf("marshal schema: %w", err)
	}
	return models.ResponseFormat{
		Type: models.FormatJSONSchema,
		JSONSchema: &models.JSONSchemaFormat{
			Name:   NameOf[T](),
			Strict: true,
			Schema: raw,
		},
	}, nil
}

// NameOf returns the Go type name of T, or DefaultName if it has none.
func NameOf[T any]() string {
	t := reflect.TypeFor[T]()
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Name() == "" {
		return DefaultName
	}
	return t.Name()
}

// Strict rewrites def the way strict structured outputs require: every object
// forbids additional properties and lists all of its properties as required.
// The input is not modified.
func Strict(def jsonschema.Definition) jsonschema.Definition {
	if def.Type == jsonschema.Object {
		def.AdditionalProperties = false
		props := make(map[string]jsonschema.Definition, len(def.Properties))
		required := make([]string, 0, len(def.Properties))
		for name, p := range def.Properties {
			props[name] = Strict(p)
			required = append(required, name)
		}
		slices.Sort(required)
		def.Properties = props
		def.Required = required
	}
	if def.Items != nil {
		items := Strict(*def.Items)
		def.Items = &items
	}
	return def
}

// JSONObject asks for any JSON object.
func JSONObject() models.ResponseFormat {
	return models.ResponseFormat{Type: models.FormatJSONObject}
}

// Text leaves the output unconstrained.
func Text() models.ResponseFormat {
	return models.ResponseFormat{Type: models.FormatText}
}
