package config

import (
	"encoding/json"
	"sync"

	"github.com/grovetools/repowatch/schema"
	"github.com/invopop/jsonschema"
)

// SchemaID is the resource name the generated schema is compiled under.
const SchemaID = "repowatch.schema.json"

// GenerateSchema generates the JSON Schema for repowatch.yml. Known sections
// are closed; unknown top-level keys are left open for extensions such as
// "logging".
func GenerateSchema() ([]byte, error) {
	r := &jsonschema.Reflector{
		AllowAdditionalProperties:  false,
		ExpandedStruct:             true,
		FieldNameTag:               "yaml",
		RequiredFromJSONSchemaTags: true,
	}

	s := r.Reflect(&Config{})
	s.Title = "repowatch configuration"
	s.Description = "Repository, polling and build/test script settings for repowatch."
	s.Version = "http://json-schema.org/draft-07/schema#"
	s.AdditionalProperties = nil

	return json.MarshalIndent(s, "", "  ")
}

var (
	schemaOnce      sync.Once
	schemaValidator *schema.Validator
	schemaErr       error
)

// NewSchemaValidator returns the validator for the generated schema. The
// schema is compiled once per process.
func NewSchemaValidator() (*schema.Validator, error) {
	schemaOnce.Do(func() {
		data, err := GenerateSchema()
		if err != nil {
			schemaErr = err
			return
		}
		schemaValidator, schemaErr = schema.NewValidator(SchemaID, data)
	})
	return schemaValidator, schemaErr
}
