package cartridge

import (
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// ParameterValidator validates a cartridge action's parameters against a
// compiled JSON Schema. The core never interprets the schema itself — it
// only runs it and treats the cartridge's declared parameter shape as
// opaque beyond pass/fail.
type ParameterValidator struct {
	schemas map[string]*jsonschema.Schema
}

// NewParameterValidator compiles one schema per action type from raw JSON
// Schema documents.
func NewParameterValidator(schemasByActionType map[string][]byte) (*ParameterValidator, error) {
	compiler := jsonschema.NewCompiler()
	compiled := make(map[string]*jsonschema.Schema, len(schemasByActionType))

	for actionType, raw := range schemasByActionType {
		url := "mem://" + actionType + ".json"
		if err := compiler.AddResource(url, jsonschemaReader(raw)); err != nil {
			return nil, fmt.Errorf("cartridge: add schema for %s: %w", actionType, err)
		}
		schema, err := compiler.Compile(url)
		if err != nil {
			return nil, fmt.Errorf("cartridge: compile schema for %s: %w", actionType, err)
		}
		compiled[actionType] = schema
	}

	return &ParameterValidator{schemas: compiled}, nil
}

// Validate checks parameters against the schema registered for actionType.
// An action type with no registered schema passes validation unconditionally
// (the cartridge chose not to constrain it).
func (v *ParameterValidator) Validate(actionType string, parameters map[string]interface{}) error {
	schema, ok := v.schemas[actionType]
	if !ok {
		return nil
	}
	if err := schema.ValidateInterface(parameters); err != nil {
		return fmt.Errorf("cartridge: parameters for %s failed validation: %w", actionType, err)
	}
	return nil
}
