package flow

import (
	"bytes"
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

// exerciseSchemaJSON constrains the exercise definitions the backend
// attaches to sections and legacy lessons. The engine never interprets the
// payload beyond this shape check; rendering belongs to the host UI.
const exerciseSchemaJSON = `{
	"type": "object",
	"properties": {
		"type": {
			"type": "string",
			"enum": ["multiple-choice", "fill-in", "true-false", "match"]
		},
		"prompt": {"type": "string", "minLength": 1},
		"choices": {
			"type": "array",
			"items": {"type": "string"}
		},
		"answer": {"type": ["string", "integer", "boolean"]},
		"explanation": {"type": "string"}
	},
	"required": ["type", "prompt", "answer"],
	"additionalProperties": true
}`

var (
	exerciseSchemaOnce sync.Once
	exerciseSchema     *jsonschema.Schema
	exerciseSchemaErr  error
)

func compiledExerciseSchema() (*jsonschema.Schema, error) {
	exerciseSchemaOnce.Do(func() {
		doc, err := jsonschema.UnmarshalJSON(strings.NewReader(exerciseSchemaJSON))
		if err != nil {
			exerciseSchemaErr = fmt.Errorf("parse exercise schema: %w", err)
			return
		}
		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource("exercise.json", doc); err != nil {
			exerciseSchemaErr = fmt.Errorf("add exercise schema: %w", err)
			return
		}
		exerciseSchema, exerciseSchemaErr = compiler.Compile("exercise.json")
	})
	return exerciseSchema, exerciseSchemaErr
}

// ValidateExercise checks a raw exercise definition against the schema.
// Returns nil when the payload is well-formed.
func ValidateExercise(raw []byte) error {
	schema, err := compiledExerciseSchema()
	if err != nil {
		return err
	}

	inst, err := jsonschema.UnmarshalJSON(bytes.NewReader(raw))
	if err != nil {
		return fmt.Errorf("invalid JSON: %w", err)
	}
	if err := schema.Validate(inst); err != nil {
		return fmt.Errorf("schema validation failed: %w", err)
	}
	return nil
}
