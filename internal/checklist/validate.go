// Package checklist holds the core checklist logic: dataset validation,
// merging saved progress into base data, computed running totals, and
// budget aggregation. Everything here is pure; persistence and rendering
// live elsewhere.
package checklist

import (
	"encoding/json"

	jsonschema "github.com/santhosh-tekuri/jsonschema/v5"
)

// Base datasets and saved snapshots are gated by JSON Schema. Sub-steps and
// money/time fields are deliberately not constrained in the dataset schema:
// older data files carry them in slightly different shapes and the merge
// layer defaults anything unusable.
const datasetSchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "array",
  "items": {
    "type": "object",
    "required": ["group_title", "steps"],
    "properties": {
      "group_title": {"type": "string"},
      "steps": {
        "type": "array",
        "items": {
          "type": "object",
          "required": ["step_title", "step_instruction", "items"],
          "properties": {
            "step_number": {"type": "integer", "minimum": 1},
            "step_title": {"type": "string"},
            "step_instruction": {"type": "string"},
            "items": {"type": "array", "items": {"type": "string"}},
            "time_taken": {"type": "number", "minimum": 0}
          }
        }
      }
    }
  }
}`

const snapshotSchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "array",
  "items": {
    "type": "object",
    "required": ["steps"],
    "properties": {
      "group_title": {"type": "string"},
      "steps": {
        "type": "array",
        "items": {
          "type": "object",
          "required": ["step_number"],
          "properties": {
            "step_number": {"type": "integer"},
            "completed": {"type": "boolean"},
            "notes": {"type": "string"},
            "required_items_completed": {"type": "array", "items": {"type": "boolean"}},
            "sub_steps": {
              "type": "array",
              "items": {
                "type": "object",
                "required": ["id"],
                "properties": {
                  "id": {"type": "string"},
                  "completed": {"type": "boolean"}
                }
              }
            }
          }
        }
      }
    }
  }
}`

var (
	compiledDatasetSchema  = jsonschema.MustCompileString("dataset.schema.json", datasetSchema)
	compiledSnapshotSchema = jsonschema.MustCompileString("snapshot.schema.json", snapshotSchema)
)

// Valid reports whether a decoded JSON value is an acceptable base dataset:
// a sequence of group records with a string title and step records carrying
// a title, an instruction, and an items list. It never fails louder than
// returning false.
func Valid(v any) bool {
	return compiledDatasetSchema.Validate(v) == nil
}

// ValidBytes decodes raw JSON and applies Valid. Undecodable input is
// invalid input, not an error.
func ValidBytes(raw []byte) bool {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return false
	}
	return Valid(v)
}

// ValidSnapshot reports whether a decoded JSON value is an acceptable saved
// progress snapshot. A rejected snapshot is discarded by the caller and the
// session falls back to defaults; it never aborts startup.
func ValidSnapshot(v any) bool {
	return compiledSnapshotSchema.Validate(v) == nil
}

// ValidSnapshotBytes decodes raw JSON and applies ValidSnapshot.
func ValidSnapshotBytes(raw []byte) bool {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return false
	}
	return ValidSnapshot(v)
}
