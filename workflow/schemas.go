package workflow

import (
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

// Embedded JSON Schema documents for the three LLM-produced payloads.
// Provider JSON-mode is never trusted on its own (§9 "LLM JSON
// outputs"): every response is re-parsed and validated against one of
// these before the engine acts on it.
const semanticRoutingSchemaJSON = `{
  "type": "object",
  "required": ["detected_language", "is_chitchat", "refined_query"],
  "properties": {
    "detected_language": {"type": "string"},
    "is_chitchat": {"type": "boolean"},
    "refined_query": {"type": "string"},
    "summary_history": {"type": "string"}
  }
}`

const executionPlanSchemaJSON = `{
  "type": "object",
  "required": ["steps"],
  "properties": {
    "total_steps": {"type": "integer"},
    "steps": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["step_number", "tasks"],
        "properties": {
          "step_number": {"type": "integer"},
          "tasks": {
            "type": "array",
            "items": {
              "type": "object",
              "required": ["agent", "purpose"],
              "properties": {
                "agent": {"type": "string"},
                "agent_id": {"type": "string"},
                "purpose": {"type": "string"},
                "tools": {
                  "type": "array",
                  "items": {
                    "type": "object",
                    "required": ["tool", "message"],
                    "properties": {
                      "tool": {"type": "string"},
                      "message": {"type": "string"}
                    }
                  }
                },
                "queries": {"type": "array", "items": {"type": "string"}}
              }
            }
          }
        }
      }
    }
  }
}`

const conflictResolutionSchemaJSON = `{
  "type": "object",
  "required": ["final_answer"],
  "properties": {
    "final_answer": {"type": "string"},
    "winning_agents": {"type": "array", "items": {"type": "string"}},
    "conflict_level": {"type": "string"},
    "resolution_method": {"type": "string"},
    "resolution_reasoning": {"type": "string"},
    "confidence_score": {"type": "number"},
    "evidence_ranking": {"type": "object"},
    "combined_sources": {"type": "array"}
  }
}`

// compiledSchema lazily compiles and caches one schema by name.
type compiledSchema struct {
	name   string
	raw    string
	schema *jsonschema.Schema
}

func (c *compiledSchema) compile() (*jsonschema.Schema, error) {
	if c.schema != nil {
		return c.schema, nil
	}
	var doc any
	if err := json.Unmarshal([]byte(c.raw), &doc); err != nil {
		return nil, fmt.Errorf("unmarshal %s schema: %w", c.name, err)
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(c.name+".json", doc); err != nil {
		return nil, fmt.Errorf("add %s schema resource: %w", c.name, err)
	}
	schema, err := compiler.Compile(c.name + ".json")
	if err != nil {
		return nil, fmt.Errorf("compile %s schema: %w", c.name, err)
	}
	c.schema = schema
	return schema, nil
}

var (
	semanticRoutingSchema   = &compiledSchema{name: "semantic_routing", raw: semanticRoutingSchemaJSON}
	executionPlanSchema     = &compiledSchema{name: "execution_plan", raw: executionPlanSchemaJSON}
	conflictResolutionSchema = &compiledSchema{name: "conflict_resolution", raw: conflictResolutionSchemaJSON}
)

// validateAgainstSchema decodes a raw JSON payload and validates it
// against the given embedded schema. Unknown fields are ignored by the schemas above; missing
// required fields fail validation, matching §9's contract.
func validateAgainstSchema(cs *compiledSchema, payload []byte) error {
	var doc any
	if err := json.Unmarshal(payload, &doc); err != nil {
		return fmt.Errorf("unmarshal payload: %w", err)
	}
	schema, err := cs.compile()
	if err != nil {
		return err
	}
	if err := schema.Validate(doc); err != nil {
		return err
	}
	return nil
}

// ValidateSemanticRouting checks a raw LLM JSON response against the
// SemanticRouting schema.
func ValidateSemanticRouting(payload []byte) error {
	return validateAgainstSchema(semanticRoutingSchema, payload)
}

// ValidateExecutionPlan checks a raw LLM JSON response against the
// ExecutionPlan schema.
func ValidateExecutionPlan(payload []byte) error {
	return validateAgainstSchema(executionPlanSchema, payload)
}

// ValidateConflictResolution checks a raw LLM JSON response against
// the ConflictResolution schema.
func ValidateConflictResolution(payload []byte) error {
	return validateAgainstSchema(conflictResolutionSchema, payload)
}
