package openai

import (
	"fmt"
	"strings"

	"github.com/poiesic/lattice/ontology"
)

const extractionResponseSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "properties": {
    "entities": {
      "type": "array",
      "items": {
        "type": "object",
        "properties": {
          "name": {"type": "string"},
          "type": {"type": "string"},
          "properties": {"type": "object"},
          "confidence": {"type": "number", "minimum": 0, "maximum": 1},
          "source_span": {"type": "string"}
        },
        "required": ["name", "type", "confidence"],
        "additionalProperties": false
      }
    },
    "relationships": {
      "type": "array",
      "items": {
        "type": "object",
        "properties": {
          "type": {"type": "string"},
          "source_name": {"type": "string"},
          "source_type": {"type": "string"},
          "target_name": {"type": "string"},
          "target_type": {"type": "string"},
          "properties": {"type": "object"},
          "confidence": {"type": "number", "minimum": 0, "maximum": 1}
        },
        "required": ["type", "source_name", "target_name", "confidence"],
        "additionalProperties": false
      }
    }
  },
  "required": ["entities", "relationships"],
  "additionalProperties": false
}`

const extractionPromptTemplate = `Extract entities and relationships from the given engineering document text and return them as JSON.

Output ONLY valid JSON which complies with the schema given below. Do not include any preamble, explanation,
greeting, or acknowledgment. Start your response directly with the opening brace { and end with the closing
brace }. Your output must exactly follow this schema:

%s

The ontology below defines the allowed entity types (with their properties) and relationship types
(with their allowed source and target entity types). Use ONLY these types.

Entity types:
%s

Relationship types:
%s

Rules:
- Entity names are taken verbatim from the text; do not invent entities that are not mentioned or clearly implied.
- The type field of every entity and relationship must match one of the ontology names exactly, including case.
- Fill entity properties only with values stated in the text, keyed by the property names the ontology declares for that type.
- Confidence is a number from 0 (guess) to 1 (explicitly stated). Rate relationships by how directly the text supports them.
- source_span is the shortest text fragment that supports the entity.
- Relationships reference entities by name and type; both endpoints should also appear in the entities list.
- If nothing can be extracted, return "entities": [] and "relationships": [].
- The JSON must parse without errors; no trailing commas, no extra keys, and no extraneous text outside the object.

Example:
Input: "The main girder shall be fabricated from S355 steel in accordance with EN 1993-1-1."
Output:
{
  "entities": [
    {"name":"main girder","type":"Component","properties":{},"confidence":0.95,"source_span":"The main girder"},
    {"name":"S355 steel","type":"Material","properties":{"grade":"S355"},"confidence":0.9,"source_span":"S355 steel"},
    {"name":"EN 1993-1-1","type":"Standard","properties":{"code":"EN 1993-1-1"},"confidence":0.9,"source_span":"EN 1993-1-1"}
  ],
  "relationships": [
    {"type":"MADE_OF","source_name":"main girder","source_type":"Component","target_name":"S355 steel","target_type":"Material","confidence":0.9},
    {"type":"GOVERNED_BY","source_name":"main girder","source_type":"Component","target_name":"EN 1993-1-1","target_type":"Standard","confidence":0.85}
  ]
}`

// buildSystemPrompt creates the system prompt with the ontology embedded.
func buildSystemPrompt(structure *ontology.Structure) string {
	return fmt.Sprintf(extractionPromptTemplate,
		extractionResponseSchema,
		describeEntityTypes(structure),
		describeRelationshipTypes(structure))
}

// describeEntityTypes renders the ontology's entity types one per line,
// e.g. "- Component (properties: name, function, location)".
func describeEntityTypes(structure *ontology.Structure) string {
	var b strings.Builder
	for _, name := range structure.EntityTypeNames() {
		t := structure.EntityTypes[name]
		fmt.Fprintf(&b, "- %s (properties: %s)", t.Name, strings.Join(t.Properties, ", "))
		if t.Description != "" {
			fmt.Fprintf(&b, ": %s", t.Description)
		}
		b.WriteString("\n")
	}
	if b.Len() == 0 {
		return "(none declared)"
	}
	return strings.TrimRight(b.String(), "\n")
}

// describeRelationshipTypes renders the relationship types one per line,
// e.g. "- MADE_OF (from: Component; to: Material)".
func describeRelationshipTypes(structure *ontology.Structure) string {
	var b strings.Builder
	for _, name := range structure.RelationshipTypeNames() {
		t := structure.RelationshipTypes[name]
		from := strings.Join(t.FromTypes, ", ")
		if from == "" {
			from = "any"
		}
		to := strings.Join(t.ToTypes, ", ")
		if to == "" {
			to = "any"
		}
		fmt.Fprintf(&b, "- %s (from: %s; to: %s)", t.Name, from, to)
		if t.Description != "" {
			fmt.Fprintf(&b, ": %s", t.Description)
		}
		b.WriteString("\n")
	}
	if b.Len() == 0 {
		return "(none declared)"
	}
	return strings.TrimRight(b.String(), "\n")
}
