// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package openai

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"

	"github.com/poiesic/lattice/ai"
	"github.com/poiesic/lattice/ontology"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

// EntityExtractor implements ai.EntityExtractor using OpenAI-compatible chat APIs.
type EntityExtractor struct {
	client        llms.Model
	minConfidence float64
	logger        *slog.Logger
}

// candidateEntity is an internal type used for JSON unmarshaling.
// It matches the structure expected from the LLM.
type candidateEntity struct {
	Name       string         `json:"name"`
	Type       string         `json:"type"`
	Properties map[string]any `json:"properties"`
	Confidence float64        `json:"confidence"`
	SourceSpan string         `json:"source_span"`
}

// candidateRelationship mirrors the relationship objects in the response.
type candidateRelationship struct {
	Type       string         `json:"type"`
	SourceName string         `json:"source_name"`
	SourceType string         `json:"source_type"`
	TargetName string         `json:"target_name"`
	TargetType string         `json:"target_type"`
	Properties map[string]any `json:"properties"`
	Confidence float64        `json:"confidence"`
}

// extraction is the wrapper structure for the LLM's JSON response.
type extraction struct {
	Entities      []candidateEntity      `json:"entities"`
	Relationships []candidateRelationship `json:"relationships"`
}

// newEntityExtractor is an internal constructor that returns the concrete type.
// Used by Provider to manage the instance.
func newEntityExtractor(config *ai.Config) (*EntityExtractor, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	// Use "none" as token for local OpenAI-compatible services that don't require authentication
	client, err := openai.New(
		openai.WithBaseURL(config.ExtractorHost),
		openai.WithToken("none"),
		openai.WithModel(config.ExtractorModel),
	)
	if err != nil {
		return nil, err
	}

	return &EntityExtractor{
		client:        client,
		minConfidence: config.MinConfidence,
		logger:        slog.Default().With("component", "openai-extractor"),
	}, nil
}

// NewEntityExtractor creates a new entity extractor using the provided configuration.
//
// Returns ai.EntityExtractor interface to enforce abstraction.
func NewEntityExtractor(config *ai.Config) (ai.EntityExtractor, error) {
	return newEntityExtractor(config)
}

// Extract extracts candidate entities and relationships from text using an LLM.
// It applies confidence filtering and returns only candidates above the
// configured threshold.
func (e *EntityExtractor) Extract(ctx context.Context, text string, structure *ontology.Structure) (*ai.Extraction, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return &ai.Extraction{}, nil
	}

	systemPrompt := buildSystemPrompt(structure)
	content := []llms.MessageContent{
		{
			Role: llms.ChatMessageTypeSystem,
			Parts: []llms.ContentPart{
				llms.TextPart(systemPrompt),
			},
		},
		{
			Role: llms.ChatMessageTypeHuman,
			Parts: []llms.ContentPart{
				llms.TextPart(text),
			},
		},
	}

	// Try up to 3 times in case of malformed JSON
	var result extraction
	var lastErr error
	for attempt := 0; attempt < 3; attempt++ {
		response, err := e.client.GenerateContent(ctx, content, llms.WithTemperature(0.0), llms.WithJSONMode())
		if err != nil {
			e.logger.Error("failed to generate content", "attempt", attempt+1, "err", err)
			return nil, err
		}

		if len(response.Choices) < 1 {
			e.logger.Debug("no choices returned from model")
			return &ai.Extraction{}, nil
		}

		choice := response.Choices[0]

		// Strip markdown code fences if present
		responseText := strings.TrimSpace(choice.Content)
		responseText = strings.TrimPrefix(responseText, "```json")
		responseText = strings.TrimPrefix(responseText, "```")
		responseText = strings.TrimSuffix(responseText, "```")
		responseText = strings.TrimSpace(responseText)

		// Try to repair common JSON issues
		responseText = repairJSON(responseText)

		if err := json.Unmarshal([]byte(responseText), &result); err != nil {
			lastErr = err
			e.logger.Warn("error parsing extractor response",
				"attempt", attempt+1,
				"response", responseText,
				"err", err)
			continue
		}

		// Success
		lastErr = nil
		break
	}

	if lastErr != nil {
		e.logger.Error("failed to parse extractor response after retries", "err", lastErr)
		return nil, lastErr
	}

	// Filter by confidence and convert to ai types
	out := &ai.Extraction{
		Entities:      make([]ai.CandidateEntity, 0, len(result.Entities)),
		Relationships: make([]ai.CandidateRelationship, 0, len(result.Relationships)),
	}
	for _, c := range result.Entities {
		if c.Confidence < e.minConfidence {
			continue
		}
		out.Entities = append(out.Entities, ai.CandidateEntity{
			Name:       c.Name,
			Type:       c.Type,
			Properties: c.Properties,
			Confidence: c.Confidence,
			SourceSpan: c.SourceSpan,
		})
	}
	for _, c := range result.Relationships {
		if c.Confidence < e.minConfidence {
			continue
		}
		out.Relationships = append(out.Relationships, ai.CandidateRelationship{
			Type:       c.Type,
			SourceName: c.SourceName,
			SourceType: c.SourceType,
			TargetName: c.TargetName,
			TargetType: c.TargetType,
			Properties: c.Properties,
			Confidence: c.Confidence,
		})
	}

	e.logger.Debug("extracted candidates",
		"entities", len(result.Entities),
		"relationships", len(result.Relationships),
		"kept_entities", len(out.Entities),
		"kept_relationships", len(out.Relationships))

	return out, nil
}
