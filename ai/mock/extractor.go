package mock

import (
	"context"
	"strings"

	"github.com/poiesic/lattice/ai"
	"github.com/poiesic/lattice/ontology"
)

// MockExtractor is a test double for ai.EntityExtractor.
// It allows custom behavior injection via function fields.
type MockExtractor struct {
	// ExtractFunc is called by Extract if set.
	// If nil, uses default simple word extraction.
	ExtractFunc func(ctx context.Context, text string, structure *ontology.Structure) (*ai.Extraction, error)

	callCount int
}

// NewMockExtractor creates a mock extractor with default behavior.
// Note: Returns concrete type to allow test assertions via GetMockExtractor().
func NewMockExtractor() *MockExtractor {
	return &MockExtractor{}
}

// Extract derives simple mock candidates from the input text.
// Default behavior: each line of the form "name|type" becomes a candidate
// entity of that type; other lines contribute word-based candidates of
// the first declared entity type.
func (m *MockExtractor) Extract(ctx context.Context, text string, structure *ontology.Structure) (*ai.Extraction, error) {
	m.callCount++

	if m.ExtractFunc != nil {
		return m.ExtractFunc(ctx, text, structure)
	}

	out := &ai.Extraction{}

	fallbackType := ""
	if names := structure.EntityTypeNames(); len(names) > 0 {
		fallbackType = names[0]
	}

	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		if name, entityType, ok := strings.Cut(line, "|"); ok {
			out.Entities = append(out.Entities, ai.CandidateEntity{
				Name:       strings.TrimSpace(name),
				Type:       strings.TrimSpace(entityType),
				Confidence: 0.9,
				SourceSpan: line,
			})
			continue
		}

		words := strings.Fields(strings.ToLower(line))
		for i, word := range words {
			if i >= 3 { // Limit to 3 candidates per line
				break
			}
			word = strings.Trim(word, ".,!?;:\"'()[]{}")
			if word == "" || fallbackType == "" {
				continue
			}
			out.Entities = append(out.Entities, ai.CandidateEntity{
				Name:       word,
				Type:       fallbackType,
				Confidence: 0.6,
				SourceSpan: line,
			})
		}
	}

	return out, nil
}

// CallCount returns the number of times Extract was called.
func (m *MockExtractor) CallCount() int {
	return m.callCount
}

// Reset clears the call count and custom functions.
func (m *MockExtractor) Reset() {
	m.callCount = 0
	m.ExtractFunc = nil
}
