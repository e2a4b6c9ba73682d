package core

import (
	"testing"
)

func TestIDFromContent(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{
			name:    "same content produces same ID",
			content: "test content",
		},
		{
			name:    "empty string",
			content: "",
		},
		{
			name:    "natural key content",
			content: "(Component,main girder)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id1 := IDFromContent(tt.content)
			id2 := IDFromContent(tt.content)

			if id1 != id2 {
				t.Errorf("IDFromContent() produced different IDs for same content: %d vs %d", id1, id2)
			}
		})
	}
}

func TestIDFromContent_Different(t *testing.T) {
	id1 := IDFromContent("(Component,girder)")
	id2 := IDFromContent("(Material,girder)")

	if id1 == id2 {
		t.Errorf("IDFromContent() produced same ID for different content")
	}
}

func TestNaturalKey(t *testing.T) {
	tests := []struct {
		name       string
		entityType string
		entityName string
		want       string
	}{
		{
			name:       "lowercase passthrough",
			entityType: "Component",
			entityName: "girder",
			want:       "(Component,girder)",
		},
		{
			name:       "mixed case is normalized",
			entityType: "Component",
			entityName: "Main Girder",
			want:       "(Component,main girder)",
		},
		{
			name:       "surrounding whitespace is trimmed",
			entityType: "Material",
			entityName: "  S355 Steel ",
			want:       "(Material,s355 steel)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NaturalKey(tt.entityType, tt.entityName)
			if got != tt.want {
				t.Errorf("NaturalKey() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestEntity_Key_MatchesNaturalKey(t *testing.T) {
	e := Entity{Type: "Component", Name: "Main Girder"}
	if e.Key() != NaturalKey("Component", "main girder") {
		t.Errorf("Entity.Key() = %q does not match normalized natural key", e.Key())
	}
}

func TestRelationshipKey(t *testing.T) {
	r := Relationship{Type: "MADE_OF", SourceId: 12, TargetId: 34}
	want := "(MADE_OF,12,34)"
	if r.Key() != want {
		t.Errorf("Relationship.Key() = %q, want %q", r.Key(), want)
	}
	if RelationshipKey("MADE_OF", 12, 34) != want {
		t.Errorf("RelationshipKey() = %q, want %q", RelationshipKey("MADE_OF", 12, 34), want)
	}
}

func TestJobStatus_Terminal(t *testing.T) {
	terminal := []JobStatus{JobStatusCompleted, JobStatusFailed, JobStatusPartialSuccess, JobStatusCancelled}
	for _, s := range terminal {
		if !s.Terminal() {
			t.Errorf("expected %s to be terminal", s)
		}
	}

	nonTerminal := []JobStatus{JobStatusPending, JobStatusRunning}
	for _, s := range nonTerminal {
		if s.Terminal() {
			t.Errorf("expected %s to be non-terminal", s)
		}
	}
}
