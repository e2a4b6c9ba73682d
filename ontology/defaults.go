package ontology

// DefaultStructure returns the baseline engineering ontology installed
// when a fresh database is opened. It covers the entity and relationship
// types that come up in structural and mechanical engineering documents;
// administrators extend it through the registry at runtime.
func DefaultStructure() *Structure {
	s := NewStructure()

	entityTypes := []*EntityType{
		{
			Name:        "Component",
			Properties:  []string{"name", "function", "location", "quantity"},
			Description: "A physical part or assembly of the engineered system",
		},
		{
			Name:        "Material",
			Properties:  []string{"name", "grade", "density", "yield_strength"},
			Description: "A construction material a component is made of",
		},
		{
			Name:        "Standard",
			Properties:  []string{"name", "code", "edition"},
			Description: "A norm or standard governing design or materials",
		},
		{
			Name:        "Requirement",
			Properties:  []string{"name", "value", "unit", "tolerance"},
			Description: "A quantified design requirement or constraint",
		},
		{
			Name:        "System",
			Properties:  []string{"name", "discipline"},
			Description: "A functional grouping of components",
		},
		{
			Name:        "Document",
			Properties:  []string{"name", "revision", "author"},
			Description: "A source document referenced by other entities",
		},
	}
	for _, t := range entityTypes {
		s.EntityTypes[t.Name] = t
	}

	relationshipTypes := []*RelationshipType{
		{
			Name:        "MADE_OF",
			FromTypes:   []string{"Component"},
			ToTypes:     []string{"Material"},
			Description: "Component is made of a material",
		},
		{
			Name:        "PART_OF",
			FromTypes:   []string{"Component"},
			ToTypes:     []string{"Component", "System"},
			Description: "Component belongs to a larger component or system",
		},
		{
			Name:        "GOVERNED_BY",
			FromTypes:   []string{"Component", "Material", "System"},
			ToTypes:     []string{"Standard"},
			Description: "Design or material is governed by a standard",
		},
		{
			Name:        "SATISFIES",
			FromTypes:   []string{"Component", "System"},
			ToTypes:     []string{"Requirement"},
			Description: "Component or system satisfies a requirement",
		},
		{
			Name:        "REFERENCES",
			FromTypes:   []string{},
			ToTypes:     []string{"Document", "Standard"},
			Description: "Any entity references a document or standard",
		},
	}
	for _, t := range relationshipTypes {
		s.RelationshipTypes[t.Name] = t
	}

	return s
}
