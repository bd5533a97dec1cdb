package reference

// Citation is a directed edge from a citing paper to a cited paper.
// Either endpoint may be missing from the papers table (a dangling edge).
type Citation struct {
	CitingID string `json:"source"`
	CitedID  string `json:"target"`
}

// CitationsOf expands a record's citation lists into directed edges.
// Papers in outCitations are cited by id; papers in inCitations cite id.
// Empty identifiers are dropped.
func CitationsOf(id string, inCitations, outCitations []string) []Citation {
	edges := make([]Citation, 0, len(inCitations)+len(outCitations))
	for _, citing := range inCitations {
		if citing == "" {
			continue
		}
		edges = append(edges, Citation{CitingID: citing, CitedID: id})
	}
	for _, cited := range outCitations {
		if cited == "" {
			continue
		}
		edges = append(edges, Citation{CitingID: id, CitedID: cited})
	}
	return edges
}
