package corpus

import "sort"

// Corpus is an ordered collection of documents.
type Corpus struct {
	docs []Document
}

// New builds a corpus from documents, ordered by group, year, session and id.
// Group codes are stored in canonical form.
func New(docs []Document) *Corpus {
	out := make([]Document, len(docs))
	copy(out, docs)
	for i := range out {
		out[i].Group = CanonicalGroup(out[i].Group)
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Group != b.Group {
			return a.Group < b.Group
		}
		if a.Year != b.Year {
			return a.Year < b.Year
		}
		if a.Session != b.Session {
			return a.Session < b.Session
		}
		return a.ID < b.ID
	})
	return &Corpus{docs: out}
}

// Len returns the number of documents.
func (c *Corpus) Len() int { return len(c.docs) }

// Docs returns a copy of the documents.
func (c *Corpus) Docs() []Document {
	out := make([]Document, len(c.docs))
	copy(out, c.docs)
	return out
}

// Groups returns the distinct group identifiers in corpus order.
func (c *Corpus) Groups() []string {
	var groups []string
	seen := make(map[string]struct{})
	for _, d := range c.docs {
		if _, ok := seen[d.Group]; ok {
			continue
		}
		seen[d.Group] = struct{}{}
		groups = append(groups, d.Group)
	}
	return groups
}

// ByGroup returns the documents of one group.
func (c *Corpus) ByGroup(group string) []Document {
	group = CanonicalGroup(group)
	var out []Document
	for _, d := range c.docs {
		if d.Group == group {
			out = append(out, d)
		}
	}
	return out
}

// Filter returns a new corpus holding only the documents that match f.
func (c *Corpus) Filter(f Filter) *Corpus {
	var out []Document
	for _, d := range c.docs {
		if f.Match(d) {
			out = append(out, d)
		}
	}
	return &Corpus{docs: out}
}
