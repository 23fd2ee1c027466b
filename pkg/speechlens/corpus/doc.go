package corpus

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/cognicore/speechlens/pkg/speechlens/internalerr"
)

// FieldDelimiter separates the positional fields of a document filename.
const FieldDelimiter = "_"

// Document is one speech. Values are never mutated after loading.
type Document struct {
	ID      string
	Group   string
	Session int
	Year    int
	Text    string
	Path    string
}

// Meta is the positional information encoded in a document filename.
type Meta struct {
	ID      string
	Group   string
	Session int
	Year    int
}

// ParseFilename derives document metadata from a name such as
// "USA_56_2001.txt" or "USA_56_2001_01.txt". The extension and a trailing
// two-digit part suffix are dropped before the fields are read positionally
// as (group, session, year).
func ParseFilename(name string) (Meta, error) {
	base := filepath.Base(name)
	id := strings.TrimSuffix(base, filepath.Ext(base))

	fields := strings.Split(id, FieldDelimiter)
	if len(fields) == 4 && isTwoDigit(fields[3]) {
		fields = fields[:3]
		id = strings.Join(fields, FieldDelimiter)
	}
	if len(fields) != 3 {
		return Meta{}, fmt.Errorf("%w: filename %q: want group%ssession%syear", internalerr.ErrLoad, base, FieldDelimiter, FieldDelimiter)
	}

	group := CanonicalGroup(fields[0])
	if group == "" {
		return Meta{}, fmt.Errorf("%w: filename %q: empty group", internalerr.ErrLoad, base)
	}
	session, err := strconv.Atoi(fields[1])
	if err != nil {
		return Meta{}, fmt.Errorf("%w: filename %q: session %q: %v", internalerr.ErrLoad, base, fields[1], err)
	}
	year, err := strconv.Atoi(fields[2])
	if err != nil {
		return Meta{}, fmt.Errorf("%w: filename %q: year %q: %v", internalerr.ErrLoad, base, fields[2], err)
	}

	return Meta{ID: id, Group: group, Session: session, Year: year}, nil
}

// CanonicalGroup returns the single spelling used for a group code, so
// "usa" and "USA" name the same group everywhere.
func CanonicalGroup(g string) string {
	return strings.ToUpper(strings.TrimSpace(g))
}

func isTwoDigit(s string) bool {
	if len(s) != 2 {
		return false
	}
	return s[0] >= '0' && s[0] <= '9' && s[1] >= '0' && s[1] <= '9'
}

// Filter restricts a corpus to a set of groups and a minimum year.
// An empty Groups list admits every group. Group codes compare in their
// canonical form.
type Filter struct {
	Groups  []string
	MinYear int
}

// Match reports whether the document passes the filter.
func (f Filter) Match(d Document) bool {
	if d.Year < f.MinYear {
		return false
	}
	if len(f.Groups) == 0 {
		return true
	}
	group := CanonicalGroup(d.Group)
	for _, g := range f.Groups {
		if CanonicalGroup(g) == group {
			return true
		}
	}
	return false
}

// Missing returns the requested groups, in canonical form and filter order,
// that none of present names.
func (f Filter) Missing(present []string) []string {
	have := make(map[string]struct{}, len(present))
	for _, g := range present {
		have[CanonicalGroup(g)] = struct{}{}
	}
	var out []string
	for _, g := range f.Groups {
		g = CanonicalGroup(g)
		if _, ok := have[g]; ok {
			continue
		}
		have[g] = struct{}{}
		out = append(out, g)
	}
	return out
}

func (f Filter) String() string {
	groups := "*"
	if len(f.Groups) > 0 {
		groups = strings.Join(f.Groups, ",")
	}
	return fmt.Sprintf("groups=%s min_year=%d", groups, f.MinYear)
}
