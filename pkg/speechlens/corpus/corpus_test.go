package corpus

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/cognicore/speechlens/pkg/speechlens/internalerr"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestParseFilename(t *testing.T) {
	tests := []struct {
		name    string
		want    Meta
		wantErr bool
	}{
		{"USA_56_2001.txt", Meta{ID: "USA_56_2001", Group: "USA", Session: 56, Year: 2001}, false},
		{"dir/CHN_70_2015.txt", Meta{ID: "CHN_70_2015", Group: "CHN", Session: 70, Year: 2015}, false},
		{"USA_56_2001_01.txt", Meta{ID: "USA_56_2001", Group: "USA", Session: 56, Year: 2001}, false},
		{"USA_2001.txt", Meta{}, true},
		{"USA_xx_2001.txt", Meta{}, true},
		{"USA_56_year.txt", Meta{}, true},
		{"_56_2001.txt", Meta{}, true},
		{"USA_56_2001_123.txt", Meta{}, true},
	}

	for _, tt := range tests {
		got, err := ParseFilename(tt.name)
		if tt.wantErr {
			if !errors.Is(err, internalerr.ErrLoad) {
				t.Errorf("%s: expected ErrLoad, got %v", tt.name, err)
			}
			continue
		}
		if err != nil {
			t.Errorf("%s: unexpected error %v", tt.name, err)
			continue
		}
		if got != tt.want {
			t.Errorf("%s: got %+v, want %+v", tt.name, got, tt.want)
		}
	}
}

func TestFilterMatch(t *testing.T) {
	f := Filter{Groups: []string{"USA", "chn"}, MinYear: 2000}

	cases := []struct {
		doc  Document
		want bool
	}{
		{Document{Group: "USA", Year: 2000}, true},
		{Document{Group: "CHN", Year: 2010}, true},
		{Document{Group: "USA", Year: 1999}, false},
		{Document{Group: "FRA", Year: 2010}, false},
	}
	for _, c := range cases {
		if got := f.Match(c.doc); got != c.want {
			t.Errorf("Match(%+v) = %v, want %v", c.doc, got, c.want)
		}
	}

	if !(Filter{}).Match(Document{Group: "ANY", Year: 0}) {
		t.Error("empty filter should admit everything")
	}
}

func TestLoadFiltersByGroupAndYear(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "A_1_2001.txt", "climate change economy")
	writeFile(t, dir, "B_1_1999.txt", "economy growth")
	writeFile(t, dir, "C_1_2005.txt", "ignored group")
	writeFile(t, dir, "README.md", "not a speech")

	loader := &Loader{}
	c, err := loader.Load(context.Background(), dir, Filter{Groups: []string{"A", "B"}, MinYear: 2000})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.Len() != 1 {
		t.Fatalf("expected 1 document, got %d", c.Len())
	}
	doc := c.Docs()[0]
	if doc.Group != "A" || doc.Year != 2001 || doc.Text != "climate change economy" {
		t.Errorf("unexpected document %+v", doc)
	}
}

func TestLoadRecursesIntoSessions(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "Session 56 - 2001/USA_56_2001.txt", "one")
	writeFile(t, dir, "Session 57 - 2002/USA_57_2002.txt", "two")

	c, err := (&Loader{}).Load(context.Background(), dir, Filter{})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.Len() != 2 {
		t.Fatalf("expected 2 documents, got %d", c.Len())
	}
	docs := c.Docs()
	if docs[0].Year != 2001 || docs[1].Year != 2002 {
		t.Errorf("documents should be ordered by year: %+v", docs)
	}
}

func TestLoadEmptyCorpus(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "A_1_1990.txt", "old speech")

	c, err := (&Loader{}).Load(context.Background(), dir, Filter{MinYear: 2000})
	if !errors.Is(err, internalerr.ErrEmptyCorpus) {
		t.Fatalf("expected ErrEmptyCorpus, got %v", err)
	}
	if c == nil || c.Len() != 0 {
		t.Error("empty corpus should still be returned")
	}
}

func TestLoadUnreadableDirectory(t *testing.T) {
	_, err := (&Loader{}).Load(context.Background(), "/nonexistent/speeches", Filter{})
	if !errors.Is(err, internalerr.ErrLoad) {
		t.Fatalf("expected ErrLoad, got %v", err)
	}
}

func TestLoadMalformedFilename(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "A_1_2001.txt", "fine")
	writeFile(t, dir, "broken.txt", "bad name")

	if _, err := (&Loader{}).Load(context.Background(), dir, Filter{}); !errors.Is(err, internalerr.ErrLoad) {
		t.Fatalf("expected ErrLoad, got %v", err)
	}

	c, err := (&Loader{SkipMalformed: true}).Load(context.Background(), dir, Filter{})
	if err != nil {
		t.Fatalf("SkipMalformed load: %v", err)
	}
	if c.Len() != 1 {
		t.Errorf("expected 1 document, got %d", c.Len())
	}
}

func TestLoadHTMLDocument(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "A_1_2001.html", "<html><head><style>p{}</style></head><body><p>Peace</p><p>and security</p></body></html>")

	c, err := (&Loader{}).Load(context.Background(), dir, Filter{})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	text := c.Docs()[0].Text
	if text != "Peace and security" {
		t.Errorf("unexpected html text %q", text)
	}
}

func TestCorpusFilterIsPure(t *testing.T) {
	c := New([]Document{
		{ID: "a", Group: "A", Year: 2001},
		{ID: "b", Group: "B", Year: 1999},
	})
	filtered := c.Filter(Filter{MinYear: 2000})

	if filtered.Len() != 1 {
		t.Errorf("expected 1 filtered document, got %d", filtered.Len())
	}
	if c.Len() != 2 {
		t.Error("filtering must not modify the source corpus")
	}
	if got := c.Groups(); len(got) != 2 || got[0] != "A" || got[1] != "B" {
		t.Errorf("unexpected groups %v", got)
	}
	if len(c.ByGroup("b")) != 1 {
		t.Error("ByGroup should match case-insensitively")
	}
}

func TestGroupSpellingsMerge(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "USA_56_2001.txt", "peace")
	writeFile(t, dir, "usa_57_2002.txt", "security")

	c, err := (&Loader{}).Load(context.Background(), dir, Filter{})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	groups := c.Groups()
	if len(groups) != 1 || groups[0] != "USA" {
		t.Fatalf("expected one canonical group USA, got %v", groups)
	}
	if n := len(c.ByGroup("usa")); n != 2 {
		t.Errorf("expected 2 documents for USA, got %d", n)
	}
	total := 0
	for _, g := range groups {
		total += len(c.ByGroup(g))
	}
	if total != c.Len() {
		t.Errorf("group documents sum to %d, corpus has %d", total, c.Len())
	}
}

func TestFilterMissing(t *testing.T) {
	f := Filter{Groups: []string{"usa", "CHN", "chn", "FRA"}}
	got := f.Missing([]string{"USA"})
	if len(got) != 2 || got[0] != "CHN" || got[1] != "FRA" {
		t.Errorf("Missing = %v, want [CHN FRA]", got)
	}
	if m := (Filter{}).Missing(nil); len(m) != 0 {
		t.Errorf("an open filter has no missing groups, got %v", m)
	}
}
