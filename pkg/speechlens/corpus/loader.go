package corpus

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/net/html"

	"github.com/cognicore/speechlens/pkg/speechlens/internalerr"
)

// Loader reads speech files from a directory tree.
type Loader struct {
	// SkipMalformed logs and skips files whose names cannot be parsed
	// instead of failing the load.
	SkipMalformed bool
	Logger        *slog.Logger
}

// Load reads every .txt (and .html/.htm) file under dir, keeping documents
// that match the filter. An empty result is reported as ErrEmptyCorpus
// together with the partially built (empty) corpus so callers can decide.
func (l *Loader) Load(ctx context.Context, dir string, f Filter) (*Corpus, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", internalerr.ErrLoad, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s is not a directory", internalerr.ErrLoad, dir)
	}

	var docs []Document
	scanned := 0
	err = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() || !isSpeechFile(path) {
			return nil
		}
		scanned++

		meta, err := ParseFilename(path)
		if err != nil {
			if l.SkipMalformed {
				l.logger().Warn("skipping malformed filename", "path", path, "error", err)
				return nil
			}
			return err
		}

		doc := Document{
			ID:      meta.ID,
			Group:   meta.Group,
			Session: meta.Session,
			Year:    meta.Year,
			Path:    path,
		}
		if !f.Match(doc) {
			return nil
		}

		text, err := readText(path)
		if err != nil {
			return fmt.Errorf("%w: %v", internalerr.ErrLoad, err)
		}
		doc.Text = text
		docs = append(docs, doc)
		return nil
	})
	if err != nil {
		if errors.Is(err, internalerr.ErrLoad) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", internalerr.ErrLoad, err)
	}

	l.logger().Debug("corpus scanned", "dir", dir, "files", scanned, "matched", len(docs), "filter", f.String())

	c := New(docs)
	if c.Len() == 0 {
		return c, fmt.Errorf("%w: no documents under %s match filter %s", internalerr.ErrEmptyCorpus, dir, f)
	}
	return c, nil
}

func (l *Loader) logger() *slog.Logger {
	if l.Logger != nil {
		return l.Logger
	}
	return slog.Default()
}

func isSpeechFile(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".txt", ".html", ".htm":
		return true
	}
	return false
}

func readText(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".html", ".htm":
		return stripHTML(string(data)), nil
	}
	return string(data), nil
}

// stripHTML returns the concatenated text nodes of an HTML document,
// leaving script and style contents out.
func stripHTML(s string) string {
	doc, err := html.Parse(strings.NewReader(s))
	if err != nil {
		return s
	}

	var buf strings.Builder
	var extractText func(*html.Node)
	extractText = func(n *html.Node) {
		if n.Type == html.ElementNode && (n.Data == "script" || n.Data == "style") {
			return
		}
		if n.Type == html.TextNode {
			buf.WriteString(n.Data)
			buf.WriteByte(' ')
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			extractText(c)
		}
	}
	extractText(doc)

	return strings.TrimSpace(buf.String())
}
