// Package tfidf weights terms per group. Each group's full set of speeches
// is treated as one synthetic document, so document frequency counts the
// groups in which a word occurs.
package tfidf

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/cognicore/speechlens/pkg/speechlens/internalerr"
)

// DefaultTopK is the number of records kept per group.
const DefaultTopK = 15

// Counts is the input the scorer needs; *ingest.Counter satisfies it.
type Counts interface {
	Groups() []string
	Words(group string) []string
	Count(group, word string) int64
	Total(group string) int64
}

// Record is one weighted term of a group.
type Record struct {
	Group string  `json:"group"`
	Word  string  `json:"word"`
	Count int64   `json:"count"`
	TF    float64 `json:"tf"`
	IDF   float64 `json:"idf"`
	TFIDF float64 `json:"tf_idf"`
}

// Table holds scored records per group, groups in input order.
type Table struct {
	Groups  []string
	Records map[string][]Record
}

// Score computes TF-IDF for every group and keeps the topK highest records
// per group (all records when topK <= 0). Groups with no tokens cannot be
// scored; they are reported in the returned error while the remaining
// groups are still scored.
func Score(c Counts, topK int) (*Table, error) {
	groups := c.Groups()

	var scored []string
	var errs []error
	for _, g := range groups {
		if c.Total(g) == 0 {
			errs = append(errs, fmt.Errorf("%w: group %s has no tokens", internalerr.ErrNumericDegeneracy, g))
			continue
		}
		scored = append(scored, g)
	}

	df := make(map[string]int)
	for _, g := range scored {
		for _, w := range c.Words(g) {
			if c.Count(g, w) > 0 {
				df[w]++
			}
		}
	}

	n := float64(len(scored))
	table := &Table{Groups: scored, Records: make(map[string][]Record, len(scored))}
	for _, g := range scored {
		total := float64(c.Total(g))
		words := c.Words(g)
		records := make([]Record, 0, len(words))
		for _, w := range words {
			count := c.Count(g, w)
			if count == 0 {
				continue
			}
			tf := float64(count) / total
			idf := math.Log(n / float64(df[w]))
			records = append(records, Record{
				Group: g,
				Word:  w,
				Count: count,
				TF:    tf,
				IDF:   idf,
				TFIDF: tf * idf,
			})
		}

		// Stable sort keeps encounter order for equal scores.
		sort.SliceStable(records, func(i, j int) bool {
			return records[i].TFIDF > records[j].TFIDF
		})
		if topK > 0 && len(records) > topK {
			records = records[:topK]
		}
		table.Records[g] = records
	}

	return table, errors.Join(errs...)
}

// Lookup returns the record for a word in a group, if it was kept.
func (t *Table) Lookup(group, word string) (Record, bool) {
	for _, r := range t.Records[group] {
		if r.Word == word {
			return r, true
		}
	}
	return Record{}, false
}
