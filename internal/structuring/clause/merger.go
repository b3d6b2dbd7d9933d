package clause

import (
	"regexp"
	"strings"

	"github.com/clauselens/clauselens/internal/domain/contract"
)

// maxMergeLength caps the size of clauses participating in a merge; both
// sides must be at or under it.
const maxMergeLength = 500

// reContinuationStart matches a clause that begins with a proviso connector
// and therefore continues its predecessor.
var reContinuationStart = regexp.MustCompile(`(?i)^\s*(?:provided\s+that|however|notwithstanding|subject\s+to|unless|except)\b`)

// Merger joins clauses that were split mid-provision.  One forward pass:
// a clause opening with a continuation connector is folded into the clause
// immediately before it when both are short enough.
type Merger struct{}

// NewMerger returns a clause Merger.
func NewMerger() *Merger { return &Merger{} }

// Merge returns the merged clause list.  A merged clause keeps the first
// clause's ID, section and classification metadata, concatenates the texts,
// and is flagged Merged.  Word and sentence counts are recomputed.
func (m *Merger) Merge(clauses []*contract.Clause) []*contract.Clause {
	if len(clauses) < 2 {
		return clauses
	}

	out := make([]*contract.Clause, 0, len(clauses))
	for _, cl := range clauses {
		if len(out) > 0 && m.shouldMerge(out[len(out)-1], cl) {
			prev := out[len(out)-1]
			prev.Text = strings.TrimSpace(prev.Text) + " " + strings.TrimSpace(cl.Text)
			prev.WordCount = len(strings.Fields(prev.Text))
			prev.SentenceCount += cl.SentenceCount
			prev.Merged = true
			continue
		}
		out = append(out, cl)
	}
	return out
}

// shouldMerge reports whether next continues prev.  Merging never crosses a
// section boundary.
func (m *Merger) shouldMerge(prev, next *contract.Clause) bool {
	if prev.SectionID != next.SectionID {
		return false
	}
	if len(prev.Text) > maxMergeLength || len(next.Text) > maxMergeLength {
		return false
	}
	return reContinuationStart.MatchString(next.Text)
}
