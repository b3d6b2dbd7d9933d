// Package patterns holds the declarative pattern tables used by the
// structuring engine: heading-recognition patterns for the section builder
// and clause-segmentation patterns for the clause extractor.  Both tables are
// consumed by a single generic matching loop; adding a pattern never requires
// touching the matching code.
package patterns

import (
	"regexp"
	"sort"
	"strings"
)

// ═══════════════════════════════════════════════════════════════════════════
// Heading patterns
// ═══════════════════════════════════════════════════════════════════════════

// HeadingKind identifies the structural family a heading pattern belongs to.
// The hierarchy level of a section is derived from its heading's kind.
type HeadingKind string

const (
	KindArticle  HeadingKind = "article"
	KindSection  HeadingKind = "section"
	KindNumbered HeadingKind = "numbered"
	KindLettered HeadingKind = "lettered"
	KindAllCaps  HeadingKind = "allcaps"
	KindRecital  HeadingKind = "recital"
)

// Level maps a heading kind to its hierarchy depth (1 = top).
func (k HeadingKind) Level() int {
	switch k {
	case KindArticle, KindSection, KindAllCaps:
		return 1
	case KindNumbered:
		return 2
	case KindLettered:
		return 3
	default:
		return 4
	}
}

// HeadingPattern is one entry of the heading-recognition cascade.  Matcher
// must capture the heading title in group 1 (or match the whole heading line
// when no group is present).
type HeadingPattern struct {
	Name     string
	Matcher  *regexp.Regexp
	Priority int
	Kind     HeadingKind
}

// HeadingMatch is one detected heading occurrence.
type HeadingMatch struct {
	Start int
	End   int
	Title string
	Kind  HeadingKind
}

// headingTable is the ordered heading-recognition cascade.  Lower priority
// values win when two patterns match at the same offset.
var headingTable = []HeadingPattern{
	{
		Name:     "article_marker",
		Matcher:  regexp.MustCompile(`(?mi)^[ \t]*ARTICLE[ \t]+(?:[IVXLC]+|\d+)[.:)\-]?[ \t]*([^\n]*)$`),
		Priority: 1,
		Kind:     KindArticle,
	},
	{
		Name:     "section_marker",
		Matcher:  regexp.MustCompile(`(?mi)^[ \t]*SECTION[ \t]+\d+(?:\.\d+)*[.:)\-]?[ \t]*([^\n]*)$`),
		Priority: 2,
		Kind:     KindSection,
	},
	{
		Name:     "numbered_heading",
		Matcher:  regexp.MustCompile(`(?m)^[ \t]*\d{1,2}(?:\.\d{1,2})*[.)][ \t]+([A-Z][^\n]{2,80})$`),
		Priority: 3,
		Kind:     KindNumbered,
	},
	{
		Name:     "lettered_heading",
		Matcher:  regexp.MustCompile(`(?m)^[ \t]*\(?[A-Za-z]\)[ \t]+([A-Z][^\n]{2,80})$`),
		Priority: 4,
		Kind:     KindLettered,
	},
	{
		Name:     "allcaps_title",
		Matcher:  regexp.MustCompile(`(?m)^[ \t]*([A-Z][A-Z0-9 &/\-,']{3,60})[ \t]*$`),
		Priority: 5,
		Kind:     KindAllCaps,
	},
	{
		Name:     "recital_marker",
		Matcher:  regexp.MustCompile(`(?mi)^[ \t]*(WHEREAS|RECITALS?|WITNESSETH)\b[^\n]*$`),
		Priority: 6,
		Kind:     KindRecital,
	},
}

// FindHeadings applies the whole heading cascade to text and returns all
// matches ordered by start offset.  Overlapping matches are resolved in
// favour of the earlier start, then the lower priority value.
func FindHeadings(text string) []HeadingMatch {
	type raw struct {
		HeadingMatch
		priority int
	}
	var all []raw

	for i := range headingTable {
		p := &headingTable[i]
		for _, loc := range p.Matcher.FindAllStringSubmatchIndex(text, -1) {
			title := ""
			if len(loc) >= 4 && loc[2] >= 0 {
				title = strings.TrimSpace(text[loc[2]:loc[3]])
			}
			if title == "" {
				title = strings.TrimSpace(text[loc[0]:loc[1]])
			}
			all = append(all, raw{
				HeadingMatch: HeadingMatch{Start: loc[0], End: loc[1], Title: title, Kind: p.Kind},
				priority:     p.Priority,
			})
		}
	}

	sort.SliceStable(all, func(i, j int) bool {
		if all[i].Start != all[j].Start {
			return all[i].Start < all[j].Start
		}
		return all[i].priority < all[j].priority
	})

	// Drop matches that begin inside an earlier accepted match.
	out := make([]HeadingMatch, 0, len(all))
	lastEnd := -1
	for _, m := range all {
		if m.Start < lastEnd {
			continue
		}
		out = append(out, m.HeadingMatch)
		lastEnd = m.End
	}
	return out
}

// ═══════════════════════════════════════════════════════════════════════════
// Clause patterns
// ═══════════════════════════════════════════════════════════════════════════

// MatchMode selects how a clause pattern produces candidates.
type MatchMode int

const (
	// ModeCapture joins the pattern's captured groups into one candidate per
	// match.
	ModeCapture MatchMode = iota

	// ModeDelimit treats each match as a segment marker; candidates are the
	// spans of text between consecutive markers.
	ModeDelimit
)

// Pattern is one entry of the clause pattern library.
type Pattern struct {
	Name     string
	Matcher  *regexp.Regexp
	Priority int
	Tag      string
	Mode     MatchMode
}

// Candidate is one clause candidate produced by the pattern library.
type Candidate struct {
	Text string
	Tag  string
}

// clauseTable is the ordered clause pattern library.
var clauseTable = []Pattern{
	{
		Name:     "numbered_clause",
		Matcher:  regexp.MustCompile(`(?m)(?:^|\s)\d{1,2}\.\s+`),
		Priority: 1,
		Tag:      "numbered",
		Mode:     ModeDelimit,
	},
	{
		Name:     "sub_numbered_clause",
		Matcher:  regexp.MustCompile(`(?m)(?:^|\s)\d{1,2}\.\d{1,2}(?:\.\d{1,2})?\s+`),
		Priority: 2,
		Tag:      "sub_numbered",
		Mode:     ModeDelimit,
	},
	{
		Name:     "lettered_clause",
		Matcher:  regexp.MustCompile(`(?m)(?:^|\s)\([a-z]\)\s+`),
		Priority: 3,
		Tag:      "lettered",
		Mode:     ModeDelimit,
	},
	{
		Name:     "roman_clause",
		Matcher:  regexp.MustCompile(`(?m)(?:^|\s)\((?:x{0,3})(?:ix|iv|v?i{0,3})\)\s+`),
		Priority: 4,
		Tag:      "roman",
		Mode:     ModeDelimit,
	},
	{
		Name:     "recital_clause",
		Matcher:  regexp.MustCompile(`(?i)\bWHEREAS\b[,:]?\s*`),
		Priority: 5,
		Tag:      "recital",
		Mode:     ModeDelimit,
	},
	{
		Name:     "definition_clause",
		Matcher:  regexp.MustCompile(`(?i)("[^"]{2,60}"\s+(?:means|shall mean|refers to)\s+[^.;]+[.;])`),
		Priority: 6,
		Tag:      "definition",
		Mode:     ModeCapture,
	},
	{
		Name:     "payment_clause",
		Matcher:  regexp.MustCompile(`(?i)((?:payment|fee|invoice|compensation)[^.;]{0,200}?(?:shall|must|will)[^.;]{0,200}[.;])`),
		Priority: 7,
		Tag:      "payment",
		Mode:     ModeCapture,
	},
	{
		Name:     "termination_clause",
		Matcher:  regexp.MustCompile(`(?i)((?:either party|this agreement)[^.;]{0,200}?terminat[^.;]{0,200}[.;])`),
		Priority: 8,
		Tag:      "termination",
		Mode:     ModeCapture,
	},
	{
		Name:     "liability_clause",
		Matcher:  regexp.MustCompile(`(?i)((?:in no event|liability|liable)[^.;]{0,250}[.;])`),
		Priority: 9,
		Tag:      "liability",
		Mode:     ModeCapture,
	},
	{
		Name:     "confidentiality_clause",
		Matcher:  regexp.MustCompile(`(?i)((?:confidential|proprietary)[^.;]{0,250}[.;])`),
		Priority: 10,
		Tag:      "confidentiality",
		Mode:     ModeCapture,
	},
}

// Library is the clause pattern library, ordered by priority.
type Library struct {
	patterns []Pattern
}

// NewLibrary returns the default clause pattern library.
func NewLibrary() *Library {
	ps := make([]Pattern, len(clauseTable))
	copy(ps, clauseTable)
	sort.SliceStable(ps, func(i, j int) bool { return ps[i].Priority < ps[j].Priority })
	return &Library{patterns: ps}
}

// Patterns returns the ordered pattern set.
func (l *Library) Patterns() []Pattern { return l.patterns }

// Apply runs every pattern against text and returns all candidates in
// pattern-priority order.
func (l *Library) Apply(text string) []Candidate {
	var out []Candidate
	for i := range l.patterns {
		out = append(out, applyPattern(&l.patterns[i], text)...)
	}
	return out
}

// applyPattern produces this pattern's candidates from text.
func applyPattern(p *Pattern, text string) []Candidate {
	switch p.Mode {
	case ModeDelimit:
		locs := p.Matcher.FindAllStringIndex(text, -1)
		if len(locs) == 0 {
			return nil
		}
		out := make([]Candidate, 0, len(locs))
		for i, loc := range locs {
			end := len(text)
			if i+1 < len(locs) {
				end = locs[i+1][0]
			}
			seg := strings.TrimSpace(text[loc[1]:end])
			if seg == "" {
				continue
			}
			out = append(out, Candidate{Text: seg, Tag: p.Tag})
		}
		return out

	default: // ModeCapture
		matches := p.Matcher.FindAllStringSubmatch(text, -1)
		if len(matches) == 0 {
			return nil
		}
		out := make([]Candidate, 0, len(matches))
		for _, m := range matches {
			var parts []string
			for _, g := range m[1:] {
				if g != "" {
					parts = append(parts, g)
				}
			}
			joined := strings.TrimSpace(strings.Join(parts, " "))
			if joined == "" {
				continue
			}
			out = append(out, Candidate{Text: joined, Tag: p.Tag})
		}
		return out
	}
}
