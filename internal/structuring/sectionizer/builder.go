// Package sectionizer implements the section builder: heading detection over
// raw contract text, hierarchical section assembly, the paragraph-based
// fallback for unstructured documents, semantic grouping, and importance
// scoring.
package sectionizer

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/clauselens/clauselens/internal/domain/contract"
	"github.com/clauselens/clauselens/internal/infrastructure/monitoring/logging"
	"github.com/clauselens/clauselens/internal/structuring/patterns"
)

var (
	reParagraphSplit = regexp.MustCompile(`\n[ \t]*\n+`)

	// Section-start heuristics for the paragraph fallback.
	reStartNumbered = regexp.MustCompile(`^\s*\d{1,2}[.)]\s`)
	reStartLettered = regexp.MustCompile(`^\s*\(?[a-zA-Z][.)]\s`)
	reStartRoman    = regexp.MustCompile(`^\s*[IVXLC]{1,6}[.)]\s`)
	reStartKeyword  = regexp.MustCompile(`(?i)^\s*(ARTICLE|SECTION|WHEREAS|NOW,?\s+THEREFORE|RECITALS?|WITNESSETH)\b`)
)

// Builder constructs the section hierarchy for one document.  It is stateless
// and safe for concurrent use across documents.
type Builder struct {
	log logging.Logger
}

// NewBuilder returns a section Builder.
func NewBuilder(log logging.Logger) *Builder {
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &Builder{log: log}
}

// Build detects headings in rawText and assembles the ordered section list.
// When no headings are found it falls back to paragraph segmentation; an
// empty document yields a single "general" section spanning the whole text.
// The returned sections have no clauses yet; the clause extractor populates
// them afterward.
func (b *Builder) Build(rawText string, _ contract.DocumentMetadata) []*contract.Section {
	matches := patterns.FindHeadings(rawText)

	var sections []*contract.Section
	switch {
	case len(matches) > 0:
		sections = b.fromHeadings(rawText, matches)
	case strings.TrimSpace(rawText) != "":
		sections = b.fromParagraphs(rawText)
	}

	if len(sections) == 0 {
		// Empty or unsplittable document: one section covering everything.
		sections = []*contract.Section{{
			ID:      "S1",
			Title:   "Document",
			Content: rawText,
			Level:   1,
			Type:    contract.SectionTypeGeneral,
		}}
	}

	b.assignParents(sections)
	for _, sec := range sections {
		sec.Type = sectionTypeFromTitle(sec.Title)
		sec.SemanticGroup = classifySemanticGroup(sec.Title, sec.Content)
		sec.ImportanceScore = importanceScore(sec.Content)
	}

	b.log.Debug("sections built",
		logging.Int("count", len(sections)),
		logging.Bool("heading_based", len(matches) > 0),
	)
	return sections
}

// fromHeadings converts heading matches into sections: each section spans
// from its heading's end to the next heading's start (or document end).
func (b *Builder) fromHeadings(text string, matches []patterns.HeadingMatch) []*contract.Section {
	sections := make([]*contract.Section, 0, len(matches))
	for i, m := range matches {
		end := len(text)
		if i+1 < len(matches) {
			end = matches[i+1].Start
		}
		sections = append(sections, &contract.Section{
			ID:       fmt.Sprintf("S%d", i+1),
			Title:    m.Title,
			Content:  strings.TrimSpace(text[m.End:end]),
			Level:    m.Kind.Level(),
			Metadata: map[string]string{"heading_kind": string(m.Kind)},
		})
	}
	return sections
}

// fromParagraphs is the fallback when no headings match: paragraphs that look
// like section starts open a new section, all others extend the current one.
func (b *Builder) fromParagraphs(text string) []*contract.Section {
	paras := reParagraphSplit.Split(text, -1)

	var sections []*contract.Section
	var current *contract.Section

	flush := func() {
		if current != nil {
			current.Content = strings.TrimSpace(current.Content)
			sections = append(sections, current)
			current = nil
		}
	}

	for _, para := range paras {
		trimmed := strings.TrimSpace(para)
		if trimmed == "" {
			continue
		}
		if current == nil || isSectionStart(trimmed) {
			flush()
			current = &contract.Section{
				ID:      fmt.Sprintf("S%d", len(sections)+1),
				Title:   paragraphTitle(trimmed),
				Content: trimmed,
				Level:   1,
			}
			continue
		}
		current.Content += "\n\n" + trimmed
	}
	flush()
	return sections
}

// assignParents links each section to the nearest preceding section with a
// strictly lower level.  Parents are always earlier in document order, so the
// hierarchy is cycle-free by construction.
func (b *Builder) assignParents(sections []*contract.Section) {
	for i, sec := range sections {
		for j := i - 1; j >= 0; j-- {
			if sections[j].Level < sec.Level {
				sec.ParentID = sections[j].ID
				break
			}
		}
	}
}

// isSectionStart reports whether a paragraph looks like the start of a new
// section: numbered/lettered/roman/legal-keyword prefix, or a short fully
// capitalized line.
func isSectionStart(para string) bool {
	if reStartNumbered.MatchString(para) ||
		reStartLettered.MatchString(para) ||
		reStartRoman.MatchString(para) ||
		reStartKeyword.MatchString(para) {
		return true
	}
	firstLine := para
	if idx := strings.IndexByte(para, '\n'); idx >= 0 {
		firstLine = para[:idx]
	}
	firstLine = strings.TrimSpace(firstLine)
	return len(firstLine) > 0 && len(firstLine) < 60 && firstLine == strings.ToUpper(firstLine) &&
		strings.ContainsFunc(firstLine, func(r rune) bool { return r >= 'A' && r <= 'Z' })
}

// paragraphTitle derives a short title from the paragraph's first line.
func paragraphTitle(para string) string {
	firstLine := para
	if idx := strings.IndexByte(para, '\n'); idx >= 0 {
		firstLine = para[:idx]
	}
	firstLine = strings.TrimSpace(firstLine)
	if len(firstLine) > 80 {
		firstLine = strings.TrimSpace(firstLine[:80])
	}
	return firstLine
}

// sectionTypeFromTitle maps a title to a coarse section type.
func sectionTypeFromTitle(title string) string {
	lower := strings.ToLower(title)
	switch {
	case strings.Contains(lower, "definition"):
		return contract.SectionTypeDefinitions
	case strings.Contains(lower, "payment") || strings.Contains(lower, "fee") ||
		strings.Contains(lower, "compensation") || strings.Contains(lower, "price"):
		return contract.SectionTypePayment
	case strings.Contains(lower, "terminat") || strings.Contains(lower, "expir"):
		return contract.SectionTypeTermination
	case strings.Contains(lower, "term") || strings.Contains(lower, "scope") ||
		strings.Contains(lower, "service") || strings.Contains(lower, "obligation"):
		return contract.SectionTypeTerms
	default:
		return contract.SectionTypeGeneral
	}
}
