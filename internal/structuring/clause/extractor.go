// Package clause implements clause extraction, categorization and merging.
// Extraction runs three candidate strategies over each section (pattern
// library, sentence grouping, paragraph heuristics), deduplicates the pooled
// candidates, validates and cleans the survivors, and assigns stable IDs.
package clause

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/clauselens/clauselens/internal/domain/contract"
	"github.com/clauselens/clauselens/internal/infrastructure/monitoring/logging"
	"github.com/clauselens/clauselens/internal/structuring/common"
	"github.com/clauselens/clauselens/internal/structuring/patterns"
)

// Extraction strategy names, recorded in Clause.Source and in metrics.
const (
	StrategyPattern   = "pattern"
	StrategySentence  = "sentence"
	StrategyParagraph = "paragraph"
)

const (
	// minAlnumLen is the minimum alphanumeric content for a candidate to
	// enter deduplication.
	minAlnumLen = 20

	// Validation floor: a clause needs some substance to be useful.
	minClauseChars = 15
	minClauseWords = 3

	// Near-duplicate detection: candidates whose character sets overlap
	// almost completely and whose lengths diverge are treated as
	// substring-style duplicates; the longer one survives.
	dupJaccardThreshold = 0.95
	dupLengthRatio      = 0.6

	// maxSentenceGroup bounds how many sentences the sentence strategy
	// accumulates into one candidate.
	maxSentenceGroup = 3
)

var (
	reModalOrCopula = regexp.MustCompile(`(?i)\b(shall|must|may|will|should|can|is|are|was|were|be|has|have)\b`)

	// legalIndicators flag text as contractual language for the paragraph
	// strategy and for candidate validation.
	legalIndicators = []string{
		"shall", "must", "agree", "liable", "breach", "warrant",
		"obligat", "indemnif", "terminat", "party", "hereunder", "herein",
	}

	// reSentenceBoundaryStart matches sentence prefixes that open a new
	// enumerated or conjunctive unit; the sentence strategy closes the
	// current group when it sees one.
	reSentenceBoundaryStart = regexp.MustCompile(`(?i)^\s*(?:\(?\d{1,2}[.)]|\([a-z]\)|[IVX]{1,5}\.|WHEREAS\b|PROVIDED\b|SUBJECT\s+TO\b|NOW,?\s+THEREFORE\b)`)

	// reParagraphBreak splits section bodies into paragraphs.
	reParagraphBreak = regexp.MustCompile(`\n[ \t]*\n+`)

	// reContinuationSplit marks points where a long paragraph carries
	// multiple distinct provisions joined by a proviso.  Group 1 locates the
	// connector so the split keeps it with the trailing provision.
	reContinuationSplit = regexp.MustCompile(`(?i);\s*((?:provided|however|notwithstanding|except)\b)`)

	// Cleaning helpers.
	reLeadingNumbering = regexp.MustCompile(`^\s*(?:\(?\d{1,2}(?:\.\d{1,2})*[.)]|\([a-z]\)|\([ivxl]{1,5}\)|[IVX]{1,5}\.)\s*`)
	reWhitespaceRun    = regexp.MustCompile(`\s+`)
	reNonAlnum         = regexp.MustCompile(`[^a-z0-9]+`)
)

// candidate is one clause candidate before deduplication.
type candidate struct {
	text     string
	strategy string
}

// Extractor pulls clauses out of section text.  Stateless; safe for
// concurrent use.
type Extractor struct {
	lib       *patterns.Library
	segmenter common.Segmenter
	log       logging.Logger
	metrics   common.StructuringMetrics
}

// NewExtractor builds a clause Extractor.  A nil segmenter defaults to the
// rule-based sentence splitter.
func NewExtractor(lib *patterns.Library, segmenter common.Segmenter, log logging.Logger, metrics common.StructuringMetrics) *Extractor {
	if lib == nil {
		lib = patterns.NewLibrary()
	}
	if segmenter == nil {
		segmenter = common.NewRegexSegmenter()
	}
	if log == nil {
		log = logging.NewNopLogger()
	}
	if metrics == nil {
		metrics = common.NewNoopMetrics()
	}
	return &Extractor{lib: lib, segmenter: segmenter, log: log, metrics: metrics}
}

// Extract produces the deduplicated, validated clause list for one section.
// Clause IDs are {sectionID}_C{n}, numbered in extraction order.
func (e *Extractor) Extract(ctx context.Context, section *contract.Section) []*contract.Clause {
	if section == nil || strings.TrimSpace(section.Content) == "" {
		return nil
	}

	var pool []candidate
	byStrategy := map[string]int{}

	for _, c := range e.lib.Apply(section.Content) {
		pool = append(pool, candidate{text: c.Text, strategy: StrategyPattern})
		byStrategy[StrategyPattern]++
	}
	for _, text := range e.sentenceCandidates(section.Content) {
		pool = append(pool, candidate{text: text, strategy: StrategySentence})
		byStrategy[StrategySentence]++
	}
	for _, text := range e.paragraphCandidates(section.Content) {
		pool = append(pool, candidate{text: text, strategy: StrategyParagraph})
		byStrategy[StrategyParagraph]++
	}
	for strategy, n := range byStrategy {
		e.metrics.RecordClauseExtraction(ctx, strategy, n)
	}

	// Clean before deduplication so numbering-only variants of the same text
	// collapse into one candidate.
	cleaned := make([]candidate, 0, len(pool))
	for _, c := range pool {
		text := cleanClauseText(c.text)
		if !isValidClause(text) {
			continue
		}
		cleaned = append(cleaned, candidate{text: text, strategy: c.strategy})
	}
	accepted := deduplicate(cleaned)

	clauses := make([]*contract.Clause, 0, len(accepted))
	for _, c := range accepted {
		clauses = append(clauses, &contract.Clause{
			ID:            fmt.Sprintf("%s_C%d", section.ID, len(clauses)+1),
			SectionID:     section.ID,
			Text:          c.text,
			Source:        c.strategy,
			WordCount:     len(strings.Fields(c.text)),
			SentenceCount: len(e.segmenter.Split(c.text)),
		})
	}

	e.log.Debug("clauses extracted",
		logging.String("section_id", section.ID),
		logging.Int("candidates", len(pool)),
		logging.Int("clauses", len(clauses)),
	)
	return clauses
}

// sentenceCandidates groups consecutive sentences into candidates, closing a
// group at enumerated/conjunctive boundaries or after maxSentenceGroup
// sentences.
func (e *Extractor) sentenceCandidates(text string) []string {
	sentences := e.segmenter.Split(text)
	if len(sentences) == 0 {
		return nil
	}

	var out []string
	var group []string
	flush := func() {
		if len(group) > 0 {
			out = append(out, strings.Join(group, " "))
			group = nil
		}
	}
	for _, s := range sentences {
		if len(group) > 0 && (reSentenceBoundaryStart.MatchString(s) || len(group) >= maxSentenceGroup) {
			flush()
		}
		group = append(group, s)
	}
	flush()
	return out
}

// paragraphCandidates emits paragraphs that read like contractual language,
// splitting apart provisions joined by proviso connectors.
func (e *Extractor) paragraphCandidates(text string) []string {
	var out []string
	for _, para := range reParagraphBreak.Split(text, -1) {
		para = strings.TrimSpace(para)
		if len(para) <= minAlnumLen || !hasLegalIndicator(para) {
			continue
		}
		for _, part := range splitContinuations(para) {
			part = strings.TrimSpace(part)
			if part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

// splitContinuations cuts a paragraph at proviso connectors, keeping the
// connector with the trailing provision.
func splitContinuations(para string) []string {
	locs := reContinuationSplit.FindAllStringSubmatchIndex(para, -1)
	if len(locs) == 0 {
		return []string{para}
	}
	var out []string
	prev := 0
	for _, loc := range locs {
		// loc[0] is the semicolon, loc[2] the connector start.
		out = append(out, para[prev:loc[0]])
		prev = loc[2]
	}
	out = append(out, para[prev:])
	return out
}

// deduplicate drops exact and near duplicates from the candidate pool,
// preserving first-seen order.  A near duplicate is a pair whose character
// sets overlap above dupJaccardThreshold while one text is substantially
// shorter than the other; the longer text wins regardless of arrival order.
func deduplicate(pool []candidate) []candidate {
	var accepted []candidate
	seen := map[string]bool{}

	for _, cand := range pool {
		norm := normalizeAlnum(cand.text)
		if len(norm) < minAlnumLen {
			continue
		}
		if seen[norm] {
			continue
		}

		replaced := false
		dropped := false
		for i := range accepted {
			if !isNearDuplicate(cand.text, accepted[i].text) {
				continue
			}
			if len(cand.text) > len(accepted[i].text) {
				delete(seen, normalizeAlnum(accepted[i].text))
				accepted[i] = cand
				seen[norm] = true
				replaced = true
			} else {
				dropped = true
			}
			// First hit only: a candidate that near-duplicates several
			// accepted entries replaces at most one of them, matching the
			// reference dedup behavior.
			break
		}
		if replaced || dropped {
			continue
		}

		seen[norm] = true
		accepted = append(accepted, cand)
	}
	return accepted
}

// isNearDuplicate applies the character-set Jaccard + length-ratio test.
func isNearDuplicate(a, b string) bool {
	shorter, longer := len(a), len(b)
	if shorter > longer {
		shorter, longer = longer, shorter
	}
	if longer == 0 || float64(shorter) >= dupLengthRatio*float64(longer) {
		return false
	}
	return charSetJaccard(a, b) > dupJaccardThreshold
}

// charSetJaccard computes Jaccard similarity over lowercase alphanumeric
// character sets.
func charSetJaccard(a, b string) float64 {
	setA := charSet(a)
	setB := charSet(b)
	if len(setA) == 0 && len(setB) == 0 {
		return 1
	}
	inter := 0
	for r := range setA {
		if setB[r] {
			inter++
		}
	}
	union := len(setA) + len(setB) - inter
	if union == 0 {
		return 0
	}
	return float64(inter) / float64(union)
}

func charSet(s string) map[rune]bool {
	set := map[rune]bool{}
	for _, r := range strings.ToLower(s) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			set[r] = true
		}
	}
	return set
}

// normalizeAlnum lowercases text and strips everything but letters and
// digits, producing the key used for exact-duplicate detection.
func normalizeAlnum(s string) string {
	return reNonAlnum.ReplaceAllString(strings.ToLower(s), "")
}

// isValidClause keeps candidates that have enough substance and read like a
// contractual statement.
func isValidClause(text string) bool {
	if len(text) < minClauseChars {
		return false
	}
	if len(strings.Fields(text)) < minClauseWords {
		return false
	}
	return reModalOrCopula.MatchString(text) || hasLegalIndicator(text)
}

func hasLegalIndicator(text string) bool {
	lower := strings.ToLower(text)
	for _, ind := range legalIndicators {
		if strings.Contains(lower, ind) {
			return true
		}
	}
	return false
}

// cleanClauseText normalizes a clause for presentation: leading numbering
// stripped, whitespace collapsed, terminal punctuation ensured.
func cleanClauseText(text string) string {
	text = reLeadingNumbering.ReplaceAllString(strings.TrimSpace(text), "")
	text = reWhitespaceRun.ReplaceAllString(text, " ")
	text = strings.TrimSpace(text)
	if text == "" {
		return text
	}
	switch text[len(text)-1] {
	case '.', ';', '!', '?', ':':
	default:
		text += "."
	}
	return text
}
