package ingestion

import (
	"regexp"
	"strings"
)

// UncategorizedHeader labels content that no structural marker precedes.
const UncategorizedHeader = "Uncategorized"

// Section is a structurally-delimited region of a document. Content includes
// the header line itself so a chunk stays traceable to its clause.
type Section struct {
	Header  string
	Content string
}

// HeaderMatch marks where a section begins within the raw text.
type HeaderMatch struct {
	Start  int
	Header string
}

// Classifier locates section boundaries and tags tabular blocks. The default
// patterns target insurance-policy wording; swap the classifier to retarget
// the splitter at another document domain without touching the chunker or
// the batcher.
type Classifier interface {
	HeaderMatches(text string) []HeaderMatch
	IsTable(block string) bool
}

type patternClassifier struct {
	headers    *regexp.Regexp
	tableProbe int
	tablePipes int
}

// Numbered clauses ("4.1", "12. ..."), roman-numeral annexures and lists, and
// a fixed set of known policy headings.
var defaultHeaderPattern = regexp.MustCompile(
	`(?m)^[ \t]*(\d+(?:\.\d+)*[^\n]*|Annexure [IVX]+|[Ll]ist [IVX]+|[Ll]ist of|Table of Benefits|Claims Procedure|90 Days Waiting Period|iii\. Two years waiting period)`)

// DefaultClassifier returns the policy-document classifier: pattern-based
// header detection plus the pipe-count table heuristic (more than 3 pipes in
// the first 300 bytes).
func DefaultClassifier() Classifier {
	return &patternClassifier{
		headers:    defaultHeaderPattern,
		tableProbe: 300,
		tablePipes: 3,
	}
}

// NewPatternClassifier builds a classifier from a custom header pattern. The
// pattern's first capture group is the header marker.
func NewPatternClassifier(headers *regexp.Regexp, tableProbe, tablePipes int) Classifier {
	return &patternClassifier{headers: headers, tableProbe: tableProbe, tablePipes: tablePipes}
}

func (c *patternClassifier) HeaderMatches(text string) []HeaderMatch {
	raw := c.headers.FindAllStringSubmatchIndex(text, -1)
	matches := make([]HeaderMatch, 0, len(raw))
	for _, m := range raw {
		header := text[m[0]:m[1]]
		if m[2] >= 0 {
			header = text[m[2]:m[3]]
		}
		matches = append(matches, HeaderMatch{
			Start:  m[0],
			Header: strings.TrimSpace(header),
		})
	}
	return matches
}

func (c *patternClassifier) IsTable(block string) bool {
	probe := block
	if len(probe) > c.tableProbe {
		probe = probe[:c.tableProbe]
	}
	return strings.Count(probe, "|") > c.tablePipes
}

// SplitSections partitions a document into labeled sections in document
// order. Each header marker starts a new section; content runs to the next
// marker or end of text. Text before the first marker, or a document with no
// markers at all, is labeled Uncategorized. Sections whose trimmed content is
// empty are dropped.
func SplitSections(text string, c Classifier) []Section {
	matches := c.HeaderMatches(text)

	if len(matches) == 0 {
		if trimmed := strings.TrimSpace(text); trimmed != "" {
			return []Section{{Header: UncategorizedHeader, Content: trimmed}}
		}
		return nil
	}

	sections := make([]Section, 0, len(matches)+1)
	if lead := strings.TrimSpace(text[:matches[0].Start]); lead != "" {
		sections = append(sections, Section{Header: UncategorizedHeader, Content: lead})
	}

	for i, match := range matches {
		end := len(text)
		if i+1 < len(matches) {
			end = matches[i+1].Start
		}
		content := strings.TrimSpace(text[match.Start:end])
		if content == "" {
			continue
		}
		sections = append(sections, Section{Header: match.Header, Content: content})
	}

	return sections
}

var (
	sentencePattern = regexp.MustCompile(`[^.!?]+[.!?]`)
	lineRunPattern  = regexp.MustCompile(`\n+`)
)

// SplitSentences segments text into trimmed sentence-like spans in original
// order. Text with no sentence punctuation degrades to newline-run splitting;
// the function never fails and never drops non-whitespace content.
func SplitSentences(text string) []string {
	matches := sentencePattern.FindAllStringIndex(text, -1)
	if len(matches) == 0 {
		return splitLineRuns(text)
	}

	sentences := make([]string, 0, len(matches)+1)
	last := 0
	for _, m := range matches {
		if s := strings.TrimSpace(text[m[0]:m[1]]); s != "" {
			sentences = append(sentences, s)
		}
		last = m[1]
	}
	// Trailing text without terminal punctuation is still a unit.
	if rest := strings.TrimSpace(text[last:]); rest != "" {
		sentences = append(sentences, rest)
	}

	return sentences
}

func splitLineRuns(text string) []string {
	parts := lineRunPattern.Split(text, -1)
	lines := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			lines = append(lines, trimmed)
		}
	}
	return lines
}
