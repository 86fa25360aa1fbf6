// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package score parses free-text QA validation reports into structured
// metrics. The recognized grammar is small and explicit: an overall-score
// marker line, optional labeled sub-score lines, and labeled gaps and
// recommendations sections. A report without a locatable overall score is a
// parse failure — the extractor never infers a score from prose.
// Implements: prd003-scoring (R1-R4);
//
//	docs/ARCHITECTURE § Score Extractor.
package score

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/pdiddy/design-engine/pkg/types"
)

// ParseError reports a validation report that could not be converted to a
// MetricsRecord. The caller records the iteration without metrics and
// treats it as no improvement.
type ParseError struct {
	Reason string
}

func (e *ParseError) Error() string {
	return "parsing validation report: " + e.Reason
}

// IsParseFailure reports whether err is a report parse failure as opposed
// to some other error.
func IsParseFailure(err error) bool {
	var pe *ParseError
	return errors.As(err, &pe)
}

var (
	// overallPattern matches the overall-score marker line, with or
	// without the /10 suffix: "OVERALL SCORE: 7.5/10".
	overallPattern = regexp.MustCompile(`(?mi)^\s*overall score:\s*([0-9]+(?:\.[0-9]+)?)\s*(?:/\s*10)?\s*$`)

	// subScorePattern matches labeled sub-score lines such as
	// "Consistency Score: 8/10" or "Scope Adherence Score: 9".
	subScorePattern = regexp.MustCompile(`(?mi)^\s*([a-z][a-z ]*?)\s+score:\s*([0-9]+(?:\.[0-9]+)?)\s*(?:/\s*10)?\s*$`)

	gapsHeader = regexp.MustCompile(`(?i)^\s*(?:#+\s*)?gaps:?\s*$`)
	recsHeader = regexp.MustCompile(`(?i)^\s*(?:#+\s*)?recommendations:?\s*$`)

	// bulletPattern matches "- item", "* item", and "1. item" list lines.
	bulletPattern = regexp.MustCompile(`^\s*(?:[-*]|\d+[.)])\s+(.*)$`)
)

// Extract parses one raw validation report. On success the returned record
// always carries an overall score in [0, 10] and the untouched raw text;
// missing sub-scores and missing sections are tolerated. An absent or
// out-of-range overall score returns a *ParseError — never a defaulted or
// clamped record.
func Extract(raw string) (types.MetricsRecord, error) {
	m := overallPattern.FindStringSubmatch(raw)
	if m == nil {
		return types.MetricsRecord{}, &ParseError{Reason: "no overall score marker found"}
	}

	overall, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return types.MetricsRecord{}, &ParseError{Reason: fmt.Sprintf("overall score %q is not numeric", m[1])}
	}
	if overall < 0 || overall > 10 {
		return types.MetricsRecord{}, &ParseError{Reason: fmt.Sprintf("overall score %v outside [0, 10]", overall)}
	}

	rec := types.MetricsRecord{
		Overall: overall,
		RawText: raw,
	}

	// Sub-scores are optional metadata: scan labels independently and
	// keep whatever is present and in range.
	for _, sm := range subScorePattern.FindAllStringSubmatch(raw, -1) {
		label := normalizeLabel(sm[1])
		if label == "overall" {
			continue
		}
		v, err := strconv.ParseFloat(sm[2], 64)
		if err != nil || v < 0 || v > 10 {
			continue
		}
		if rec.SubScores == nil {
			rec.SubScores = make(map[string]float64)
		}
		rec.SubScores[label] = v
	}

	rec.Gaps, rec.Recommendations = extractSections(raw)
	return rec, nil
}

// normalizeLabel converts a sub-score label to its canonical key:
// "Scope Adherence" becomes "scope_adherence".
func normalizeLabel(label string) string {
	fields := strings.Fields(strings.ToLower(label))
	return strings.Join(fields, "_")
}

// extractSections pulls ordered item lists out of the gaps and
// recommendations sections. A missing section yields an empty list.
func extractSections(raw string) (gaps, recs []string) {
	const (
		outside = iota
		inGaps
		inRecs
	)
	state := outside

	current := func() *[]string {
		if state == inGaps {
			return &gaps
		}
		return &recs
	}

	for _, line := range strings.Split(raw, "\n") {
		switch {
		case gapsHeader.MatchString(line):
			state = inGaps
			continue
		case recsHeader.MatchString(line):
			state = inRecs
			continue
		}
		if state == outside {
			continue
		}

		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			// A blank line after collected items closes the list; prose
			// paragraphs that follow belong to the surrounding analysis.
			if len(*current()) > 0 {
				state = outside
			}
			continue
		}

		if m := bulletPattern.FindStringSubmatch(line); m != nil {
			if item := strings.TrimSpace(m[1]); item != "" {
				*current() = append(*current(), item)
			}
			continue
		}

		// A score marker or another header ends the section.
		if overallPattern.MatchString(line) || subScorePattern.MatchString(line) ||
			strings.HasPrefix(trimmed, "#") || strings.HasSuffix(trimmed, ":") {
			state = outside
			continue
		}

		// Wrapped prose continues the previous item; a bare first line
		// becomes an item of its own.
		list := current()
		if n := len(*list); n > 0 {
			(*list)[n-1] += " " + trimmed
		} else {
			*list = append(*list, trimmed)
		}
	}
	return gaps, recs
}
