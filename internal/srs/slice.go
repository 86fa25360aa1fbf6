// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package srs covers requirements-document workflows: slicing a document
// into refinement units and the iterative SRS authoring loop.
// Implements: prd006-authoring (R1-R5);
//
//	docs/ARCHITECTURE § SRS Authoring.
package srs

import (
	"fmt"
	"strings"

	"github.com/pdiddy/design-engine/pkg/types"
)

// SliceDocument splits a Markdown requirements document into named slices at
// ## and ### heading boundaries. Content before the first heading becomes a
// "preamble" slice when non-empty. Slice names are slugs derived from the
// headings, deduplicated with numeric suffixes.
func SliceDocument(content string) []types.RequirementsSlice {
	var slices []types.RequirementsSlice
	seen := map[string]int{}

	currentHeading := ""
	var bodyLines []string

	flush := func() {
		body := strings.TrimSpace(strings.Join(bodyLines, "\n"))
		bodyLines = nil
		if body == "" {
			return
		}
		name := "preamble"
		if currentHeading != "" {
			name = slug(currentHeading)
		}
		seen[name]++
		if n := seen[name]; n > 1 {
			name = fmt.Sprintf("%s-%d", name, n)
		}
		slices = append(slices, types.RequirementsSlice{Name: name, Text: body})
	}

	for _, line := range strings.Split(content, "\n") {
		trimmed := strings.TrimSpace(line)
		if isHeading(trimmed) {
			flush()
			currentHeading = stripHeadingPrefix(trimmed)
			continue
		}
		bodyLines = append(bodyLines, line)
	}
	flush()

	return slices
}

func isHeading(line string) bool {
	return strings.HasPrefix(line, "## ") || strings.HasPrefix(line, "### ")
}

func stripHeadingPrefix(line string) string {
	return strings.TrimSpace(strings.TrimLeft(line, "#"))
}

// slug lowercases a heading and collapses runs of non-alphanumerics to
// single hyphens.
func slug(heading string) string {
	var b strings.Builder
	lastHyphen := true // suppress a leading hyphen
	for _, r := range strings.ToLower(heading) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastHyphen = false
		default:
			if !lastHyphen {
				b.WriteByte('-')
				lastHyphen = true
			}
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}
