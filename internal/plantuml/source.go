// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package plantuml renders PlantUML diagram sources to images, via a local
// binary or a container runtime, and cleans generated model output into
// compilable source text.
// Implements: prd002-rendering (R1-R5);
//
//	docs/ARCHITECTURE § Diagram Renderer.
package plantuml

import "strings"

const (
	startMarker = "@startuml"
	endMarker   = "@enduml"
)

// ExtractBlock pulls the PlantUML block out of raw model output. Generative
// models routinely wrap the diagram in markdown fences or surround it with
// prose despite instructions not to. When @startuml/@enduml markers are
// present the block between them (inclusive) is returned; otherwise fence
// lines are stripped and missing markers are added around what remains.
func ExtractBlock(response string) string {
	start := strings.Index(response, startMarker)
	end := strings.Index(response, endMarker)
	if start != -1 && end != -1 && end > start {
		return strings.TrimSpace(response[start : end+len(endMarker)])
	}

	var cleaned []string
	for _, line := range strings.Split(strings.TrimSpace(response), "\n") {
		if strings.HasPrefix(strings.TrimSpace(line), "```") {
			continue
		}
		cleaned = append(cleaned, line)
	}
	text := strings.TrimSpace(strings.Join(cleaned, "\n"))

	if !strings.HasPrefix(text, startMarker) {
		text = startMarker + "\n" + text
	}
	if !strings.HasSuffix(text, endMarker) {
		text = text + "\n" + endMarker
	}
	return text
}
