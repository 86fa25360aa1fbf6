// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package prompt builds the prompts sent to the generative model: per-kind
// diagram prompts, the joint validation prompt, and the SRS authoring
// prompts. All functions are pure transformations of their inputs.
// Implements: prd004-prompting (R1-R4);
//
//	docs/ARCHITECTURE § Prompt Synthesizer.
package prompt

import (
	"fmt"
	"strings"
	"text/template"

	"github.com/pdiddy/design-engine/pkg/types"
)

// sliceData feeds the per-kind baseline templates.
type sliceData struct {
	Name string
	Text string
}

// classTmpl is the structural-view baseline. The scoping instruction is part
// of the contract: downstream validation checks for scope violations, so the
// generator must be told to stay inside the slice boundary (R1.3).
var classTmpl = template.Must(template.New("class").Parse(`You are a senior software architect and UML modeling expert. Create a comprehensive Class Diagram in PlantUML format from the requirements slice below.

Constraints:
1. Identify the attributes (fields) and operations (methods) for each class.
2. Define relationships: use --|> for inheritance, *-- for composition, o-- for aggregation.
3. Add multiplicity (e.g. 1..*) to every relationship.
4. Model ONLY the "{{.Name}}" slice. Exclude classes, features, and flows that belong to other requirement slices.
5. Generate ONLY PlantUML code, starting with @startuml and ending with @enduml. No explanations or additional text.

REQUIREMENTS SLICE ({{.Name}}):
{{.Text}}

Generate the PlantUML Class Diagram code:
`))

// sequenceTmpl is the interaction-view baseline.
var sequenceTmpl = template.Must(template.New("sequence").Parse(`You are a senior software architect. Create a detailed Sequence Diagram in PlantUML format for the "{{.Name}}" feature from the requirements slice below.

Constraints:
1. Use autonumber to index the steps.
2. Clearly define participants: actor User, participant App, participant API, database DB (adjust names to the slice).
3. Use alt/else blocks for the error and failure paths mentioned in the text.
4. Model ONLY the "{{.Name}}" slice. Exclude interactions that belong to other requirement slices.
5. Generate ONLY PlantUML code, starting with @startuml and ending with @enduml. No explanations or additional text.

REQUIREMENTS SLICE ({{.Name}}):
{{.Text}}

Generate the PlantUML Sequence Diagram code:
`))

// activityTmpl is the workflow-view baseline. Modern activity syntax only;
// the old (*) notation renders inconsistently.
var activityTmpl = template.Must(template.New("activity").Parse(`You are a senior software architect. Create a comprehensive Activity Diagram in PlantUML format representing the logic flow of the requirements slice below, using MODERN PlantUML activity syntax.

Syntax requirements:
1. Begin the flow with start and end it with stop.
2. Use :Action description; for activities.
3. Use if (condition?) then (yes) ... else (no) ... endif for decisions.
4. Do NOT use the old (*) start/stop notation.
5. Model ONLY the "{{.Name}}" slice. Exclude workflows that belong to other requirement slices.
6. Generate ONLY PlantUML code, starting with @startuml and ending with @enduml. No explanations or additional text.

REQUIREMENTS SLICE ({{.Name}}, focus on business logic and decision flows):
{{.Text}}

Generate the PlantUML Activity Diagram code:
`))

func baseline(kind types.ArtifactKind) *template.Template {
	switch kind {
	case types.KindSequence:
		return sequenceTmpl
	case types.KindActivity:
		return activityTmpl
	default:
		return classTmpl
	}
}

// Synthesize produces the generation prompt for one artifact kind. When
// prior is nil the baseline prompt is returned. When prior carries the
// previous iteration's metrics, the baseline is extended with an ordered
// restatement of its gaps and recommendations as mandatory corrections;
// nothing from the prior feedback is dropped (R2.1-R2.3).
func Synthesize(slice types.RequirementsSlice, kind types.ArtifactKind, prior *types.MetricsRecord) string {
	base := render(baseline(kind), sliceData{Name: slice.Name, Text: slice.Text})
	if prior == nil {
		return base
	}

	var b strings.Builder
	b.WriteString(base)
	fmt.Fprintf(&b, "\nThe previous version of this diagram set scored %s/10 in QA validation.\n", formatScore(prior.Overall))
	b.WriteString("MANDATORY CORRECTIONS — the new version must address every item below, in the order given.\n")

	if len(prior.Gaps) > 0 {
		b.WriteString("\nIdentified gaps:\n")
		for i, gap := range prior.Gaps {
			fmt.Fprintf(&b, "%d. %s\n", i+1, gap)
		}
	}
	if len(prior.Recommendations) > 0 {
		b.WriteString("\nRecommendations:\n")
		for i, rec := range prior.Recommendations {
			fmt.Fprintf(&b, "%d. %s\n", i+1, rec)
		}
	}

	b.WriteString("\nGenerate the improved diagram now. Make meaningful improvements; do not simply repeat the previous version.\n")
	return b.String()
}

// kindHeadings labels each artifact kind in the validation prompt.
var kindHeadings = map[types.ArtifactKind]string{
	types.KindClass:    "CLASS DIAGRAM (Structure)",
	types.KindSequence: "SEQUENCE DIAGRAM (Interactions)",
	types.KindActivity: "ACTIVITY DIAGRAM (Logic/Workflow)",
}

// Validation builds the single joint validation prompt for one iteration.
// Every attempt is included — failed compiles and failed generations are
// annotated with their failure reason so the validator can react to them
// (R3.2). The output-format section defines the tagged report grammar the
// score extractor recognizes (R3.3).
func Validation(slice types.RequirementsSlice, attempts []types.ArtifactAttempt) string {
	var b strings.Builder

	b.WriteString("You are a senior software architect and quality assurance expert. Validate the consistency and quality of the UML diagrams below against their requirements slice.\n\n")
	fmt.Fprintf(&b, "REQUIREMENTS SLICE (%s):\n%s\n\nGENERATED DIAGRAMS:\n", slice.Name, slice.Text)

	for i, a := range attempts {
		heading := kindHeadings[a.Kind]
		if heading == "" {
			heading = strings.ToUpper(string(a.Kind)) + " DIAGRAM"
		}
		fmt.Fprintf(&b, "\n%d. %s:\n%s\n", i+1, heading, describeAttempt(a))
	}

	b.WriteString(`
VALIDATION CRITERIA:
1. Scope adherence: Do the diagrams stay inside the slice boundary, or do they model content belonging to other slices?
2. Consistency: Do the diagrams contradict each other (e.g. the sequence diagram uses classes absent from the class diagram)?
3. Completeness: Do the diagrams cover all requirements in the slice?
4. Quality: Are the diagrams syntactically correct and do they follow UML best practices?

OUTPUT FORMAT — emit exactly these markers so the report can be parsed:

OVERALL SCORE: <n>/10
Scope Adherence Score: <n>/10
Consistency Score: <n>/10
Completeness Score: <n>/10
Quality Score: <n>/10

GAPS:
- one finding per line, highest priority first

RECOMMENDATIONS:
1. one action item per line, highest priority first

Scores are on a 0-10 scale; half points (e.g. 7.5) are allowed. After the markers you may add analysis prose, but the marker lines themselves must appear exactly once each.
`)
	return b.String()
}

// describeAttempt renders one attempt for the validation prompt, annotating
// failures instead of dropping them.
func describeAttempt(a types.ArtifactAttempt) string {
	switch {
	case !a.Generated():
		return fmt.Sprintf("Not generated (generation failed: %s)", a.FailureReason)
	case !a.Compiled():
		return fmt.Sprintf("[Diagram failed to compile: %s]\n%s", a.FailureReason, a.Source)
	default:
		return a.Source
	}
}

// formatScore prints a score without a trailing .0 for whole values.
func formatScore(v float64) string {
	if v == float64(int64(v)) {
		return fmt.Sprintf("%d", int64(v))
	}
	return fmt.Sprintf("%.1f", v)
}

// render executes a static template. The templates are parsed at init and
// the data is a plain struct, so execution cannot fail with well-formed
// inputs; a failure here is a programming error.
func render(tmpl *template.Template, data any) string {
	var b strings.Builder
	if err := tmpl.Execute(&b, data); err != nil {
		panic(fmt.Sprintf("prompt template %s: %v", tmpl.Name(), err))
	}
	return b.String()
}
