// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package prompt

import (
	"strings"
	"text/template"
)

// srsData feeds the SRS authoring templates.
type srsData struct {
	URD       string
	Reference string
	SRS       string
	Report    string
	Previous  string
}

// srsGenerateTmpl produces a first SRS draft from a URD, optionally guided
// by a reference standard. Per prd006-authoring R1.
var srsGenerateTmpl = template.Must(template.New("srs-generate").Parse(`You are a senior software requirements engineer creating a Software Requirements Specification (SRS).

Transform the user requirements below into a professional, complete SRS document.

**USER REQUIREMENTS DOCUMENT (URD):**
{{.URD}}
{{if .Reference}}
**REFERENCE STANDARD (follow its structure and guidelines):**
{{.Reference}}
{{end}}
Instructions:
1. Transform the user requirements into technical software requirements.
2. Include functional requirements, non-functional requirements, and constraints.
3. Make requirements specific, measurable, achievable, relevant, and time-bound.
4. Assign clear requirement IDs and priorities, with traceability back to user needs.
5. Include: Introduction (purpose, scope, definitions), Overall Description, and Specific Requirements sections.

Generate the complete SRS document now:
`))

// srsValidateTmpl audits an SRS against its URD. The <errors: N> tag at the
// end of the report is the machine-readable convergence signal for the
// improvement loop (R2.2); a report without it fails extraction.
var srsValidateTmpl = template.Must(template.New("srs-validate").Parse(`You work in software requirements quality and auditing. Validate the SRS below against its originating URD{{if .Reference}} and the reference standard{{end}}.

**USER REQUIREMENTS DOCUMENT (URD):**
{{.URD}}

**SRS TO VALIDATE:**
{{.SRS}}
{{if .Reference}}
**REFERENCE STANDARD:**
{{.Reference}}
{{end}}{{if .Previous}}
**PREVIOUS VALIDATION REPORT:**
{{.Previous}}

NOTE: This SRS may be a revision addressing the previous report. Credit fixes that were applied; re-raise issues that were not.
{{end}}
Validate that:
1. Every user requirement from the URD is present and properly addressed in the SRS.
2. The document structure is complete and requirements are specific, measurable, and testable.
3. There are no inconsistencies, ambiguities, or orphaned requirements.

Provide a validation report with an executive summary, a detailed analysis, and a clear identification of each problem found.

**CRITICAL: end your report with a tag stating the total number of problems found, in exactly this format:**
<errors: N>

where N is the count (e.g. <errors: 3>, <errors: 0>). Automated tooling reads this tag to decide whether the SRS passed the audit.

Generate the SRS Validation Report now:
`))

// srsReviewTmpl revises an SRS to address a validation report (R3).
var srsReviewTmpl = template.Must(template.New("srs-review").Parse(`You are the software engineer who wrote the SRS below. The quality and auditing department reviewed it and produced the validation report that follows. Create a new, improved SRS that addresses every issue they identified.

**YOUR ORIGINAL SRS DOCUMENT:**
{{.SRS}}

**VALIDATION REPORT WITH FEEDBACK:**
{{.Report}}

Instructions:
1. Fix every problem identified in the validation report: missing requirements, ambiguous statements, incomplete sections.
2. Keep the existing document structure and numbering; update the version history to note this revision.
3. Make requirements more specific, measurable, and testable; keep requirement IDs and traceability intact.
4. Do not drop content that the report did not flag.

Output the complete revised SRS document, ready for the next audit. Create it now:
`))

// SRSGeneration builds the initial SRS drafting prompt.
func SRSGeneration(urd, reference string) string {
	return render(srsGenerateTmpl, srsData{URD: urd, Reference: reference})
}

// SRSValidation builds the audit prompt. previousReport may be empty on the
// first pass.
func SRSValidation(urd, srs, reference, previousReport string) string {
	return render(srsValidateTmpl, srsData{
		URD:       urd,
		SRS:       srs,
		Reference: reference,
		Previous:  strings.TrimSpace(previousReport),
	})
}

// SRSReview builds the revision prompt from an SRS and its audit report.
func SRSReview(srs, report string) string {
	return render(srsReviewTmpl, srsData{SRS: srs, Report: report})
}
