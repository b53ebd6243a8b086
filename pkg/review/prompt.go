package review

import (
	"fmt"
	"os"
	"unicode/utf8"
)

// PlanDocument is the full text of the plan under review.
type PlanDocument string

const (
	DefaultPersona           = "a senior DevOps engineer"
	DefaultSubject           = "a Git branch merge plan"
	DefaultApprovalThreshold = 100

	PlanHeading     = "## FULL IMPLEMENTATION PLAN:"
	ResponseHeading = "## Required Response Format (JSON only):"
)

// Criteria are the review criteria named in every prompt, in order.
var Criteria = []string{
	"Completeness",
	"Safety",
	"Best Practices",
	"Verification",
	"Risk Management",
	"Clarity",
}

const promptTemplate = `You are %s reviewing %s.

Review the following COMPLETE implementation plan and provide a score from 0-100.

## Review Criteria:
1. Completeness - Does the plan cover all merge steps?
2. Safety - Are there proper rollback procedures?
3. Best Practices - Does it follow Git best practices?
4. Verification - Are there proper verification steps?
5. Risk Management - Are risks identified and mitigated?
6. Clarity - Is the plan clear and unambiguous?

` + PlanHeading + `

%s

` + ResponseHeading + `
{
  "score": <number 0-100>,
  "summary": "<brief assessment>",
  "issues": [
    {
      "severity": "critical|warning|info",
      "category": "<category>",
      "description": "<issue description>",
      "suggestion": "<fix suggestion>"
    }
  ],
  "strengths": ["<strength 1>", "<strength 2>"],
  "approved": <boolean - true if score >= %d>
}`

// PromptOptions fills the template. Empty persona or subject fall back to the
// defaults; ApprovalThreshold is used as given, so start from
// DefaultPromptOptions.
type PromptOptions struct {
	Persona           string
	Subject           string
	ApprovalThreshold int
}

func DefaultPromptOptions() PromptOptions {
	return PromptOptions{
		Persona:           DefaultPersona,
		Subject:           DefaultSubject,
		ApprovalThreshold: DefaultApprovalThreshold,
	}
}

// BuildPrompt places `doc` verbatim between the plan and response headings.
// The document is not escaped or checked; whatever it contains, including
// text that looks like more prompt, goes to the model as is.
func BuildPrompt(doc PlanDocument, opts PromptOptions) string {
	d := DefaultPromptOptions()

	if opts.Persona == "" {
		opts.Persona = d.Persona
	}
	if opts.Subject == "" {
		opts.Subject = d.Subject
	}

	return fmt.Sprintf(
		promptTemplate,
		opts.Persona,
		opts.Subject,
		string(doc),
		opts.ApprovalThreshold,
	)
}

// ReadPlan loads the whole file at `path` as UTF-8 text.
func ReadPlan(path string) (PlanDocument, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return "", &FileAccessError{Path: path, Err: err}
	}

	if !utf8.Valid(b) {
		return "", &FileAccessError{Path: path, Err: ErrInvalidEncoding}
	}

	return PlanDocument(b), nil
}
