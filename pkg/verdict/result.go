// Package verdict holds the review document the model is asked to return and
// the helpers that read it back out of a reply.
package verdict

type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityWarning  Severity = "warning"
	SeverityInfo     Severity = "info"
)

// Issue is a single finding raised against the plan.
type Issue struct {
	Severity    Severity `json:"severity" jsonschema:"enum=critical,enum=warning,enum=info" jsonschema_description:"Issue severity"`
	Category    string   `json:"category" jsonschema_description:"Review criterion the issue falls under"`
	Description string   `json:"description" jsonschema_description:"Issue description"`
	Suggestion  string   `json:"suggestion" jsonschema_description:"Fix suggestion"`
}

// Result is the JSON document requested by the review prompt.
type Result struct {
	Score     int      `json:"score" jsonschema:"minimum=0,maximum=100" jsonschema_description:"Score from 0 to 100"`
	Summary   string   `json:"summary" jsonschema_description:"Brief assessment"`
	Issues    []Issue  `json:"issues" jsonschema_description:"Problems found in the plan"`
	Strengths []string `json:"strengths" jsonschema_description:"What the plan does well"`
	Approved  bool     `json:"approved" jsonschema_description:"Whether the plan is approved"`
}

// Counts tallies issues by severity. Unknown severities are not counted.
func (r Result) Counts() map[Severity]int {
	c := map[Severity]int{
		SeverityCritical: 0,
		SeverityWarning:  0,
		SeverityInfo:     0,
	}

	for _, issue := range r.Issues {
		if _, ok := c[issue.Severity]; ok {
			c[issue.Severity]++
		}
	}

	return c
}

// MeetsThreshold reports whether the score reaches the approval threshold.
// It is independent of what the model put in Approved.
func (r Result) MeetsThreshold(threshold int) bool {
	return r.Score >= threshold
}
