package llms

import (
	"google.golang.org/genai"

	"codeberg.org/n30w/planreview/pkg/verdict"
)

func init() {
	registerSchema[verdict.Result](
		&genai.Schema{
			Type: genai.TypeObject,
			Properties: map[string]*genai.Schema{
				"score": {
					Type:        genai.TypeInteger,
					Description: "Score from 0 to 100",
					Minimum:     genai.Ptr(0.0),
					Maximum:     genai.Ptr(100.0),
				},
				"summary": {
					Type:        genai.TypeString,
					Description: "Brief assessment",
				},
				"issues": {
					Type: genai.TypeArray,
					Items: &genai.Schema{
						Type: genai.TypeObject,
						Properties: map[string]*genai.Schema{
							"severity": {
								Type: genai.TypeString,
								Enum: []string{
									string(verdict.SeverityCritical),
									string(verdict.SeverityWarning),
									string(verdict.SeverityInfo),
								},
							},
							"category": {
								Type:        genai.TypeString,
								Description: "Review criterion the issue falls under",
							},
							"description": {
								Type:        genai.TypeString,
								Description: "Issue description",
							},
							"suggestion": {
								Type:        genai.TypeString,
								Description: "Fix suggestion",
							},
						},
						Required: []string{"severity", "category", "description", "suggestion"},
					},
				},
				"strengths": {
					Type:  genai.TypeArray,
					Items: &genai.Schema{Type: genai.TypeString},
				},
				"approved": {
					Type:        genai.TypeBoolean,
					Description: "Whether the plan is approved",
				},
			},
			Required: []string{"score", "summary", "issues", "strengths", "approved"},
		},
	)
}
