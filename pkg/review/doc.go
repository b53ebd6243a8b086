// Package review sends a plan document to Gemini for review and prints what
// comes back.
//
// The run is one straight line: read the plan, build the prompt, send it
// once, then print either the model's text, a response structure error with
// the indented JSON, or the HTTP status with the raw body.
package review
