package review

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"
)

// textPath leads from the top of a generateContent reply to the text of the
// first part of the first candidate.
var textPath = []string{"candidates", "0", "content", "parts", "0", "text"}

// ExtractText walks textPath one step at a time so the first step that fails
// is the one reported.
func ExtractText(body []byte) (string, error) {
	if !gjson.ValidBytes(body) {
		return "", &ResponseShapeError{Reason: "response body is not valid JSON"}
	}

	cur := gjson.ParseBytes(body)
	walked := make([]string, 0, len(textPath))

	for _, step := range textPath {
		at := location(walked)

		if idx, err := strconv.Atoi(step); err == nil {
			if !cur.IsArray() {
				return "", shapeErrorf("expected array at %s, got %s", at, kind(cur))
			}

			items := cur.Array()
			if idx >= len(items) {
				return "", shapeErrorf(
					"index %d out of range at %s (length %d)",
					idx, at, len(items),
				)
			}

			cur = items[idx]
		} else {
			if !cur.IsObject() {
				return "", shapeErrorf("expected object at %s, got %s", at, kind(cur))
			}

			next := lastMember(cur, step)
			if !next.Exists() {
				return "", shapeErrorf("missing key %q at %s", step, at)
			}

			cur = next
		}

		walked = append(walked, step)
	}

	if cur.Type != gjson.String {
		return "", shapeErrorf("expected string at %s, got %s", location(walked), kind(cur))
	}

	return cur.String(), nil
}

func shapeErrorf(format string, args ...any) error {
	return &ResponseShapeError{Reason: fmt.Sprintf(format, args...)}
}

// location renders walked steps as candidates[0].content.parts[0].
func location(steps []string) string {
	if len(steps) == 0 {
		return "root"
	}

	var sb strings.Builder

	for _, s := range steps {
		if _, err := strconv.Atoi(s); err == nil {
			sb.WriteString("[" + s + "]")
			continue
		}
		if sb.Len() > 0 {
			sb.WriteString(".")
		}
		sb.WriteString(s)
	}

	return sb.String()
}

func kind(r gjson.Result) string {
	switch {
	case r.IsArray():
		return "array"
	case r.IsObject():
		return "object"
	}

	switch r.Type {
	case gjson.String:
		return "string"
	case gjson.Number:
		return "number"
	case gjson.True, gjson.False:
		return "boolean"
	default:
		return "null"
	}
}

// lastMember returns the value of `key` in `obj`. When the key repeats, the
// last occurrence wins.
func lastMember(obj gjson.Result, key string) gjson.Result {
	var found gjson.Result

	obj.ForEach(
		func(k, v gjson.Result) bool {
			if k.String() == key {
				found = v
			}
			return true
		},
	)

	return found
}
