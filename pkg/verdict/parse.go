package verdict

import (
	"regexp"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"github.com/xeipuuv/gojsonschema"

	"codeberg.org/n30w/planreview/pkg/utils"
)

var (
	ErrEmptyReply    = errors.New("reply is empty")
	ErrSchemaInvalid = errors.New("reply does not match review schema")
)

var fencePattern = regexp.MustCompile("(?s)^```[a-zA-Z]*\\s*\\n(.*?)\\n?```$")

var (
	schemaOnce   sync.Once
	schemaLoader gojsonschema.JSONLoader
	schemaErr    error
)

// Schema returns the JSON schema generated from Result.
func Schema() ([]byte, error) {
	return utils.GenerateJsonSchema[Result]()
}

func loader() (gojsonschema.JSONLoader, error) {
	schemaOnce.Do(
		func() {
			raw, err := Schema()
			if err != nil {
				schemaErr = err
				return
			}
			schemaLoader = gojsonschema.NewBytesLoader(raw)
		},
	)

	return schemaLoader, schemaErr
}

// StripFence removes a surrounding Markdown code fence, which models tend to
// add even when asked for bare JSON.
func StripFence(text string) string {
	t := strings.TrimSpace(text)

	m := fencePattern.FindStringSubmatch(t)
	if m == nil {
		return t
	}

	return strings.TrimSpace(m[1])
}

// ParseResult validates a model reply against the Result schema and decodes
// it.
func ParseResult(text string) (*Result, error) {
	body := StripFence(text)
	if body == "" {
		return nil, ErrEmptyReply
	}

	l, err := loader()
	if err != nil {
		return nil, errors.Wrap(err, "failed to load review schema")
	}

	res, err := gojsonschema.Validate(l, gojsonschema.NewStringLoader(body))
	if err != nil {
		return nil, errors.Wrap(err, "failed to validate reply")
	}

	if !res.Valid() {
		msgs := make([]string, 0, len(res.Errors()))
		for _, e := range res.Errors() {
			msgs = append(msgs, e.String())
		}
		return nil, errors.Wrap(ErrSchemaInvalid, strings.Join(msgs, "; "))
	}

	r, err := utils.Unmarshal[Result](body)
	if err != nil {
		return nil, errors.Wrap(err, "failed to decode reply")
	}

	return &r, nil
}
