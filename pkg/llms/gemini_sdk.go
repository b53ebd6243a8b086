package llms

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/pkg/errors"
	"google.golang.org/genai"

	"codeberg.org/n30w/planreview/pkg/verdict"
)

// GoogleGeminiSDK goes through the genai client. A successful reply carries the
// body bytes the server sent, so it reads the same as a REST one.
type GoogleGeminiSDK struct {
	*llm
	client     *genai.Client
	structured bool
}

func NewGoogleGeminiSDK(
	ctx context.Context,
	apiKey string,
	mc ModelConfig,
	logger *log.Logger,
) (*GoogleGeminiSDK, error) {
	if apiKey == "" {
		return nil, ErrMissingAPIKey
	}

	l, err := newLLM(mc, logger)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create Gemini client")
	}

	cc := &genai.ClientConfig{
		APIKey:     apiKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: recordingClient(mc.HTTPClient),
	}

	if mc.BaseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: mc.BaseURL}
	}

	c, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create genai client")
	}

	return &GoogleGeminiSDK{
		llm:        l,
		client:     c,
		structured: mc.Structured,
	}, nil
}

func (c GoogleGeminiSDK) buildRequestParams() (*genai.GenerateContentConfig, error) {
	params := &genai.GenerateContentConfig{
		Temperature:     genai.Ptr(float32(c.defaultConfig.Temperature)),
		MaxOutputTokens: int32(c.defaultConfig.MaxTokens),
	}

	if c.structured {
		s, err := lookupSchema[verdict.Result]()
		if err != nil {
			return nil, errors.Wrap(err, "failed to retrieve schema for gemini")
		}

		params.ResponseMIMEType = structuredResponseMIME
		params.ResponseSchema = s
	}

	return params, nil
}

// Generate sends `prompt` through the SDK. A genai.APIError becomes a Reply
// carrying the API status code and message.
func (c GoogleGeminiSDK) Generate(ctx context.Context, prompt string) (*Reply, error) {
	t := c.timer()

	params, err := c.buildRequestParams()
	if err != nil {
		return nil, err
	}

	reply, err := c.retry.run(
		ctx, c.logger, c.String(),
		func(ctx context.Context) (*Reply, error) {
			sink := &rawBody{}

			res, err := c.client.Models.GenerateContent(
				context.WithValue(ctx, rawBodyKey{}, sink),
				c.model,
				genai.Text(prompt),
				params,
			)
			if err != nil {
				if apiErr, ok := asAPIError(err); ok {
					return &Reply{
						StatusCode: apiErr.Code,
						Body:       []byte(apiErr.Message),
					}, nil
				}
				return nil, err
			}

			if len(sink.b) > 0 {
				return &Reply{StatusCode: http.StatusOK, Body: sink.b}, nil
			}

			// Nothing recorded: fall back to re-encoding, which drops empty
			// fields and anything genai does not model.
			res.SDKHTTPResponse = nil
			b, err := json.Marshal(res)
			if err != nil {
				return nil, errors.Wrap(err, "failed to encode genai response")
			}

			return &Reply{StatusCode: http.StatusOK, Body: b}, nil
		},
	)
	if err != nil {
		return nil, err
	}

	c.logTime(t())

	return reply, nil
}

func asAPIError(err error) (genai.APIError, bool) {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}

	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) && apiErrPtr != nil {
		return *apiErrPtr, true
	}

	return genai.APIError{}, false
}

func (c GoogleGeminiSDK) String() string {
	return fmt.Sprintf("Google Gemini %s (sdk)", c.model)
}

type rawBodyKey struct{}

// rawBody receives the response bytes of one GenerateContent call.
type rawBody struct {
	b []byte
}

// recordingTransport copies each response body into the rawBody found on the
// request context and hands genai an identical reader.
type recordingTransport struct {
	next http.RoundTripper
}

func (rt recordingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	res, err := rt.next.RoundTrip(req)
	if err != nil {
		return nil, err
	}

	sink, ok := req.Context().Value(rawBodyKey{}).(*rawBody)
	if !ok {
		return res, nil
	}

	b, err := io.ReadAll(res.Body)
	_ = res.Body.Close()
	if err != nil {
		return nil, errors.Wrap(err, "failed to read response body")
	}

	sink.b = b
	res.Body = io.NopCloser(bytes.NewReader(b))

	return res, nil
}

// recordingClient returns a copy of `hc` whose transport records bodies.
func recordingClient(hc *http.Client) *http.Client {
	if hc == nil {
		hc = &http.Client{}
	}

	next := hc.Transport
	if next == nil {
		next = http.DefaultTransport
	}

	c := *hc
	c.Transport = recordingTransport{next: next}

	return &c
}
