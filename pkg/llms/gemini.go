package llms

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/pkg/errors"

	"codeberg.org/n30w/planreview/pkg/network"
)

type GeminiPart struct {
	Text string `json:"text"`
}

type GeminiContent struct {
	Parts []GeminiPart `json:"parts"`
}

type GenerationConfig struct {
	Temperature     float64 `json:"temperature"`
	MaxOutputTokens int64   `json:"maxOutputTokens"`
}

// GenerateContentRequest is the JSON body of a generateContent call.
type GenerateContentRequest struct {
	Contents         []GeminiContent  `json:"contents"`
	GenerationConfig GenerationConfig `json:"generationConfig"`
}

// NewGenerateContentRequest wraps `prompt` as the single part of a single
// content entry.
func NewGenerateContentRequest(prompt string, rc RequestConfig) GenerateContentRequest {
	return GenerateContentRequest{
		Contents: []GeminiContent{
			{Parts: []GeminiPart{{Text: prompt}}},
		},
		GenerationConfig: GenerationConfig{
			Temperature:     rc.Temperature,
			MaxOutputTokens: rc.MaxTokens,
		},
	}
}

// GoogleGemini talks to the Gemini REST API directly, which keeps the raw
// status and body of every reply.
type GoogleGemini struct {
	*llm
	hc *network.HttpRequestClient
}

func NewGoogleGemini(
	apiKey string,
	mc ModelConfig,
	logger *log.Logger,
) (*GoogleGemini, error) {
	if apiKey == "" {
		return nil, ErrMissingAPIKey
	}

	l, err := newLLM(mc, logger)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create Gemini client")
	}

	u, err := GenerateContentURL(mc.BaseURL, mc.Model, apiKey)
	if err != nil {
		return nil, err
	}

	hc, err := network.NewHttpRequestClient(u, mc.HTTPClient, logger)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create http request client")
	}

	if mc.Structured {
		logger.Warn("Structured output needs the sdk transport, sending plain request")
	}

	return &GoogleGemini{
		llm: l,
		hc:  hc,
	}, nil
}

// GenerateContentURL builds
// <base>/v1beta/models/<model>:generateContent?key=<apiKey>.
func GenerateContentURL(base, model, apiKey string) (*url.URL, error) {
	if base == "" {
		base = defaultGeminiBaseURL
	}

	u, err := url.Parse(
		fmt.Sprintf(
			"%s/%s/models/%s:generateContent",
			strings.TrimRight(base, "/"),
			defaultGeminiVersion,
			model,
		),
	)
	if err != nil {
		return nil, errors.Wrap(err, "invalid Gemini endpoint")
	}

	q := u.Query()
	q.Set("key", apiKey)
	u.RawQuery = q.Encode()

	return u, nil
}

// Generate posts `prompt` to generateContent. Any HTTP reply, whatever its
// status, is returned as a Reply; only a failure to get one is an error.
func (c GoogleGemini) Generate(ctx context.Context, prompt string) (*Reply, error) {
	t := c.timer()

	send, err := c.hc.PreparePost(NewGenerateContentRequest(prompt, c.defaultConfig))
	if err != nil {
		return nil, errors.Wrap(err, "failed to build Gemini request")
	}

	reply, err := c.retry.run(
		ctx, c.logger, c.hc.Redacted(),
		func(ctx context.Context) (*Reply, error) {
			res, err := send(ctx)
			if err != nil {
				return nil, err
			}

			return &Reply{
				StatusCode: res.StatusCode,
				Body:       res.Body,
			}, nil
		},
	)
	if err != nil {
		return nil, err
	}

	c.logTime(t())

	return reply, nil
}

func (c GoogleGemini) String() string {
	return fmt.Sprintf("Google Gemini %s (rest)", c.model)
}
