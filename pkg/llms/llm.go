package llms

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/pkg/errors"

	"codeberg.org/n30w/planreview/pkg/utils"
)

// DefaultGeminiModel is the model reviews are sent to unless told otherwise.
const DefaultGeminiModel = "gemini-2.5-pro"

// Reply is what came back from a generation request: the HTTP status and the
// body untouched. Deciding what a non-200 status or an odd body means is left
// to the caller.
type Reply struct {
	StatusCode int
	Body       []byte
}

// Generator sends a single prompt to a model.
type Generator interface {
	Generate(ctx context.Context, prompt string) (*Reply, error)
	String() string
}

type llm struct {
	// model is the name of the model.
	model string

	defaultConfig RequestConfig

	retry RetryPolicy

	logger *log.Logger
}

func newLLM(mc ModelConfig, l *log.Logger) (*llm, error) {
	if mc.Retry == (RetryPolicy{}) {
		mc.Retry = DefaultRetryPolicy()
	}

	err := mc.validate()
	if err != nil {
		return nil, errors.Wrap(err, "invalid model config")
	}

	l.Debugf(
		"Creating new LLM instance: model=%s temperature=%v max_tokens=%d attempts=%d timeout=%s",
		mc.Model,
		mc.Temperature,
		mc.MaxTokens,
		mc.Retry.MaxAttempts,
		mc.Retry.Timeout,
	)

	return &llm{
		model:         mc.Model,
		defaultConfig: mc.RequestConfig,
		retry:         mc.Retry,
		logger:        l,
	}, nil
}

func (l *llm) timer() func() time.Duration {
	return utils.Timer(time.Now())
}

func (l *llm) logTime(d time.Duration) {
	l.logger.Debugf("%s responded in %s", l.model, d)
}

type Transport int

const (
	TransportREST Transport = iota
	TransportSDK
	InvalidTransport
)

func (t Transport) String() string {
	s := "invalid"

	switch t {
	case TransportREST:
		s = "rest"
	case TransportSDK:
		s = "sdk"
	default:
	}

	return s
}

func ParseTransport(s string) (Transport, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "rest":
		return TransportREST, nil
	case "sdk":
		return TransportSDK, nil
	default:
		return InvalidTransport, errors.Errorf("unknown transport %q, want rest or sdk", s)
	}
}

type ModelConfig struct {
	Model string

	// BaseURL replaces the public Gemini endpoint host, for proxies and tests.
	BaseURL string

	// HTTPClient is used for every request when set.
	HTTPClient *http.Client

	// Structured asks the model for JSON matching the review schema. Only
	// the SDK transport can send a response schema.
	Structured bool

	Retry RetryPolicy

	RequestConfig
}

func (cfg *ModelConfig) validate() error {
	if cfg.Model == "" {
		return errors.New("missing model")
	}

	err := cfg.Retry.validate()
	if err != nil {
		return err
	}

	err = cfg.RequestConfig.validate()
	if err != nil {
		return err
	}

	return nil
}

type RequestConfig struct {
	Temperature float64
	MaxTokens   int64
}

// DefaultRequestConfig is the generation config every review is sent with.
func DefaultRequestConfig() RequestConfig {
	return *defaultGeminiRequestConfig
}

func (cfg RequestConfig) validate() error {
	if cfg.Temperature < 0.0 || cfg.Temperature > 2.0 {
		return errors.New("temperature must be between 0.0 and 2.0")
	}
	if cfg.MaxTokens < 1 {
		return errors.New("max_tokens must be greater than 0")
	}
	return nil
}

// New builds the Generator for transport `t`.
func New(
	ctx context.Context,
	t Transport,
	apiKey string,
	mc ModelConfig,
	logger *log.Logger,
) (Generator, error) {
	switch t {
	case TransportREST:
		g, err := NewGoogleGemini(apiKey, mc, logger)
		if err != nil {
			return nil, err
		}
		return g, nil
	case TransportSDK:
		g, err := NewGoogleGeminiSDK(ctx, apiKey, mc, logger)
		if err != nil {
			return nil, err
		}
		return g, nil
	default:
		return nil, errors.Errorf("unsupported transport %s", t)
	}
}
