package main

import (
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
	"github.com/pkg/errors"

	"codeberg.org/n30w/planreview/pkg/llms"
	"codeberg.org/n30w/planreview/pkg/review"
)

const (
	DefaultConfigPath   = "planreview.toml"
	DefaultEnvFilePath  = ".env"
	DefaultTransport    = "rest"
	DefaultRetries      = 1
	DefaultRetryDelay   = time.Second
	DefaultDebugToggle  = false
	DefaultVerdict      = false
	DefaultStrictToggle = false
)

// apiKeyEnvVars are read in order; the first one set wins.
var apiKeyEnvVars = []string{"GEMINI_API_KEY", "GOOGLE_API_KEY"}

var errNoPlanFile = errors.New("no plan file given; pass one as an argument or set plan_file in the config file")

type promptConfig struct {
	Persona           string `toml:"persona"`
	Subject           string `toml:"subject"`
	ApprovalThreshold int    `toml:"approval_threshold"`
}

type requestConfig struct {
	Transport  string `toml:"transport"`
	Timeout    string `toml:"timeout"`
	Retries    int    `toml:"retries"`
	RetryDelay string `toml:"retry_delay"`
	Structured bool   `toml:"structured"`
}

// userConfig mirrors planreview.toml. The API key is deliberately absent.
type userConfig struct {
	PlanFile string        `toml:"plan_file"`
	Model    string        `toml:"model"`
	BaseURL  string        `toml:"base_url"`
	Request  requestConfig `toml:"request"`
	Prompt   promptConfig  `toml:"prompt"`
}

func defaultUserConfig() userConfig {
	p := review.DefaultPromptOptions()

	return userConfig{
		Model: llms.DefaultGeminiModel,
		Request: requestConfig{
			Transport:  DefaultTransport,
			Retries:    DefaultRetries,
			RetryDelay: DefaultRetryDelay.String(),
		},
		Prompt: promptConfig{
			Persona:           p.Persona,
			Subject:           p.Subject,
			ApprovalThreshold: p.ApprovalThreshold,
		},
	}
}

// loadUserConfig decodes `path` over the defaults. A missing file is fine
// unless the caller named it explicitly.
func loadUserConfig(path string, required bool) (userConfig, error) {
	conf := defaultUserConfig()

	_, err := toml.DecodeFile(path, &conf)
	switch {
	case err == nil:
		return conf, nil
	case errors.Is(err, fs.ErrNotExist) && !required:
		return conf, nil
	default:
		return conf, errors.Wrapf(err, "failed to load config %s", path)
	}
}

// loadEnvFile loads KEY=value pairs without overriding the environment.
func loadEnvFile(path string, required bool) error {
	err := godotenv.Load(path)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, fs.ErrNotExist) && !required:
		return nil
	default:
		return errors.Wrapf(err, "failed to load env file %s", path)
	}
}

func apiKeyFromEnv() string {
	for _, k := range apiKeyEnvVars {
		if v := strings.TrimSpace(os.Getenv(k)); v != "" {
			return v
		}
	}
	return ""
}

// config is the fully resolved run configuration.
type config struct {
	PlanFile   string
	APIKey     string
	Transport  llms.Transport
	Model      llms.ModelConfig
	Prompt     review.PromptOptions
	Verdict    bool
	DryRun     bool
	Strict     bool
	Debug      bool
	ConfigPath string
}

func parseDuration(name, s string) (time.Duration, error) {
	if strings.TrimSpace(s) == "" {
		return 0, nil
	}

	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, errors.Wrapf(err, "invalid %s", name)
	}

	return d, nil
}
