package main

import (
	"io"

	"github.com/charmbracelet/log"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"codeberg.org/n30w/planreview/pkg/llms"
	"codeberg.org/n30w/planreview/pkg/review"
)

type options struct {
	configPath        string
	envFile           string
	apiKey            string
	model             string
	baseURL           string
	transport         string
	timeout           string
	retries           int
	retryDelay        string
	persona           string
	subject           string
	approvalThreshold int
	structured        bool
	verdict           bool
	dryRun            bool
	strict            bool
	debug             bool
}

func newRootCmd(stdout io.Writer, logger *log.Logger, opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "planreview [plan-file]",
		Short: "Send a plan document to Gemini for review and print the reply",
		Long: "planreview reads a plan document, asks a Gemini model to review it against six\n" +
			"criteria (Completeness, Safety, Best Practices, Verification, Risk Management,\n" +
			"Clarity) and prints the model's reply.",
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.debug {
				logger.SetLevel(log.DebugLevel)
				logger.SetReportCaller(true)
				logger.Debug("DEBUG is set to TRUE")
			}

			cfg, err := resolveConfig(cmd, args, opts)
			if err != nil {
				return err
			}

			return run(cmd, stdout, logger, cfg)
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.configPath, "config", DefaultConfigPath, "TOML configuration file path")
	f.StringVar(&opts.envFile, "env-file", DefaultEnvFilePath, "dotenv file loaded before reading the environment")
	f.StringVar(&opts.apiKey, "api-key", "", "Gemini API key (default $GEMINI_API_KEY, then $GOOGLE_API_KEY)")
	f.StringVar(&opts.model, "model", llms.DefaultGeminiModel, "Gemini model identifier")
	f.StringVar(&opts.baseURL, "base-url", "", "override the Gemini API base URL")
	f.StringVar(&opts.transport, "transport", DefaultTransport, "how to reach Gemini: rest or sdk")
	f.StringVar(&opts.timeout, "timeout", "", "per attempt timeout, e.g. 90s (default none)")
	f.IntVar(&opts.retries, "retries", DefaultRetries, "total attempts; 500 and 503 replies and network failures are retried")
	f.StringVar(&opts.retryDelay, "retry-delay", DefaultRetryDelay.String(), "wait before the first retry, doubled after each")
	f.StringVar(&opts.persona, "persona", review.DefaultPersona, "who the model reviews as")
	f.StringVar(&opts.subject, "subject", review.DefaultSubject, "what kind of plan is under review")
	f.IntVar(&opts.approvalThreshold, "approval-threshold", review.DefaultApprovalThreshold, "score at which the prompt tells the model to approve")
	f.BoolVar(&opts.structured, "structured", false, "request JSON output with a response schema (sdk transport)")
	f.BoolVar(&opts.verdict, "verdict", DefaultVerdict, "parse the reply as a review and log the verdict to stderr")
	f.BoolVar(&opts.dryRun, "dry-run", false, "print the request body instead of sending it")
	f.BoolVar(&opts.strict, "strict", DefaultStrictToggle, "exit 1 when the API or the reply shape reports an error")
	f.BoolVar(&opts.debug, "debug", DefaultDebugToggle, "debug mode, extra logging")

	return cmd
}

// resolveConfig layers defaults, the TOML file, the environment and flags, in
// that order.
func resolveConfig(cmd *cobra.Command, args []string, opts *options) (config, error) {
	flags := cmd.Flags()

	err := loadEnvFile(opts.envFile, flags.Changed("env-file"))
	if err != nil {
		return config{}, err
	}

	uc, err := loadUserConfig(opts.configPath, flags.Changed("config"))
	if err != nil {
		return config{}, err
	}

	if flags.Changed("model") {
		uc.Model = opts.model
	}
	if flags.Changed("base-url") {
		uc.BaseURL = opts.baseURL
	}
	if flags.Changed("transport") {
		uc.Request.Transport = opts.transport
	}
	if flags.Changed("timeout") {
		uc.Request.Timeout = opts.timeout
	}
	if flags.Changed("retries") {
		uc.Request.Retries = opts.retries
	}
	if flags.Changed("retry-delay") {
		uc.Request.RetryDelay = opts.retryDelay
	}
	if flags.Changed("structured") {
		uc.Request.Structured = opts.structured
	}
	if flags.Changed("persona") {
		uc.Prompt.Persona = opts.persona
	}
	if flags.Changed("subject") {
		uc.Prompt.Subject = opts.subject
	}
	if flags.Changed("approval-threshold") {
		uc.Prompt.ApprovalThreshold = opts.approvalThreshold
	}

	cfg := config{
		PlanFile:   uc.PlanFile,
		APIKey:     opts.apiKey,
		Verdict:    opts.verdict,
		DryRun:     opts.dryRun,
		Strict:     opts.strict,
		Debug:      opts.debug,
		ConfigPath: opts.configPath,
		Prompt: review.PromptOptions{
			Persona:           uc.Prompt.Persona,
			Subject:           uc.Prompt.Subject,
			ApprovalThreshold: uc.Prompt.ApprovalThreshold,
		},
	}

	if len(args) > 0 {
		cfg.PlanFile = args[0]
	}
	if cfg.PlanFile == "" {
		return config{}, errNoPlanFile
	}

	if cfg.APIKey == "" {
		cfg.APIKey = apiKeyFromEnv()
	}
	if cfg.APIKey == "" && !cfg.DryRun {
		return config{}, errors.Wrapf(
			llms.ErrMissingAPIKey,
			"set %s or pass --api-key",
			apiKeyEnvVars[0],
		)
	}

	if cfg.Prompt.ApprovalThreshold < 0 || cfg.Prompt.ApprovalThreshold > 100 {
		return config{}, errors.New("approval threshold must be between 0 and 100")
	}

	if uc.Request.Retries < 1 {
		return config{}, errors.New("retries must be at least 1")
	}

	cfg.Transport, err = llms.ParseTransport(uc.Request.Transport)
	if err != nil {
		return config{}, err
	}

	timeout, err := parseDuration("timeout", uc.Request.Timeout)
	if err != nil {
		return config{}, err
	}

	delay, err := parseDuration("retry delay", uc.Request.RetryDelay)
	if err != nil {
		return config{}, err
	}

	cfg.Model = llms.ModelConfig{
		Model:      uc.Model,
		BaseURL:    uc.BaseURL,
		Structured: uc.Request.Structured,
		Retry: llms.RetryPolicy{
			MaxAttempts:  uc.Request.Retries,
			InitialDelay: delay,
			Timeout:      timeout,
		},
		RequestConfig: llms.DefaultRequestConfig(),
	}

	return cfg, nil
}

func run(cmd *cobra.Command, stdout io.Writer, logger *log.Logger, cfg config) error {
	rc := review.Config{
		Prompt:  cfg.Prompt,
		Request: cfg.Model.RequestConfig,
		Verdict: cfg.Verdict,
	}

	if cfg.DryRun {
		return review.NewRequester(nil, stdout, logger, rc).DryRun(cfg.PlanFile)
	}

	gen, err := llms.New(cmd.Context(), cfg.Transport, cfg.APIKey, cfg.Model, logger)
	if err != nil {
		return errors.Wrap(err, "failed to create model client")
	}

	return review.NewRequester(gen, stdout, logger, rc).Run(cmd.Context(), cfg.PlanFile)
}

// recovered reports whether `err` was already printed to stdout as a
// response, as opposed to a failure that stopped the run.
func recovered(err error) bool {
	var (
		shapeErr *review.ResponseShapeError
		apiErr   *review.APIError
	)

	return errors.As(err, &shapeErr) || errors.As(err, &apiErr)
}
