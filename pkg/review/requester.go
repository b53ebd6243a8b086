package review

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/pkg/errors"

	"codeberg.org/n30w/planreview/pkg/llms"
	"codeberg.org/n30w/planreview/pkg/utils"
	"codeberg.org/n30w/planreview/pkg/verdict"
)

type Config struct {
	Prompt PromptOptions

	// Request is only used to render the body for a dry run; the generator
	// carries its own copy for real requests.
	Request llms.RequestConfig

	// Verdict parses the reply as a review document and logs the outcome.
	Verdict bool
}

// Requester is the plan review run. It writes results to `out` and
// diagnostics to the logger.
type Requester struct {
	gen    llms.Generator
	out    io.Writer
	logger *log.Logger
	cfg    Config
}

func NewRequester(
	gen llms.Generator,
	out io.Writer,
	logger *log.Logger,
	cfg Config,
) *Requester {
	return &Requester{
		gen:    gen,
		out:    out,
		logger: logger,
		cfg:    cfg,
	}
}

// Run reviews the plan at `path`. A *FileAccessError or *llms.TransportError
// means the run failed. A *ResponseShapeError or *APIError means the reply
// was printed but was not a review.
func (r *Requester) Run(ctx context.Context, path string) error {
	doc, err := ReadPlan(path)
	if err != nil {
		return err
	}

	prompt := BuildPrompt(doc, r.cfg.Prompt)

	r.logger.Debugf("Read %d bytes from %s, prompt is %d bytes", len(doc), path, len(prompt))
	r.logger.Infof("Sending plan to %s", r.gen)

	reply, err := r.gen.Generate(ctx, prompt)
	if err != nil {
		return err
	}

	return r.Report(reply)
}

// Report prints `reply` the one way its status and shape call for.
func (r *Requester) Report(reply *llms.Reply) error {
	if reply.StatusCode != http.StatusOK {
		apiErr := &APIError{
			StatusCode: reply.StatusCode,
			Body:       string(reply.Body),
		}

		_, err := fmt.Fprintln(r.out, apiErr.Error())
		if err != nil {
			return errors.Wrap(err, "failed to write output")
		}

		return apiErr
	}

	text, err := ExtractText(reply.Body)
	if err != nil {
		werr := r.printShapeError(err, reply.Body)
		if werr != nil {
			return werr
		}

		return err
	}

	_, err = fmt.Fprintln(r.out, text)
	if err != nil {
		return errors.Wrap(err, "failed to write output")
	}

	if r.cfg.Verdict {
		r.logVerdict(text)
	}

	return nil
}

func (r *Requester) printShapeError(shapeErr error, body []byte) error {
	_, err := fmt.Fprintf(r.out, "Response structure error: %v\n", shapeErr)
	if err != nil {
		return errors.Wrap(err, "failed to write output")
	}

	dump, err := utils.IndentJSON(body)
	if err != nil {
		dump = body
	}

	_, err = fmt.Fprintf(r.out, "%s\n", dump)
	if err != nil {
		return errors.Wrap(err, "failed to write output")
	}

	return nil
}

func (r *Requester) logVerdict(text string) {
	res, err := verdict.ParseResult(text)
	if err != nil {
		r.logger.Warn("Reply is not a review document", "err", err)
		return
	}

	threshold := r.cfg.Prompt.ApprovalThreshold
	counts := res.Counts()

	r.logger.Info(
		"Review verdict",
		"score", res.Score,
		"approved", res.Approved,
		"threshold", threshold,
		"meets_threshold", res.MeetsThreshold(threshold),
		"critical", counts[verdict.SeverityCritical],
		"warning", counts[verdict.SeverityWarning],
		"info", counts[verdict.SeverityInfo],
	)

	if res.Approved != res.MeetsThreshold(threshold) {
		r.logger.Warnf(
			"Model set approved=%t but score %d against threshold %d says otherwise",
			res.Approved, res.Score, threshold,
		)
	}
}

// DryRun prints the request body that Run would send for `path`.
func (r *Requester) DryRun(path string) error {
	doc, err := ReadPlan(path)
	if err != nil {
		return err
	}

	rc := r.cfg.Request
	if rc.MaxTokens == 0 {
		rc = llms.DefaultRequestConfig()
	}

	body := llms.NewGenerateContentRequest(BuildPrompt(doc, r.cfg.Prompt), rc)

	b, err := json.MarshalIndent(body, "", "  ")
	if err != nil {
		return errors.Wrap(err, "failed to encode request")
	}

	_, err = fmt.Fprintf(r.out, "%s\n", b)
	if err != nil {
		return errors.Wrap(err, "failed to write output")
	}

	return nil
}
