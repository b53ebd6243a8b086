package network

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"

	"github.com/charmbracelet/log"
	"github.com/pkg/errors"
)

// secretParams are query parameters whose values never reach a log line.
var secretParams = []string{"key"}

// Response is an HTTP reply exactly as the server sent it. Nothing is decoded
// so callers can branch on the status before deciding how to read the body.
type Response struct {
	StatusCode int
	Body       []byte
}

type HttpRequestClient struct {
	hc *http.Client
	u  *url.URL
	l  *log.Logger
}

// NewHttpRequestClient returns a client that posts JSON to `u`. A nil `hc`
// gets a client without a timeout.
func NewHttpRequestClient(
	u *url.URL,
	hc *http.Client,
	logger *log.Logger,
) (*HttpRequestClient, error) {
	if u == nil {
		return nil, errors.New("url cannot be nil")
	}

	if hc == nil {
		hc = &http.Client{Timeout: 0}
	}

	if logger == nil {
		logger = log.Default()
	}

	return &HttpRequestClient{
		hc: hc,
		u:  u,
		l:  logger,
	}, nil
}

// PreparePost prepares a body for a POST request, then returns a function that
// executes that POST request. The returned function can be called more than
// once; each call sends the same bytes.
func (h HttpRequestClient) PreparePost(body any) (func(context.Context) (*Response, error), error) {
	b, err := json.Marshal(body)
	if err != nil {
		return nil, errors.Wrap(err, "failed to prepare http request body")
	}

	return func(ctx context.Context) (*Response, error) {
		req, err := http.NewRequestWithContext(
			ctx, http.MethodPost, h.u.String(),
			bytes.NewReader(b),
		)
		if err != nil {
			return nil, errors.Wrap(err, "failed to create request")
		}

		req.Header.Set("Content-Type", "application/json")

		h.l.Debugf("POST %s (%d bytes)", h.Redacted(), len(b))

		res, err := h.hc.Do(req)
		if err != nil {
			return nil, errors.Wrap(redactErr(err), "failed to send request")
		}

		defer res.Body.Close()

		resBody, err := io.ReadAll(res.Body)
		if err != nil {
			return nil, errors.Wrap(err, "failed to read response body")
		}

		h.l.Debugf("%s answered %d (%d bytes)", h.u.Host, res.StatusCode, len(resBody))

		return &Response{
			StatusCode: res.StatusCode,
			Body:       resBody,
		}, nil
	}, nil
}

// Redacted is the request URL with secret query values masked.
func (h HttpRequestClient) Redacted() string {
	return RedactURL(h.u)
}

// RedactURL masks the values of secret query parameters in `u`.
func RedactURL(u *url.URL) string {
	if u == nil {
		return ""
	}

	c := *u
	q := c.Query()

	for _, p := range secretParams {
		if q.Has(p) {
			q.Set(p, "REDACTED")
		}
	}

	c.RawQuery = q.Encode()

	return c.String()
}

// redactErr strips the key from *url.Error, which embeds the full request URL
// in its message.
func redactErr(err error) error {
	var ue *url.Error
	if !errors.As(err, &ue) {
		return err
	}

	u, perr := url.Parse(ue.URL)
	if perr != nil {
		return err
	}

	return &url.Error{
		Op:  ue.Op,
		URL: RedactURL(u),
		Err: ue.Err,
	}
}
