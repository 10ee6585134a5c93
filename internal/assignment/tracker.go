// Package assignment talks to the external assignment tracker. The only
// call timeclock makes is a status update when an employee clocks out.
package assignment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/rs/zerolog"
)

// Tracker updates the status of an assignment.
type Tracker interface {
	UpdateStatus(ctx context.Context, assignmentID, status string) error
}

// Noop is used when no tracker is configured.
type Noop struct{}

func (Noop) UpdateStatus(context.Context, string, string) error { return nil }

// StatusError is returned when the tracker answers with a non-2xx status.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("assignment tracker returned %d", e.StatusCode)
	}
	return fmt.Sprintf("assignment tracker returned %d: %s", e.StatusCode, e.Body)
}

type statusBody struct {
	Status string `json:"status"`
}

// HTTPTracker sends PUT {base}/{assignment_id}/status with {"status": ...}.
type HTTPTracker struct {
	base   string
	client *retryablehttp.Client
}

// Options tune the HTTP client. Zero values take the library defaults.
type Options struct {
	Timeout      time.Duration
	RetryMax     int
	RetryWaitMin time.Duration
	RetryWaitMax time.Duration
	Logger       *zerolog.Logger
}

func NewHTTPTracker(baseURL string, opts Options) (*HTTPTracker, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid assignment status url %q", baseURL)
	}

	c := retryablehttp.NewClient()
	c.RetryMax = opts.RetryMax
	if opts.RetryWaitMin > 0 {
		c.RetryWaitMin = opts.RetryWaitMin
	}
	if opts.RetryWaitMax > 0 {
		c.RetryWaitMax = opts.RetryWaitMax
	}
	if opts.Timeout > 0 {
		c.HTTPClient.Timeout = opts.Timeout
	}
	if opts.Logger != nil {
		c.Logger = leveledLogger{log: opts.Logger.With().Str("component", "assignment").Logger()}
	} else {
		c.Logger = nil
	}

	return &HTTPTracker{base: u.String(), client: c}, nil
}

func (t *HTTPTracker) UpdateStatus(ctx context.Context, assignmentID, status string) error {
	if strings.TrimSpace(assignmentID) == "" {
		return errors.New("assignment id is required")
	}

	endpoint := t.base + "/" + url.PathEscape(assignmentID) + "/status"
	body, err := json.Marshal(statusBody{Status: status})
	if err != nil {
		return fmt.Errorf("encode status: %w", err)
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPut, endpoint, body)
	if err != nil {
		return fmt.Errorf("build status request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return fmt.Errorf("update assignment %s: %w", assignmentID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &StatusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(msg))}
	}
	return nil
}

// leveledLogger adapts zerolog to retryablehttp.LeveledLogger.
type leveledLogger struct {
	log zerolog.Logger
}

func (l leveledLogger) Error(msg string, kv ...interface{}) { l.log.Error().Fields(kv).Msg(msg) }
func (l leveledLogger) Info(msg string, kv ...interface{})  { l.log.Debug().Fields(kv).Msg(msg) }
func (l leveledLogger) Debug(msg string, kv ...interface{}) { l.log.Debug().Fields(kv).Msg(msg) }
func (l leveledLogger) Warn(msg string, kv ...interface{})  { l.log.Warn().Fields(kv).Msg(msg) }
