package weback

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"time"

	"weback-home/internal/infra"
)

const (
	MaxAttempts    = 8
	AttemptTimeout = 5 * time.Second
	ConnectTimeout = 15 * time.Second
)

var (
	errEmptyResponse  = errors.New("empty response body")
	errAttemptTimeout = fmt.Errorf("attempt timed out: %w", context.DeadlineExceeded)
)

// Transport posts JSON to the vendor API with a fixed attempt budget.
// Any HTTP 200 carrying a JSON object is returned to the caller; envelope
// messages are not inspected here.
type Transport struct {
	httpClient     *http.Client
	retry          infra.RetryConfig
	attemptTimeout time.Duration
	logger         *slog.Logger
}

// NewTransport retries back to back, or with a constant pause of backoff
// between attempts when backoff is positive.
func NewTransport(backoff time.Duration, logger *slog.Logger) *Transport {
	retry := infra.ImmediateRetryConfig(MaxAttempts)
	retry.InitialDelay = backoff

	httpClient := &http.Client{
		Transport: &http.Transport{
			Proxy:                 http.ProxyFromEnvironment,
			DialContext:           (&net.Dialer{Timeout: ConnectTimeout}).DialContext,
			TLSHandshakeTimeout:   ConnectTimeout,
			ResponseHeaderTimeout: AttemptTimeout,
			IdleConnTimeout:       90 * time.Second,
		},
	}

	return NewTransportWithClient(httpClient, retry, AttemptTimeout, logger)
}

// NewTransportWithClient sends through httpClient. attemptTimeout bounds
// reading each response body once its headers have arrived.
func NewTransportWithClient(httpClient *http.Client, retry infra.RetryConfig, attemptTimeout time.Duration, logger *slog.Logger) *Transport {
	return &Transport{
		httpClient:     httpClient,
		retry:          retry,
		attemptTimeout: attemptTimeout,
		logger:         logger,
	}
}

// Post sends payload as JSON and returns the first HTTP 200 envelope. After
// the attempt budget is spent it returns a *TransportError.
func (t *Transport) Post(ctx context.Context, url string, payload any, headers map[string]string) (Envelope, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encoding payload: %w", err)
	}

	var (
		env      Envelope
		attempts int
	)

	retryErr := infra.WithRetry(ctx, t.retry, func() error {
		attempts++
		start := time.Now()

		result, err := t.attempt(ctx, url, body, headers)
		requestDuration.Observe(time.Since(start).Seconds())
		if err != nil {
			attemptsTotal.WithLabelValues(attemptOutcome(err)).Inc()

			var se *statusError
			if errors.As(err, &se) {
				t.logger.Warn("bad server response, retrying",
					"url", url,
					"status", se.code,
					"attempt", attempts,
					"max_attempts", t.retry.MaxAttempts,
				)
			} else {
				t.logger.Debug("request attempt failed, retrying",
					"url", url,
					"attempt", attempts,
					"max_attempts", t.retry.MaxAttempts,
					"error", err,
				)
			}
			return err
		}

		attemptsTotal.WithLabelValues("ok").Inc()
		env = result
		return nil
	})

	if retryErr != nil {
		requestFailures.Inc()
		t.logger.Error("weback request failed",
			"url", url,
			"attempts", attempts,
			"error", retryErr,
		)
		return nil, &TransportError{URL: url, Attempts: attempts, Err: retryErr}
	}

	t.logger.Debug("weback request ok", "url", url, "attempts", attempts)
	return env, nil
}

func (t *Transport) attempt(ctx context.Context, url string, body []byte, headers map[string]string) (Envelope, error) {
	ctx, cancel := context.WithTimeout(ctx, ConnectTimeout+t.attemptTimeout)
	defer cancel()
	ctx, cancelRead := context.WithCancelCause(ctx)
	defer cancelRead(nil)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("sending request: %w", err)
	}
	defer resp.Body.Close()

	timer := time.AfterFunc(t.attemptTimeout, func() { cancelRead(errAttemptTimeout) })
	defer timer.Stop()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		if cause := context.Cause(ctx); errors.Is(cause, errAttemptTimeout) {
			err = cause
		}
		return nil, fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &statusError{code: resp.StatusCode}
	}

	var env Envelope
	if err := json.Unmarshal(respBody, &env); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}
	if env == nil {
		return nil, errEmptyResponse
	}

	return env, nil
}

func attemptOutcome(err error) string {
	var se *statusError
	switch {
	case errors.As(err, &se):
		return "status"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	default:
		return "error"
	}
}
