// Package transport wraps net/http with the request/exchange model used by
// the admin client: one network call per send, optional timeout with abort,
// and a callback-driven asynchronous variant with progress notification.
package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptrace"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// ErrTimeout is returned by Send when the request's timeout elapsed before
// the exchange completed.
var ErrTimeout = errors.New("transport: request timed out")

// Request describes one call against the backend. It is immutable once
// issued; issuing it twice performs two independent exchanges.
type Request struct {
	URL         string            // absolute URL of the action endpoint
	Method      string            // http.MethodGet or http.MethodPost
	ContentType string            // POST body content type; empty means form-urlencoded
	Params      map[string]string // form fields (query string for GET)
	RawBody     string            // POST body sent verbatim when Params is nil
	Timeout     time.Duration     // zero means no timeout
}

// Exchange is the record of one request/response cycle. It owns exactly one
// underlying HTTP call and is never reused across requests.
type Exchange struct {
	IssuedAt    time.Time
	TimedOut    bool
	StatusCode  int
	Body        []byte
	ContentType string

	completed bool
}

// Completed reports whether the exchange reached a terminal response state.
// A timed-out or never-dispatched exchange is not completed.
func (e *Exchange) Completed() bool {
	return e.completed
}

// NewCompletedExchange builds an exchange in the completed state. Intended
// for fakes standing in for a live backend.
func NewCompletedExchange(status int, contentType string, body []byte) *Exchange {
	return &Exchange{
		IssuedAt:    time.Now(),
		StatusCode:  status,
		Body:        body,
		ContentType: contentType,
		completed:   true,
	}
}

// Callbacks receives the outcome of an asynchronous exchange. Exactly one of
// OnSuccess, OnFailure, or OnTimeout is invoked, after any OnProgress calls.
type Callbacks struct {
	// OnProgress is called with a step counter that starts at 1 and
	// increases monotonically while the exchange is still waiting.
	OnProgress func(step int)
	OnSuccess  func(*Exchange)
	OnFailure  func(*Exchange, error)
	OnTimeout  func(*Exchange)
}

// Client issues exchanges. The zero value is not usable; use NewClient.
type Client struct {
	http     *http.Client
	progress func(step int)
}

// SetProgress installs a hook invoked with the readiness step counter on
// every blocking Send. The asynchronous path uses Callbacks.OnProgress
// instead.
func (c *Client) SetProgress(fn func(step int)) {
	c.progress = fn
}

// NewClient creates a transport client backed by a default http.Client.
func NewClient() *Client {
	return &Client{http: &http.Client{}}
}

// NewClientWith creates a transport client backed by the given http.Client,
// letting tests substitute a stub round tripper.
func NewClientWith(hc *http.Client) *Client {
	return &Client{http: hc}
}

// EncodeForm serializes params as application/x-www-form-urlencoded: each
// name and value percent-encoded with spaces as '+', pairs joined by '&',
// keys in sorted order.
func EncodeForm(params map[string]string) string {
	v := url.Values{}
	for name, value := range params {
		v.Set(name, value)
	}
	return v.Encode()
}

// Send issues the request and blocks until the exchange completes, the
// timeout elapses, or dispatch fails. A completed exchange is returned even
// for non-2xx statuses; status classification is the caller's concern. The
// returned error is non-nil only for timeouts and local dispatch failures.
func (c *Client) Send(ctx context.Context, req Request) (*Exchange, error) {
	var progress func()
	if c.progress != nil {
		var step atomic.Int32
		hook := c.progress
		progress = func() {
			hook(int(step.Add(1)))
		}
	}
	return c.send(ctx, req, progress)
}

// Go issues the request asynchronously. Completion is delivered through cb
// exactly once; a completion arriving after the timeout already fired is
// discarded.
func (c *Client) Go(req Request, cb Callbacks) {
	go func() {
		// mu orders progress against completion: a progress callback
		// holds it while delivering, and completion flips done under
		// it, so no OnProgress can arrive after the terminal callback.
		var (
			mu   sync.Mutex
			done bool
		)
		complete := func() bool {
			mu.Lock()
			defer mu.Unlock()
			if done {
				return false
			}
			done = true
			return true
		}

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		ex := &Exchange{IssuedAt: time.Now()}

		var timer *time.Timer
		if req.Timeout > 0 {
			timer = time.AfterFunc(req.Timeout, func() {
				if complete() {
					ex.TimedOut = true
					cancel() // abort the in-flight call, best effort
					if cb.OnTimeout != nil {
						cb.OnTimeout(ex)
					}
				}
			})
		}

		var step int
		progress := func() {
			mu.Lock()
			defer mu.Unlock()
			if done {
				return
			}
			step++
			if cb.OnProgress != nil {
				cb.OnProgress(step)
			}
		}

		// Timeout handling lives in the timer above, so strip the
		// request-level timeout before delegating.
		inner := req
		inner.Timeout = 0
		got, err := c.send(ctx, inner, progress)

		if timer != nil {
			timer.Stop()
		}
		if !complete() {
			// The timeout already fired and was reported; this late
			// completion must not be delivered.
			return
		}
		if err != nil {
			if cb.OnFailure != nil {
				cb.OnFailure(got, err)
			}
			return
		}
		*ex = *got
		if cb.OnSuccess != nil {
			cb.OnSuccess(ex)
		}
	}()
}

func (c *Client) send(ctx context.Context, req Request, progress func()) (*Exchange, error) {
	ex := &Exchange{IssuedAt: time.Now()}

	if req.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, req.Timeout)
		defer cancel()
	}

	target := req.URL
	var body io.Reader
	contentType := req.ContentType

	switch req.Method {
	case http.MethodGet:
		if len(req.Params) > 0 {
			sep := "?"
			if strings.Contains(target, "?") {
				sep = "&"
			}
			target += sep + EncodeForm(req.Params)
		}
	case http.MethodPost:
		if req.Params != nil {
			body = strings.NewReader(EncodeForm(req.Params))
			if contentType == "" {
				contentType = "application/x-www-form-urlencoded"
			}
		} else {
			body = strings.NewReader(req.RawBody)
		}
	default:
		return ex, fmt.Errorf("transport: unsupported method %q", req.Method)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, target, body)
	if err != nil {
		return ex, fmt.Errorf("transport: building request: %w", err)
	}
	if contentType != "" {
		httpReq.Header.Set("Content-Type", contentType)
	}

	if progress != nil {
		trace := &httptrace.ClientTrace{
			GetConn:              func(string) { progress() },
			ConnectDone:          func(_, _ string, _ error) { progress() },
			WroteRequest:         func(httptrace.WroteRequestInfo) { progress() },
			GotFirstResponseByte: func() { progress() },
		}
		httpReq = httpReq.WithContext(httptrace.WithClientTrace(httpReq.Context(), trace))
	}

	resp, err := c.http.Do(httpReq)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			ex.TimedOut = true
			return ex, fmt.Errorf("%w: %s %s", ErrTimeout, req.Method, req.URL)
		}
		return ex, fmt.Errorf("transport: dispatch failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			ex.TimedOut = true
			return ex, fmt.Errorf("%w: %s %s", ErrTimeout, req.Method, req.URL)
		}
		return ex, fmt.Errorf("transport: reading response: %w", err)
	}

	ex.StatusCode = resp.StatusCode
	ex.Body = data
	ex.ContentType = resp.Header.Get("Content-Type")
	ex.completed = true
	return ex, nil
}
