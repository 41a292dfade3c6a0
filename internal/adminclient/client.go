// Package adminclient is the request dispatcher for the sitemap service's
// admin backend. It builds requests against the named server actions,
// attaches the session and language parameters, and maps HTTP outcomes to
// typed results so nothing below it leaks a raw transport error to callers.
package adminclient

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/beevik/etree"

	"github.com/sitemaptools/sitemapctl/internal/classify"
	"github.com/sitemaptools/sitemapctl/internal/session"
	"github.com/sitemaptools/sitemapctl/internal/transport"
)

// OutOfDateSentinel is the exact save-configuration response body the
// backend emits when the client's timestamp is stale.
const OutOfDateSentinel = "Settings is out-of-date"

// DefaultUsername is the fixed admin account name for this deployment.
const DefaultUsername = "admin"

// defaultMutateTimeout bounds every mutating call (login, logout,
// change-password, save-configuration) when no override is configured.
const defaultMutateTimeout = 5000 * time.Millisecond

var (
	// ErrUnauthorized indicates the session is invalid or expired (HTTP
	// 401); callers redirect to the login flow.
	ErrUnauthorized = errors.New("adminclient: unauthorized")
	// ErrLoginFailed indicates the login attempt was rejected.
	ErrLoginFailed = errors.New("adminclient: login failed")
	// ErrOldPasswordWrong indicates change-password was rejected because
	// the old password did not match.
	ErrOldPasswordWrong = errors.New("adminclient: old password incorrect")
	// ErrServerFailure indicates the backend reported an internal failure.
	ErrServerFailure = errors.New("adminclient: server-side failure")
)

// Server action names, relative to the admin endpoint.
const (
	actionGetConfiguration = "get-configuration"
	actionGetRuntimeInfo   = "get-runtime-info"
	actionSaveConfig       = "save-configuration"
	actionLogin            = "login"
	actionLogout           = "logout"
	actionChangePassword   = "change-password"
)

// SaveOutcome is the terminal classification of one save attempt.
type SaveOutcome int

const (
	SaveFailed SaveOutcome = iota
	SaveSuccess
	SaveOutOfDate
)

func (o SaveOutcome) String() string {
	switch o {
	case SaveSuccess:
		return "success"
	case SaveOutOfDate:
		return "out-of-date"
	default:
		return "failed"
	}
}

// SaveResult carries the outcome of a save attempt. NewTimestamp is set
// only on success; StatusCode is the raw HTTP status for callers that need
// to distinguish 401 from other failures.
type SaveResult struct {
	Outcome      SaveOutcome
	NewTimestamp string
	StatusCode   int
}

// XMLResult is the outcome of a read call. Doc is nil when the body was
// absent or the call failed; StatusCode lets the caller branch on 401.
type XMLResult struct {
	Doc        *etree.Document
	StatusCode int
}

// Client dispatches requests against one admin endpoint on behalf of one
// session.
type Client struct {
	endpoint string
	tr       *transport.Client
	sess     *session.State
	timeout  time.Duration
}

// New creates a dispatcher for the given endpoint base URL. A zero timeout
// selects the default bound for mutating calls.
func New(endpoint string, tr *transport.Client, sess *session.State, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = defaultMutateTimeout
	}
	return &Client{
		endpoint: strings.TrimRight(endpoint, "/"),
		tr:       tr,
		sess:     sess,
		timeout:  timeout,
	}
}

// Session exposes the injected session state.
func (c *Client) Session() *session.State {
	return c.sess
}

func (c *Client) actionURL(action string) string {
	return c.endpoint + "/" + action
}

// params copies extra and attaches hl and sid when they are set.
func (c *Client) params(extra map[string]string) map[string]string {
	p := make(map[string]string, len(extra)+2)
	for k, v := range extra {
		p[k] = v
	}
	if lang := c.sess.Language(); lang != "" {
		p["hl"] = lang
	}
	if sid := c.sess.ID(); sid != "" {
		p["sid"] = sid
	}
	return p
}

// GetConfiguration fetches the settings document.
func (c *Client) GetConfiguration(ctx context.Context) (XMLResult, error) {
	return c.getXML(ctx, actionGetConfiguration)
}

// GetRuntimeInfo fetches the runtime statistics document.
func (c *Client) GetRuntimeInfo(ctx context.Context) (XMLResult, error) {
	return c.getXML(ctx, actionGetRuntimeInfo)
}

// getXML issues a GET for an XML-bodied action. A nil Doc with a recorded
// status means the document could not be loaded (401, empty body); a decode
// failure of a non-empty body is an error.
func (c *Client) getXML(ctx context.Context, action string) (XMLResult, error) {
	ex, err := c.tr.Send(ctx, transport.Request{
		URL:    c.actionURL(action),
		Method: http.MethodGet,
		Params: c.params(nil),
	})
	if err != nil {
		return XMLResult{}, fmt.Errorf("%s: %w", action, err)
	}

	res := XMLResult{StatusCode: ex.StatusCode}
	if ex.StatusCode < 200 || ex.StatusCode > 299 {
		return res, nil
	}

	dec, err := classify.Classify(ex)
	if err != nil {
		return res, fmt.Errorf("%s: %w", action, err)
	}
	if dec.Kind == classify.XML {
		res.Doc = dec.Doc
	}
	return res, nil
}

// Login authenticates the fixed admin user. On success the session id is
// extracted from the response document's Session element and cached; a
// response without one is treated as a failed login. Session cookies are
// not honored.
func (c *Client) Login(ctx context.Context, username, password string) error {
	if username == "" {
		username = DefaultUsername
	}
	// Login carries no session parameter; a cached id is stale by
	// definition here.
	p := map[string]string{
		"username": username,
		"password": password,
	}
	if lang := c.sess.Language(); lang != "" {
		p["hl"] = lang
	}
	ex, err := c.tr.Send(ctx, transport.Request{
		URL:     c.actionURL(actionLogin),
		Method:  http.MethodPost,
		Params:  p,
		Timeout: c.timeout,
	})
	if err != nil {
		return fmt.Errorf("login: %w", err)
	}
	if ex.StatusCode < 200 || ex.StatusCode > 299 {
		return fmt.Errorf("%w: status %d", ErrLoginFailed, ex.StatusCode)
	}

	dec, err := classify.Classify(ex)
	if err != nil {
		return fmt.Errorf("login: %w", err)
	}
	sid := extractSessionID(dec)
	if sid == "" {
		return fmt.Errorf("%w: no session id in response", ErrLoginFailed)
	}
	if err := c.sess.SetID(sid); err != nil {
		return fmt.Errorf("login: %w", err)
	}
	return nil
}

// extractSessionID pulls the id attribute off the first Session element of
// an XML login response.
func extractSessionID(dec classify.Decoded) string {
	if dec.Kind != classify.XML {
		return ""
	}
	elem := dec.Doc.FindElement("//Session")
	if elem == nil {
		return ""
	}
	return elem.SelectAttrValue("id", "")
}

// Logout tells the backend to drop the session, then clears the local id
// regardless of the call's outcome.
func (c *Client) Logout(ctx context.Context) error {
	ex, err := c.tr.Send(ctx, transport.Request{
		URL:     c.actionURL(actionLogout),
		Method:  http.MethodPost,
		Params:  c.params(nil),
		Timeout: c.timeout,
	})
	if clearErr := c.sess.ClearID(); clearErr != nil {
		return fmt.Errorf("logout: clearing session: %w", clearErr)
	}
	if err != nil {
		return fmt.Errorf("logout: %w", err)
	}
	if ex.StatusCode < 200 || ex.StatusCode > 299 {
		return fmt.Errorf("logout: status %d", ex.StatusCode)
	}
	return nil
}

// ChangePassword submits an old/new password pair. A 401 means the old
// password was wrong; a 500 means the backend failed to apply the change.
func (c *Client) ChangePassword(ctx context.Context, oldPw, newPw string) error {
	ex, err := c.tr.Send(ctx, transport.Request{
		URL:    c.actionURL(actionChangePassword),
		Method: http.MethodPost,
		Params: c.params(map[string]string{
			"opswd": oldPw,
			"npswd": newPw,
		}),
		Timeout: c.timeout,
	})
	if err != nil {
		return fmt.Errorf("change-password: %w", err)
	}
	switch {
	case ex.StatusCode >= 200 && ex.StatusCode <= 299:
		return nil
	case ex.StatusCode == http.StatusUnauthorized:
		return ErrOldPasswordWrong
	case ex.StatusCode == http.StatusInternalServerError:
		return ErrServerFailure
	default:
		return fmt.Errorf("change-password: status %d", ex.StatusCode)
	}
}

// Save submits the serialized settings document with the client's last
// known timestamp. The force flag instructs the backend to bypass its
// staleness check; it must only be set on a retry after an out-of-date
// rejection.
func (c *Client) Save(ctx context.Context, xmlContent, ts string, force bool) (SaveResult, error) {
	extra := map[string]string{
		"xmlcontent": xmlContent,
		"ts":         ts,
	}
	if force {
		extra["force"] = "1"
	}
	ex, err := c.tr.Send(ctx, transport.Request{
		URL:         c.actionURL(actionSaveConfig),
		Method:      http.MethodPost,
		ContentType: "text/xml",
		Params:      c.params(extra),
		Timeout:     c.timeout,
	})
	if err != nil {
		return SaveResult{Outcome: SaveFailed}, fmt.Errorf("save-configuration: %w", err)
	}

	res := SaveResult{StatusCode: ex.StatusCode}
	if ex.StatusCode < 200 || ex.StatusCode > 299 {
		res.Outcome = SaveFailed
		return res, nil
	}

	dec, err := classify.Classify(ex)
	if err != nil {
		res.Outcome = SaveFailed
		return res, fmt.Errorf("save-configuration: %w", err)
	}
	if dec.Kind != classify.Text {
		res.Outcome = SaveFailed
		return res, nil
	}

	body := strings.TrimSpace(dec.Text)
	if body == OutOfDateSentinel {
		res.Outcome = SaveOutOfDate
		return res, nil
	}
	res.Outcome = SaveSuccess
	res.NewTimestamp = body
	return res, nil
}
