// Package saveflow runs the save-settings flow: submit the serialized
// configuration, detect the backend's out-of-date rejection, ask the user
// whether to overwrite or reload, and retry once with the force flag.
package saveflow

import (
	"context"
	"fmt"
	"net/http"

	"github.com/beevik/etree"

	"github.com/sitemaptools/sitemapctl/internal/adminclient"
)

// Dispatcher is the slice of the admin client the flow depends on. Tests
// substitute a fake.
type Dispatcher interface {
	Save(ctx context.Context, xmlContent, ts string, force bool) (adminclient.SaveResult, error)
	GetConfiguration(ctx context.Context) (adminclient.XMLResult, error)
	GetRuntimeInfo(ctx context.Context) (adminclient.XMLResult, error)
}

// Prompter asks the user the two conflict questions. Implementations block
// until the user answers.
type Prompter interface {
	// ConfirmOverwrite asks whether to overwrite the newer server copy.
	ConfirmOverwrite() bool
	// ConfirmReload asks whether to discard local edits and reload.
	ConfirmReload() bool
}

// State is the flow's position in its lifecycle.
type State int

const (
	Idle State = iota
	Submitting
	AwaitingUserDecision
	Retrying
	Done
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Submitting:
		return "submitting"
	case AwaitingUserDecision:
		return "awaiting-user-decision"
	case Retrying:
		return "retrying"
	default:
		return "done"
	}
}

// Result is the terminal outcome of one Save call.
type Result int

const (
	// Saved means the configuration was accepted and the held timestamp
	// updated.
	Saved Result = iota
	// KeptLocal means the user declined both overwrite and reload; the
	// local edits remain unsaved.
	KeptLocal
	// Reloaded means the user discarded local edits; fresh configuration
	// and runtime info were fetched.
	Reloaded
	// Failed means the backend rejected the save for a reason other than
	// staleness.
	Failed
	// Unauthorized means the session expired; the caller should redirect
	// to login.
	Unauthorized
)

// Protocol drives one configuration document's save lifecycle. It is not
// safe for concurrent use; the flow is user-triggered and serialized by
// design.
type Protocol struct {
	disp   Dispatcher
	prompt Prompter

	state     State
	timestamp string
	dirty     bool

	// Populated after a Reloaded outcome.
	ReloadedConfig  *etree.Document
	ReloadedRuntime *etree.Document
}

// New creates a protocol with the given collaborators and the timestamp the
// configuration was last fetched at.
func New(disp Dispatcher, prompt Prompter, timestamp string) *Protocol {
	return &Protocol{disp: disp, prompt: prompt, timestamp: timestamp}
}

// State returns the flow's current state.
func (p *Protocol) State() State { return p.state }

// Timestamp returns the held configuration timestamp.
func (p *Protocol) Timestamp() string { return p.timestamp }

// SetTimestamp replaces the held timestamp, typically after an external
// refetch.
func (p *Protocol) SetTimestamp(ts string) { p.timestamp = ts }

// MarkDirty records that the local configuration has unsaved edits.
func (p *Protocol) MarkDirty() { p.dirty = true }

// Dirty reports whether unsaved edits exist.
func (p *Protocol) Dirty() bool { return p.dirty }

// Save submits the serialized configuration and resolves any out-of-date
// conflict with the user. It returns to Idle before returning, whatever the
// outcome.
func (p *Protocol) Save(ctx context.Context, xmlContent string) (Result, error) {
	defer func() { p.state = Idle }()

	p.state = Submitting
	res, err := p.disp.Save(ctx, xmlContent, p.timestamp, false)
	if err != nil {
		p.state = Done
		return Failed, err
	}

	switch res.Outcome {
	case adminclient.SaveSuccess:
		return p.accept(res), nil
	case adminclient.SaveFailed:
		p.state = Done
		if res.StatusCode == http.StatusUnauthorized {
			return Unauthorized, nil
		}
		return Failed, nil
	}

	// Out of date: the server holds a newer timestamp than ours.
	p.state = AwaitingUserDecision
	if !p.prompt.ConfirmOverwrite() {
		if !p.prompt.ConfirmReload() {
			// Local edits stay intact and unsaved.
			return KeptLocal, nil
		}
		return p.reload(ctx)
	}

	// One-shot force retry of the identical payload. The force flag is
	// never attached to a first attempt.
	p.state = Retrying
	res, err = p.disp.Save(ctx, xmlContent, p.timestamp, true)
	if err != nil {
		p.state = Done
		return Failed, err
	}
	switch res.Outcome {
	case adminclient.SaveSuccess:
		return p.accept(res), nil
	case adminclient.SaveOutOfDate:
		// The force flag guarantees a terminal outcome; a second
		// rejection is a protocol violation and is treated as a
		// plain failure.
		p.state = Done
		return Failed, fmt.Errorf("saveflow: backend rejected a forced save as stale")
	default:
		p.state = Done
		if res.StatusCode == http.StatusUnauthorized {
			return Unauthorized, nil
		}
		return Failed, nil
	}
}

func (p *Protocol) accept(res adminclient.SaveResult) Result {
	p.timestamp = res.NewTimestamp
	p.dirty = false
	p.state = Done
	return Saved
}

// reload discards local edits: configuration and runtime info are re-fetched
// and the dirty flag cleared.
func (p *Protocol) reload(ctx context.Context) (Result, error) {
	cfg, err := p.disp.GetConfiguration(ctx)
	if err != nil {
		p.state = Done
		return Failed, err
	}
	if cfg.StatusCode == http.StatusUnauthorized {
		p.state = Done
		return Unauthorized, nil
	}
	if cfg.Doc == nil {
		p.state = Done
		return Failed, fmt.Errorf("saveflow: reload returned no configuration document")
	}

	rt, err := p.disp.GetRuntimeInfo(ctx)
	if err != nil {
		p.state = Done
		return Failed, err
	}
	if rt.StatusCode == http.StatusUnauthorized {
		p.state = Done
		return Unauthorized, nil
	}
	if rt.Doc == nil {
		p.state = Done
		return Failed, fmt.Errorf("saveflow: reload returned no runtime document")
	}

	p.ReloadedConfig = cfg.Doc
	p.ReloadedRuntime = rt.Doc
	if ts := configTimestamp(cfg.Doc); ts != "" {
		p.timestamp = ts
	}
	p.dirty = false
	return Reloaded, nil
}

// configTimestamp reads the last_modified attribute off the configuration
// root, when present.
func configTimestamp(doc *etree.Document) string {
	root := doc.Root()
	if root == nil {
		return ""
	}
	return root.SelectAttrValue("last_modified", "")
}
