package cmd

import (
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/sitemaptools/sitemapctl/internal/adminclient"
	"github.com/sitemaptools/sitemapctl/internal/config"
	"github.com/sitemaptools/sitemapctl/internal/progress"
	"github.com/sitemaptools/sitemapctl/internal/session"
	"github.com/sitemaptools/sitemapctl/internal/transport"
)

// loadConfig loads and validates the config, providing a user-friendly error.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// buildClient wires the composition root: config -> session store -> session
// state -> transport -> dispatcher. Everything is constructed here once and
// injected by reference; nothing holds hidden package-level state.
func buildClient(cfg *config.Config) (*adminclient.Client, error) {
	storePath := ""
	if cfg.StateDir != "" {
		storePath = filepath.Join(cfg.StateDir, "session.json")
	} else {
		p, err := session.DefaultPath()
		if err != nil {
			return nil, err
		}
		storePath = p
	}

	sess, err := session.NewState(session.NewStore(storePath))
	if err != nil {
		return nil, fmt.Errorf("loading session state: %w", err)
	}
	if cfg.Language != "" && sess.Language() == "" {
		if err := sess.SetLanguage(cfg.Language); err != nil {
			return nil, err
		}
	}

	tr := transport.NewClient()
	if verbose {
		rep := progress.NewReporter()
		rep.Start("contacting backend")
		tr.SetProgress(rep.Step)
	}

	timeout := time.Duration(cfg.TimeoutMS) * time.Millisecond
	return adminclient.New(cfg.Endpoint, tr, sess, timeout), nil
}

// errLoginRequired is the uniform message surfaced whenever a call comes
// back 401: every caller redirects to the login flow the same way.
var errLoginRequired = errors.New("session expired or not logged in; run 'sitemapctl login'")
