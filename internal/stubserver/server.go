// Package stubserver is a development emulator of the sitemap service's
// admin backend. It implements the six console actions against a SQLite
// store: XML settings with an optimistic-concurrency timestamp, session
// minting, and password management. The CLI mounts it via `sitemapctl stub`
// and the end-to-end tests run against it in-process.
package stubserver

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"time"

	"github.com/beevik/etree"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/sitemaptools/sitemapctl/internal/adminclient"
)

var errWrongPassword = errors.New("stubserver: wrong password")

// Config holds stub server configuration.
type Config struct {
	Port     int
	Username string // admin account name; empty means "admin"
	AllowAll bool   // allow all CORS origins (dev mode)
}

// Server hosts the fake admin console endpoints.
type Server struct {
	cfg        Config
	store      *Store
	router     chi.Router
	httpServer *http.Server
	startedAt  time.Time
}

// New creates a stub server over the given store.
func New(cfg Config, store *Store) *Server {
	if cfg.Username == "" {
		cfg.Username = "admin"
	}
	s := &Server{cfg: cfg, store: store, startedAt: time.Now()}
	s.router = s.buildRouter()
	return s
}

// buildRouter creates and configures the chi router with all routes.
func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	// CORS
	corsOpts := cors.Options{
		AllowedOrigins:   []string{"http://localhost:*", "http://127.0.0.1:*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}
	if s.cfg.AllowAll {
		corsOpts.AllowedOrigins = []string{"*"}
	}
	r.Use(cors.Handler(corsOpts))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})

	r.Get("/get-configuration", s.handleGetConfiguration)
	r.Get("/get-runtime-info", s.handleGetRuntimeInfo)
	r.Post("/login", s.handleLogin)
	r.Post("/logout", s.handleLogout)
	r.Post("/change-password", s.handleChangePassword)
	r.Post("/save-configuration", s.handleSaveConfiguration)

	return r
}

// Router returns the chi router, letting tests mount it on httptest.
func (s *Server) Router() chi.Router { return s.router }

// Store returns the backing store.
func (s *Server) Database() *Store { return s.store }

// Start begins listening on the configured port.
func (s *Server) Start() error {
	addr := fmt.Sprintf(":%d", s.cfg.Port)
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      120 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	log.Printf("stub admin backend listening on %s", addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer != nil {
		return s.httpServer.Shutdown(ctx)
	}
	return nil
}

// formValues parses a form-encoded body regardless of the declared content
// type. The console posts save-configuration with a text/xml header over a
// form-encoded body, which http.Request.ParseForm refuses to touch.
func formValues(r *http.Request) (url.Values, error) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, err
	}
	return url.ParseQuery(string(body))
}

// authorized checks the sid and writes a 401 if the session is not live.
func (s *Server) authorized(w http.ResponseWriter, sid string) bool {
	ok, err := s.store.HasSession(sid)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return false
	}
	if !ok {
		w.WriteHeader(http.StatusUnauthorized)
		return false
	}
	return true
}

func (s *Server) handleGetConfiguration(w http.ResponseWriter, r *http.Request) {
	if !s.authorized(w, r.URL.Query().Get("sid")) {
		return
	}
	xml, _, err := s.store.Settings()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/xml; charset=utf-8")
	w.Write([]byte(xml))
}

func (s *Server) handleGetRuntimeInfo(w http.ResponseWriter, r *http.Request) {
	if !s.authorized(w, r.URL.Query().Get("sid")) {
		return
	}
	doc := etree.NewDocument()
	root := doc.CreateElement("RuntimeInfo")
	root.CreateAttr("uptime_seconds", fmt.Sprintf("%.0f", time.Since(s.startedAt).Seconds()))
	svc := root.CreateElement("Service")
	svc.CreateAttr("name", "webserver_filter")
	svc.CreateAttr("urls_count", "0")
	out, err := doc.WriteToString()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/xml; charset=utf-8")
	w.Write([]byte(out))
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	form, err := formValues(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	ok, err := s.store.CheckPassword(form.Get("username"), form.Get("password"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if !ok {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}
	sid, err := s.store.CreateSession()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	doc := etree.NewDocument()
	doc.CreateElement("Session").CreateAttr("id", sid)
	out, err := doc.WriteToString()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/xml; charset=utf-8")
	w.Write([]byte(out))
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	form, err := formValues(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := s.store.DeleteSession(form.Get("sid")); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (s *Server) handleChangePassword(w http.ResponseWriter, r *http.Request) {
	form, err := formValues(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if !s.authorized(w, form.Get("sid")) {
		return
	}
	err = s.store.SetPassword(s.cfg.Username, form.Get("opswd"), form.Get("npswd"))
	if errors.Is(err, errWrongPassword) {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (s *Server) handleSaveConfiguration(w http.ResponseWriter, r *http.Request) {
	form, err := formValues(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if !s.authorized(w, form.Get("sid")) {
		return
	}

	_, storedTS, err := s.store.Settings()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	if form.Get("force") == "" && form.Get("ts") != storedTS {
		w.Write([]byte(adminclient.OutOfDateSentinel))
		return
	}

	newTS, err := s.saveStamped(form.Get("xmlcontent"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Write([]byte(newTS))
}

// saveStamped persists the document with its last_modified attribute bumped
// to the new timestamp.
func (s *Server) saveStamped(xmlContent string) (string, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromString(xmlContent); err != nil {
		return "", fmt.Errorf("parsing submitted settings: %w", err)
	}
	// Bump the timestamp first so the stored document carries it.
	newTS, err := s.store.SaveSettings(xmlContent)
	if err != nil {
		return "", err
	}
	if root := doc.Root(); root != nil {
		root.CreateAttr("last_modified", newTS)
		if stamped, werr := doc.WriteToString(); werr == nil {
			if _, err := s.store.Exec(`UPDATE settings SET xml = ? WHERE id = 1`, stamped); err != nil {
				return "", fmt.Errorf("stamping settings: %w", err)
			}
		}
	}
	return newTS, nil
}
