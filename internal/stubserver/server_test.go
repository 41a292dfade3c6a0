package stubserver

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sitemaptools/sitemapctl/internal/adminclient"
	"github.com/sitemaptools/sitemapctl/internal/session"
	"github.com/sitemaptools/sitemapctl/internal/transport"
)

// newStub starts an in-process stub backend and returns an admin client
// wired against it.
func newStub(t *testing.T) *adminclient.Client {
	t.Helper()
	store, err := OpenMemory("")
	if err != nil {
		t.Fatalf("opening store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	srv := httptest.NewServer(New(Config{}, store).Router())
	t.Cleanup(srv.Close)

	sess, err := session.NewState(nil)
	if err != nil {
		t.Fatalf("session state: %v", err)
	}
	return adminclient.New(srv.URL, transport.NewClient(), sess, 0)
}

func login(t *testing.T, client *adminclient.Client) {
	t.Helper()
	if err := client.Login(context.Background(), "admin", "admin"); err != nil {
		t.Fatalf("login: %v", err)
	}
	if client.Session().ID() == "" {
		t.Fatal("expected a session id after login")
	}
}

func TestLoginRejectsWrongPassword(t *testing.T) {
	client := newStub(t)
	err := client.Login(context.Background(), "admin", "nope")
	if !errors.Is(err, adminclient.ErrLoginFailed) {
		t.Errorf("expected ErrLoginFailed, got %v", err)
	}
}

func TestReadsRequireSession(t *testing.T) {
	client := newStub(t)
	res, err := client.GetConfiguration(context.Background())
	if err != nil {
		t.Fatalf("get-configuration: %v", err)
	}
	if res.StatusCode != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", res.StatusCode)
	}
	if res.Doc != nil {
		t.Error("expected no document without a session")
	}
}

func TestConfigurationRoundTrip(t *testing.T) {
	client := newStub(t)
	login(t, client)

	res, err := client.GetConfiguration(context.Background())
	if err != nil {
		t.Fatalf("get-configuration: %v", err)
	}
	if res.Doc == nil {
		t.Fatal("expected a settings document")
	}
	root := res.Doc.Root()
	if root.Tag != "SiteSettings" {
		t.Errorf("root tag = %q", root.Tag)
	}
	if ts := root.SelectAttrValue("last_modified", ""); ts != "1" {
		t.Errorf("seed timestamp = %q, want 1", ts)
	}
}

func TestRuntimeInfoIsServed(t *testing.T) {
	client := newStub(t)
	login(t, client)

	res, err := client.GetRuntimeInfo(context.Background())
	if err != nil {
		t.Fatalf("get-runtime-info: %v", err)
	}
	if res.Doc == nil || res.Doc.Root().Tag != "RuntimeInfo" {
		t.Error("expected a RuntimeInfo document")
	}
}

func TestStaleSaveIsRejectedUntilForced(t *testing.T) {
	client := newStub(t)
	login(t, client)

	// A stale timestamp is rejected with the sentinel.
	res, err := client.Save(context.Background(), `<SiteSettings/>`, "0", false)
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if res.Outcome != adminclient.SaveOutOfDate {
		t.Fatalf("outcome = %v, want out-of-date", res.Outcome)
	}

	// Forcing bypasses the staleness check.
	res, err = client.Save(context.Background(), `<SiteSettings/>`, "0", true)
	if err != nil {
		t.Fatalf("forced save: %v", err)
	}
	if res.Outcome != adminclient.SaveSuccess {
		t.Fatalf("outcome = %v, want success", res.Outcome)
	}
	if res.NewTimestamp != "2" {
		t.Errorf("new timestamp = %q, want 2", res.NewTimestamp)
	}

	// The stored document now carries the bumped timestamp.
	cfg, err := client.GetConfiguration(context.Background())
	if err != nil {
		t.Fatalf("get-configuration: %v", err)
	}
	if ts := cfg.Doc.Root().SelectAttrValue("last_modified", ""); ts != "2" {
		t.Errorf("stored timestamp = %q, want 2", ts)
	}
}

func TestMatchingTimestampSavesWithoutForce(t *testing.T) {
	client := newStub(t)
	login(t, client)

	res, err := client.Save(context.Background(), `<SiteSettings/>`, "1", false)
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if res.Outcome != adminclient.SaveSuccess {
		t.Fatalf("outcome = %v, want success", res.Outcome)
	}
	if res.NewTimestamp != "2" {
		t.Errorf("new timestamp = %q, want 2", res.NewTimestamp)
	}
}

func TestLogoutInvalidatesSession(t *testing.T) {
	client := newStub(t)
	login(t, client)
	sid := client.Session().ID()

	if err := client.Logout(context.Background()); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if client.Session().ID() != "" {
		t.Error("local session id must be cleared")
	}

	// Even replaying the old sid must be rejected server-side.
	if err := client.Session().SetID(sid); err != nil {
		t.Fatalf("set id: %v", err)
	}
	res, err := client.GetConfiguration(context.Background())
	if err != nil {
		t.Fatalf("get-configuration: %v", err)
	}
	if res.StatusCode != http.StatusUnauthorized {
		t.Errorf("status with dead sid = %d, want 401", res.StatusCode)
	}
}

func TestChangePassword(t *testing.T) {
	client := newStub(t)
	login(t, client)

	// Wrong old password is a 401.
	err := client.ChangePassword(context.Background(), "wrong", "newpass")
	if !errors.Is(err, adminclient.ErrOldPasswordWrong) {
		t.Fatalf("expected ErrOldPasswordWrong, got %v", err)
	}

	// Correct old password applies the change.
	if err := client.ChangePassword(context.Background(), "admin", "newpass"); err != nil {
		t.Fatalf("change-password: %v", err)
	}

	// The new password works for a fresh login; the old one is dead.
	if err := client.Login(context.Background(), "admin", "admin"); err == nil {
		t.Error("old password must no longer work")
	}
	if err := client.Login(context.Background(), "admin", "newpass"); err != nil {
		t.Errorf("new password login: %v", err)
	}
}

func TestStoreSeedPasswordConfigurable(t *testing.T) {
	store, err := OpenMemory("hunter2")
	if err != nil {
		t.Fatalf("opening store: %v", err)
	}
	defer store.Close()

	ok, err := store.CheckPassword("admin", "hunter2")
	if err != nil || !ok {
		t.Fatalf("configured password rejected: %v, %v", ok, err)
	}
	ok, err = store.CheckPassword("admin", "admin")
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if ok {
		t.Error("default password must not work when a seed password is set")
	}
}

func TestStoreSessionLifecycle(t *testing.T) {
	store, err := OpenMemory("")
	if err != nil {
		t.Fatalf("opening store: %v", err)
	}
	defer store.Close()

	sid, err := store.CreateSession()
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	ok, err := store.HasSession(sid)
	if err != nil || !ok {
		t.Fatalf("HasSession = %v, %v", ok, err)
	}
	if err := store.DeleteSession(sid); err != nil {
		t.Fatalf("delete: %v", err)
	}
	ok, err = store.HasSession(sid)
	if err != nil {
		t.Fatalf("HasSession after delete: %v", err)
	}
	if ok {
		t.Error("session must be gone after delete")
	}
	if ok, _ := store.HasSession(""); ok {
		t.Error("empty sid must never be live")
	}
}
