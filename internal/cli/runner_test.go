package cli

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/golang-jwt/jwt"

	"github.com/idilsaglam/tudu/internal/cache"
	"github.com/idilsaglam/tudu/internal/config"
	"github.com/idilsaglam/tudu/internal/gateway"
	"github.com/idilsaglam/tudu/internal/model"
	"github.com/idilsaglam/tudu/internal/session"
	"github.com/idilsaglam/tudu/internal/ui"
)

func signedToken(t *testing.T, exp time.Time) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"id":  "u1",
		"exp": exp.Unix(),
	})
	s, err := tok.SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return s
}

type cliFixture struct {
	opt      Options
	session  *session.Session
	mux      *http.ServeMux
	requests atomic.Int64
	out      *bytes.Buffer
	errOut   *bytes.Buffer
}

func newCLIFixture(t *testing.T) *cliFixture {
	t.Helper()
	ui.SetTheme("mono")

	f := &cliFixture{
		mux:    http.NewServeMux(),
		out:    &bytes.Buffer{},
		errOut: &bytes.Buffer{},
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.requests.Add(1)
		f.mux.ServeHTTP(w, r)
	}))
	t.Cleanup(srv.Close)

	sess := session.New()
	sess.SetCredentialsFile(filepath.Join(t.TempDir(), "credentials.json"))
	f.session = sess

	logger := log.New(io.Discard)
	gw, err := gateway.New(srv.URL, srv.Client(), sess, logger)
	if err != nil {
		t.Fatalf("gateway.New failed: %v", err)
	}
	f.opt = Options{
		Config:  config.Default(),
		Logger:  logger,
		Session: sess,
		Gateway: gw,
		Cache:   cache.New(),
		Stdout:  f.out,
		Stderr:  f.errOut,
	}
	return f
}

func (f *cliFixture) login(t *testing.T) {
	t.Helper()
	auth := session.Auth{
		Token:  signedToken(t, time.Now().Add(time.Hour)),
		Record: model.User{ID: "u1", Email: "u1@example.com"},
	}
	if err := f.session.Set(auth); err != nil {
		t.Fatalf("session.Set failed: %v", err)
	}
}

func jsonHandler(status int, v any) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(v)
	}
}

func listPage(items ...any) map[string]any {
	if items == nil {
		items = []any{}
	}
	return map[string]any{"page": 1, "perPage": 500, "totalPages": 1, "items": items}
}

func TestProtectedCommandsRedirectToLogin(t *testing.T) {
	for _, cmd := range [][]string{
		{"private", "ls"},
		{"public", "add", "x"},
		{"groups", "ls"},
		{"members", "g1", "ls"},
		{"group-todos", "g1"},
		{"whoami"},
		{"watch"},
	} {
		t.Run(strings.Join(cmd, " "), func(t *testing.T) {
			f := newCLIFixture(t)
			code := Run(cmd, f.opt)
			if code != 2 {
				t.Fatalf("exit code = %d, want 2", code)
			}
			if !strings.Contains(f.errOut.String(), "not logged in") {
				t.Errorf("stderr = %q, want a login hint", f.errOut.String())
			}
			if f.requests.Load() != 0 {
				t.Error("no backend request expected before the login gate")
			}
		})
	}
}

func TestLoginAlreadySignedInShortCircuits(t *testing.T) {
	f := newCLIFixture(t)
	f.login(t)

	code := Run([]string{"login", "other@example.com"}, f.opt)
	if code != 0 {
		t.Fatalf("exit code = %d, want 0", code)
	}
	if !strings.Contains(f.out.String(), "already logged in as u1@example.com") {
		t.Errorf("stdout = %q, want the signed-in identity", f.out.String())
	}
	if f.requests.Load() != 0 {
		t.Error("no backend request expected when already signed in")
	}
}

func TestLoginWithPassword(t *testing.T) {
	f := newCLIFixture(t)
	token := signedToken(t, time.Now().Add(time.Hour))
	f.mux.HandleFunc("POST /api/collections/users/auth-with-password", jsonHandler(http.StatusOK, map[string]any{
		"token":  token,
		"record": map[string]any{"id": "u1", "email": "alice@example.com"},
	}))
	f.opt.Stdin = strings.NewReader("hunter2!\n")

	code := Run([]string{"login", "alice@example.com"}, f.opt)
	if code != 0 {
		t.Fatalf("exit code = %d, stderr %q", code, f.errOut.String())
	}
	if !f.session.IsValid() {
		t.Error("session should be valid after login")
	}
	if got := f.session.Auth().Record.Email; got != "alice@example.com" {
		t.Errorf("session email = %q", got)
	}
}

func TestLoginRejectsShortPasswordLocally(t *testing.T) {
	f := newCLIFixture(t)
	f.opt.Stdin = strings.NewReader("abc\n")

	code := Run([]string{"login", "alice@example.com"}, f.opt)
	if code != 2 {
		t.Fatalf("exit code = %d, want 2", code)
	}
	if f.requests.Load() != 0 {
		t.Error("validation failures must not reach the backend")
	}
}

func TestLogoutClearsSession(t *testing.T) {
	f := newCLIFixture(t)
	f.login(t)

	if code := Run([]string{"logout"}, f.opt); code != 0 {
		t.Fatalf("exit code = %d", code)
	}
	if f.session.IsValid() {
		t.Error("session should be cleared")
	}
}

func TestPrivateList(t *testing.T) {
	f := newCLIFixture(t)
	f.login(t)
	f.mux.HandleFunc("GET /api/collections/private_todos/records", jsonHandler(http.StatusOK, listPage(
		map[string]any{"id": "t1", "title": "Water plants", "completed": false, "user": "u1"},
		map[string]any{"id": "t2", "title": "File taxes", "completed": true, "user": "u1"},
	)))

	if code := Run([]string{"private", "ls"}, f.opt); code != 0 {
		t.Fatalf("exit code = %d, stderr %q", code, f.errOut.String())
	}
	out := f.out.String()
	for _, want := range []string{"Water plants", "File taxes", "[x]"} {
		if !strings.Contains(out, want) {
			t.Errorf("stdout missing %q:\n%s", want, out)
		}
	}
}

func TestPrivateAddCreatesRecord(t *testing.T) {
	f := newCLIFixture(t)
	f.login(t)
	var created map[string]any
	f.mux.HandleFunc("POST /api/collections/private_todos/records", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&created)
		jsonHandler(http.StatusOK, map[string]any{"id": "t9", "title": "Buy milk", "completed": false, "user": "u1"})(w, r)
	})

	if code := Run([]string{"private", "add", "Buy", "milk"}, f.opt); code != 0 {
		t.Fatalf("exit code = %d, stderr %q", code, f.errOut.String())
	}
	if created["title"] != "Buy milk" {
		t.Errorf("created fields = %v, want joined title", created)
	}
	if created["user"] != "u1" {
		t.Errorf("created fields = %v, want the owner stamped", created)
	}
}

func TestPublicDoneOutOfRange(t *testing.T) {
	f := newCLIFixture(t)
	f.login(t)
	f.mux.HandleFunc("GET /api/collections/public_todos/records", jsonHandler(http.StatusOK, listPage(
		map[string]any{"id": "t1", "title": "One", "completed": false, "author": "u2"},
	)))

	if code := Run([]string{"public", "done", "4"}, f.opt); code != 2 {
		t.Fatalf("exit code = %d, want 2", code)
	}
	if !strings.Contains(f.errOut.String(), "index out of range") {
		t.Errorf("stderr = %q", f.errOut.String())
	}
}

func TestPublicRemoveForeignTodoBlockedLocally(t *testing.T) {
	f := newCLIFixture(t)
	f.login(t)
	f.mux.HandleFunc("GET /api/collections/public_todos/records", jsonHandler(http.StatusOK, listPage(
		map[string]any{"id": "t1", "title": "Theirs", "completed": false, "author": "u2"},
	)))

	if code := Run([]string{"public", "rm", "1"}, f.opt); code != 2 {
		t.Fatalf("exit code = %d, want 2 for an ownership rejection", code)
	}
	// one list fetch, no DELETE
	if f.requests.Load() != 1 {
		t.Errorf("requests = %d, want the fetch only", f.requests.Load())
	}
}

func TestGroupsListMarksAdmin(t *testing.T) {
	f := newCLIFixture(t)
	f.login(t)
	f.mux.HandleFunc("GET /api/collections/group_members/records", jsonHandler(http.StatusOK, listPage()))
	f.mux.HandleFunc("GET /api/collections/groups/records", func(w http.ResponseWriter, r *http.Request) {
		if strings.Contains(r.URL.Query().Get("filter"), "admin") {
			jsonHandler(http.StatusOK, listPage(
				map[string]any{"id": "g1", "name": "Our Team", "admin": "u1"},
			))(w, r)
			return
		}
		jsonHandler(http.StatusOK, listPage())(w, r)
	})

	if code := Run([]string{"groups", "ls"}, f.opt); code != 0 {
		t.Fatalf("exit code = %d, stderr %q", code, f.errOut.String())
	}
	out := f.out.String()
	if !strings.Contains(out, "Our Team") || !strings.Contains(out, "(admin)") {
		t.Errorf("stdout = %q, want the group with an admin marker", out)
	}
}

func TestUnknownSubcommand(t *testing.T) {
	f := newCLIFixture(t)
	if code := Run([]string{"frobnicate"}, f.opt); code != 2 {
		t.Fatalf("exit code = %d, want 2", code)
	}
	if !strings.Contains(f.errOut.String(), "unknown subcommand") {
		t.Errorf("stderr = %q", f.errOut.String())
	}
}

func TestForgotPassword(t *testing.T) {
	f := newCLIFixture(t)
	var body map[string]any
	f.mux.HandleFunc("POST /api/collections/users/request-password-reset", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&body)
		w.WriteHeader(http.StatusNoContent)
	})

	if code := Run([]string{"forgot-password", "alice@example.com"}, f.opt); code != 0 {
		t.Fatalf("exit code = %d, stderr %q", code, f.errOut.String())
	}
	if body["email"] != "alice@example.com" {
		t.Errorf("request body = %v", body)
	}
}

func TestRegisterValidatesConfirmation(t *testing.T) {
	f := newCLIFixture(t)
	f.opt.Stdin = strings.NewReader("longenough1\ndifferent99\n")

	if code := Run([]string{"register", "new@example.com"}, f.opt); code != 2 {
		t.Fatalf("exit code = %d, want 2", code)
	}
	if f.requests.Load() != 0 {
		t.Error("mismatched confirmation must not reach the backend")
	}
}

func TestMembersAddUnknownEmail(t *testing.T) {
	f := newCLIFixture(t)
	f.login(t)
	f.mux.HandleFunc("GET /api/collections/group_members/records", jsonHandler(http.StatusOK, listPage()))
	f.mux.HandleFunc("GET /api/collections/groups/records", func(w http.ResponseWriter, r *http.Request) {
		if strings.Contains(r.URL.Query().Get("filter"), "admin") {
			jsonHandler(http.StatusOK, listPage(
				map[string]any{"id": "g1", "name": "Our Team", "admin": "u1"},
			))(w, r)
			return
		}
		jsonHandler(http.StatusOK, listPage())(w, r)
	})
	f.mux.HandleFunc("GET /api/collections/users/records", jsonHandler(http.StatusOK, listPage(
		map[string]any{"id": "u2", "email": "bob@example.com"},
	)))

	code := Run([]string{"members", "Our Team", "add", "nobody@example.com"}, f.opt)
	if code != 2 {
		t.Fatalf("exit code = %d, want 2", code)
	}
	if !strings.Contains(f.errOut.String(), "no addable user") {
		t.Errorf("stderr = %q", f.errOut.String())
	}
}

func TestHelpListsSubcommands(t *testing.T) {
	f := newCLIFixture(t)
	if code := Run([]string{"help"}, f.opt); code != 0 {
		t.Fatalf("exit code = %d", code)
	}
	for _, want := range []string{"login", "private", "group-todos", "watch"} {
		if !strings.Contains(f.out.String(), want) {
			t.Errorf("help output missing %q", want)
		}
	}
}
