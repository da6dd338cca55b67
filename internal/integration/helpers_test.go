package integration

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"myconnectionsvr/loginportal/internal/app"
	"myconnectionsvr/loginportal/internal/config"
)

func baseConfig() config.Config {
	return config.Config{
		HTTP: config.HTTPConfig{
			Addr:            "127.0.0.1:0",
			ReadTimeout:     5 * time.Second,
			WriteTimeout:    5 * time.Second,
			ShutdownTimeout: 5 * time.Second,
		},
		DB:      config.DBConfig{MaxOpenConns: 4, MaxIdleConns: 2, EnsureSchema: true},
		Session: config.SessionConfig{Secret: "integration-secret", CookieName: "session"},
		Auth:    config.AuthConfig{PasswordMode: config.PasswordModePlaintext, BcryptCost: 4},
	}
}

type portal struct {
	t      *testing.T
	base   string
	client *http.Client
}

func startPortal(t *testing.T, cfg config.Config) *portal {
	t.Helper()
	a, err := app.New(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		t.Fatalf("app.New() error: %v", err)
	}
	srv := httptest.NewServer(a.Handler())
	t.Cleanup(func() {
		srv.Close()
		_ = a.Close()
	})
	return &portal{t: t, base: srv.URL, client: newClient(t)}
}

func newClient(t *testing.T) *http.Client {
	t.Helper()
	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatalf("cookiejar.New() error: %v", err)
	}
	return &http.Client{
		Jar: jar,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}

func (p *portal) post(path, username, password string) (int, string, string) {
	p.t.Helper()
	resp, err := p.client.PostForm(p.base+path, url.Values{"username": {username}, "password": {password}})
	if err != nil {
		p.t.Fatalf("POST %s: %v", path, err)
	}
	return read(p.t, resp)
}

func (p *portal) get(path string) (int, string, string) {
	p.t.Helper()
	resp, err := p.client.Get(p.base + path)
	if err != nil {
		p.t.Fatalf("GET %s: %v", path, err)
	}
	return read(p.t, resp)
}

func read(t *testing.T, resp *http.Response) (int, string, string) {
	t.Helper()
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return resp.StatusCode, resp.Header.Get("Location"), string(body)
}

// exercisePortal drives the register, login, dashboard and logout pages with
// a username unique to this run.
func exercisePortal(t *testing.T, p *portal) {
	t.Helper()
	username := "itest_" + time.Now().Format("150405.000000000")
	welcome := "Welcome, " + username + "! <br><a href='/logout'>Logout</a>"

	if status, loc, _ := p.post("/register", username, "pw1"); status != http.StatusFound || loc != "/" {
		t.Fatalf("register: got %d %q", status, loc)
	}
	if status, _, body := p.post("/", username, "wrong"); status != http.StatusOK || body != "Invalid credentials. Try again." {
		t.Fatalf("bad login: got %d %q", status, body)
	}
	if status, _, body := p.post("/", username, "' OR '1'='1"); status != http.StatusOK || body != "Invalid credentials. Try again." {
		t.Fatalf("injection login: got %d %q", status, body)
	}
	if status, loc, _ := p.post("/", username, "pw1"); status != http.StatusFound || loc != "/dashboard" {
		t.Fatalf("login: got %d %q", status, loc)
	}
	if status, _, body := p.get("/dashboard"); status != http.StatusOK || body != welcome {
		t.Fatalf("dashboard: got %d %q", status, body)
	}
	if status, loc, _ := p.get("/logout"); status != http.StatusFound || loc != "/" {
		t.Fatalf("logout: got %d %q", status, loc)
	}
	if status, loc, _ := p.get("/dashboard"); status != http.StatusFound || loc != "/" {
		t.Fatalf("dashboard after logout: got %d %q", status, loc)
	}
}
