package cli

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/viper"

	"github.com/JET-SOUZA/jet.iptv/internal/model"
)

// run executes the root command with args against a fresh viper instance and
// a temporary data directory.
func run(t *testing.T, dataDir string, args ...string) (string, error) {
	t.Helper()
	viper.Reset()
	t.Cleanup(viper.Reset)
	cfgFile = ""

	var out bytes.Buffer
	cmd := newRootCmd("test", "abc123", "today")
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append([]string{"--data-dir", dataDir}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func TestUserCommands(t *testing.T) {
	t.Setenv("JETIPTV_AUTH_BCRYPT_COST", "4")
	dir := t.TempDir()

	out, err := run(t, dir, "user", "create", "--username", "alice", "--password", "pw", "--premium", "--expiry-hours", "48")
	if err != nil {
		t.Fatalf("user create: %v", err)
	}
	if !strings.Contains(out, `Created user "alice" (id 1)`) {
		t.Errorf("create output = %q", out)
	}
	if _, err := os.Stat(filepath.Join(dir, "jetiptv.db")); err != nil {
		t.Errorf("database file not created: %v", err)
	}

	if _, err := run(t, dir, "user", "create", "--username", "alice", "--password", "other"); err == nil ||
		!strings.Contains(err.Error(), "already exists") {
		t.Errorf("duplicate create err = %v, want already exists", err)
	}

	out, err = run(t, dir, "user", "list", "--json")
	if err != nil {
		t.Fatalf("user list: %v", err)
	}
	var users []model.User
	if err := json.Unmarshal([]byte(out), &users); err != nil {
		t.Fatalf("decode list: %v\n%s", err, out)
	}
	if len(users) != 1 || !users[0].Premium || users[0].ExpiresAt == nil {
		t.Fatalf("users = %+v", users)
	}
	if strings.Contains(out, "password") {
		t.Error("list output exposes password material")
	}

	out, err = run(t, dir, "user", "premium", "1")
	if err != nil {
		t.Fatalf("user premium: %v", err)
	}
	if !strings.Contains(out, "premium: no") {
		t.Errorf("premium output = %q", out)
	}

	out, err = run(t, dir, "user", "expiry", "1")
	if err != nil {
		t.Fatalf("user expiry: %v", err)
	}
	if !strings.Contains(out, "Expiry cleared") {
		t.Errorf("expiry output = %q", out)
	}

	if _, err := run(t, dir, "user", "expiry", "99", "5"); err == nil {
		t.Error("expected error for unknown user")
	}

	out, err = run(t, dir, "user", "list")
	if err != nil {
		t.Fatalf("user list: %v", err)
	}
	if !strings.Contains(out, "alice") || !strings.Contains(out, "never") {
		t.Errorf("table output = %q", out)
	}

	if _, err := run(t, dir, "user", "delete", "1"); err != nil {
		t.Fatalf("user delete: %v", err)
	}
	out, _ = run(t, dir, "user", "list")
	if !strings.Contains(out, "No accounts") {
		t.Errorf("list after delete = %q", out)
	}
}

func TestUserCreateValidation(t *testing.T) {
	t.Setenv("JETIPTV_AUTH_BCRYPT_COST", "4")
	dir := t.TempDir()

	if _, err := run(t, dir, "user", "create", "--username", "  ", "--password", "pw"); err == nil {
		t.Error("expected error for blank username")
	}
	if _, err := run(t, dir, "user", "delete", "abc"); err == nil {
		t.Error("expected error for invalid id")
	}
}

func TestParseID(t *testing.T) {
	tests := []struct {
		in      string
		want    int64
		wantErr bool
	}{
		{"1", 1, false},
		{"42", 42, false},
		{"0", 0, true},
		{"-1", 0, true},
		{"x", 0, true},
		{"", 0, true},
	}
	for _, tt := range tests {
		got, err := parseID(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("parseID(%q) = %d, %v", tt.in, got, err)
		}
	}
}

func TestConfigInit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "jetiptv.yaml")
	var out bytes.Buffer

	if err := runConfigInit(&out, path, false); err != nil {
		t.Fatalf("config init: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	for _, key := range []string{"secret_key:", "admin_username:", "playlists:", "driver: sqlite"} {
		if !bytes.Contains(data, []byte(key)) {
			t.Errorf("default config missing %q", key)
		}
	}

	if err := runConfigInit(&out, path, false); err == nil {
		t.Error("expected error when file exists without --force")
	}
	if err := runConfigInit(&out, path, true); err != nil {
		t.Errorf("config init --force: %v", err)
	}
}

func TestConfigFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "jetiptv.yaml")
	if err := os.WriteFile(path, []byte(defaultConfig), 0600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("JETIPTV_SERVER_PORT", "9090")
	t.Setenv("JETIPTV_AUTH_SECRET_KEY", "from-env")

	viper.Reset()
	t.Cleanup(viper.Reset)
	cfgFile = path
	t.Cleanup(func() { cfgFile = "" })
	initConfig()

	s := loadSettings()
	if s.Port != 9090 {
		t.Errorf("port = %d, want 9090 from env", s.Port)
	}
	if s.SecretKey != "from-env" {
		t.Errorf("secret = %q, want from-env", s.SecretKey)
	}
	if s.SessionTTL.Hours() != 24 {
		t.Errorf("session ttl = %v, want 24h", s.SessionTTL)
	}
	if !s.AllowRegistration || s.LoginRate != 10 || s.StoreDriver != "sqlite" {
		t.Errorf("settings = %+v", s)
	}

	var out bytes.Buffer
	if err := runConfigShow(&out); err != nil {
		t.Fatalf("config show: %v", err)
	}
	if strings.Contains(out.String(), "from-env") {
		t.Error("config show leaks the secret key")
	}
	if !strings.Contains(out.String(), "********") {
		t.Errorf("config show did not mask secrets:\n%s", out.String())
	}
}

func TestMaskSecrets(t *testing.T) {
	m := map[string]interface{}{
		"auth": map[string]interface{}{
			"secret_key":  "s3cret",
			"session_ttl": "24h",
		},
		"bootstrap": map[string]interface{}{
			"admin_password": "",
		},
	}
	maskSecrets(m)

	auth := m["auth"].(map[string]interface{})
	if auth["secret_key"] != "********" {
		t.Errorf("secret_key = %v", auth["secret_key"])
	}
	if auth["session_ttl"] != "24h" {
		t.Errorf("session_ttl changed to %v", auth["session_ttl"])
	}
	if m["bootstrap"].(map[string]interface{})["admin_password"] != "" {
		t.Error("empty secrets should stay empty")
	}
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	newLogger(&buf, "debug", "json").Debug("hello", "k", "v")
	var rec map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("json handler output: %v (%q)", err, buf.String())
	}
	if rec["msg"] != "hello" || rec["k"] != "v" {
		t.Errorf("record = %v", rec)
	}

	buf.Reset()
	newLogger(&buf, "bogus", "text").Debug("hidden")
	if buf.Len() != 0 {
		t.Errorf("unknown level should fall back to info, got %q", buf.String())
	}
}

func TestStatus(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if r.URL.Path == "/readyz" {
			w.WriteHeader(http.StatusServiceUnavailable)
			json.NewEncoder(w).Encode(model.HealthResponse{Status: "degraded", Checks: map[string]string{"store": "error: closed"}})
			return
		}
		json.NewEncoder(w).Encode(model.HealthResponse{Status: "ok"})
	}))
	defer ts.Close()

	var out bytes.Buffer
	if err := runStatus(&out, ts.Client(), ts.URL); err != nil {
		t.Fatalf("status: %v", err)
	}
	for _, want := range []string{"Server is running", "Health:  200", "degraded (503)", "store: error: closed"} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("status output missing %q:\n%s", want, out.String())
		}
	}

	ts.Close()
	out.Reset()
	runStatus(&out, ts.Client(), ts.URL)
	if !strings.Contains(out.String(), "not responding") {
		t.Errorf("status output = %q", out.String())
	}
}

func TestOpenAPICommand(t *testing.T) {
	out, err := run(t, t.TempDir(), "openapi", "--server", "https://tv.example.com")
	if err != nil {
		t.Fatalf("openapi: %v", err)
	}
	var doc struct {
		OpenAPI string `json:"openapi"`
		Servers []struct {
			URL string `json:"url"`
		} `json:"servers"`
	}
	if err := json.Unmarshal([]byte(out), &doc); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if doc.OpenAPI != "3.1.0" || len(doc.Servers) != 1 || doc.Servers[0].URL != "https://tv.example.com" {
		t.Errorf("doc = %+v", doc)
	}
}

func TestVersionCommand(t *testing.T) {
	out, err := run(t, t.TempDir(), "version", "--json")
	if err != nil {
		t.Fatalf("version: %v", err)
	}
	var info map[string]string
	if err := json.Unmarshal([]byte(out), &info); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if info["version"] != "test" || info["commit"] != "abc123" {
		t.Errorf("info = %v", info)
	}
}
