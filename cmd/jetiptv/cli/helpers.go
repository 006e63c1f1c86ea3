package cli

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/JET-SOUZA/jet.iptv/internal/catalog"
	"github.com/JET-SOUZA/jet.iptv/internal/service"
	"github.com/JET-SOUZA/jet.iptv/internal/store"
)

// envKeyReplacer maps nested keys to env names: auth.secret_key is read from
// JETIPTV_AUTH_SECRET_KEY.
var envKeyReplacer = strings.NewReplacer(".", "_")

// setDefaults registers every configuration key so AutomaticEnv can resolve
// it and `config show` lists it.
func setDefaults() {
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.cors_origins", []string{"*"})
	viper.SetDefault("server.secure_cookies", false)

	viper.SetDefault("auth.secret_key", "")
	viper.SetDefault("auth.session_ttl", "24h")
	viper.SetDefault("auth.bcrypt_cost", 10)
	viper.SetDefault("auth.allow_registration", true)
	viper.SetDefault("auth.login_rate_per_minute", 10)

	viper.SetDefault("store.driver", "sqlite")
	viper.SetDefault("store.dsn", "")
	viper.SetDefault("store.data_dir", "")

	viper.SetDefault("bootstrap.admin_username", "")
	viper.SetDefault("bootstrap.admin_password", "")

	viper.SetDefault("catalog.file", "")
	viper.SetDefault("catalog.playlists", []string{})

	viper.SetDefault("log.level", "info")
	viper.SetDefault("log.format", "text")
}

// settings is the resolved configuration, read once per command.
type settings struct {
	Host          string
	Port          int
	CORSOrigins   []string
	SecureCookies bool

	SecretKey         string
	SessionTTL        time.Duration
	BcryptCost        int
	AllowRegistration bool
	LoginRate         int

	StoreDriver string
	StoreDSN    string
	DataDir     string

	AdminUsername string
	AdminPassword string

	CatalogFile string
	Playlists   []string

	LogLevel  string
	LogFormat string
}

func loadSettings() settings {
	return settings{
		Host:              viper.GetString("server.host"),
		Port:              viper.GetInt("server.port"),
		CORSOrigins:       viper.GetStringSlice("server.cors_origins"),
		SecureCookies:     viper.GetBool("server.secure_cookies"),
		SecretKey:         viper.GetString("auth.secret_key"),
		SessionTTL:        viper.GetDuration("auth.session_ttl"),
		BcryptCost:        viper.GetInt("auth.bcrypt_cost"),
		AllowRegistration: viper.GetBool("auth.allow_registration"),
		LoginRate:         viper.GetInt("auth.login_rate_per_minute"),
		StoreDriver:       viper.GetString("store.driver"),
		StoreDSN:          viper.GetString("store.dsn"),
		DataDir:           resolveDataDir(),
		AdminUsername:     viper.GetString("bootstrap.admin_username"),
		AdminPassword:     viper.GetString("bootstrap.admin_password"),
		CatalogFile:       viper.GetString("catalog.file"),
		Playlists:         viper.GetStringSlice("catalog.playlists"),
		LogLevel:          viper.GetString("log.level"),
		LogFormat:         viper.GetString("log.format"),
	}
}

// resolveDataDir returns the data directory from --data-dir,
// JETIPTV_STORE_DATA_DIR or the config file, with ~/.jetiptv as fallback.
func resolveDataDir() string {
	if dir := viper.GetString("store.data_dir"); dir != "" {
		return dir
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".jetiptv")
}

// newLogger builds the process logger. Unknown levels fall back to info.
func newLogger(w io.Writer, level, format string) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: lvl}
	if strings.EqualFold(format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// openStore opens the user database. SQLite files live in the data
// directory, which is created on demand.
func openStore(s settings) (*store.Store, error) {
	opts := store.Options{Driver: s.StoreDriver, DSN: s.StoreDSN}
	if s.StoreDriver == "" || s.StoreDriver == "sqlite" || s.StoreDriver == "sqlite3" {
		if err := os.MkdirAll(s.DataDir, 0o700); err != nil {
			return nil, fmt.Errorf("create data dir: %w", err)
		}
		opts.DataDir = s.DataDir
	}
	st, err := store.NewStore(opts)
	if err != nil {
		return nil, fmt.Errorf("open user database: %w", err)
	}
	return st, nil
}

// openAdmin opens the store and wraps it in the admin service. Callers close
// the returned store.
func openAdmin(s settings) (*service.AdminService, *store.Store, error) {
	st, err := openStore(s)
	if err != nil {
		return nil, nil, err
	}
	return service.NewAdminService(st, service.NewHasher(s.BcryptCost)), st, nil
}

func loadCatalog(s settings) (*catalog.Catalog, error) {
	cat, err := catalog.Load(catalog.Options{File: s.CatalogFile, Playlists: s.Playlists})
	if err != nil {
		return nil, fmt.Errorf("load catalog: %w", err)
	}
	return cat, nil
}

// versionString returns a display version string.
func versionString() string {
	if appVersion == "" || appVersion == "dev" {
		return "dev"
	}
	if strings.HasPrefix(appVersion, "v") {
		return appVersion
	}
	return "v" + appVersion
}
