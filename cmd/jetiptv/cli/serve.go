package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/JET-SOUZA/jet.iptv/internal/server"
	"github.com/JET-SOUZA/jet.iptv/internal/service"
	"github.com/JET-SOUZA/jet.iptv/internal/session"
)

const banner = `
     _ _____ _____   ___ ____ _____ __   __
    | | ____|_   _| |_ _|  _ \_   _|\ \ / /
 _  | |  _|   | |    | || |_) || |   \ V /
| |_| | |___  | |    | ||  __/ | |    | |
 \___/|_____| |_|   |___|_|    |_|    |_|
`

func newServeCmd() *cobra.Command {
	var dev bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the JET IPTV web server",
		Long: `Start the HTTP server. The user database is migrated on startup and the
bootstrap admin is created when the database holds no accounts yet.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), dev)
		},
	}

	cmd.Flags().IntP("port", "p", 8080, "HTTP listen port")
	cmd.Flags().String("host", "0.0.0.0", "HTTP listen host")
	cmd.Flags().BoolVar(&dev, "dev", false, "Enable development mode (debug logging)")

	viper.BindPFlag("server.port", cmd.Flags().Lookup("port"))
	viper.BindPFlag("server.host", cmd.Flags().Lookup("host"))

	return cmd
}

func runServe(ctx context.Context, dev bool) error {
	ctx = ctxOrBackground(ctx)
	fmt.Print(banner)
	fmt.Println()

	cfg := loadSettings()
	if dev {
		cfg.LogLevel = "debug"
	}
	logger := newLogger(os.Stderr, cfg.LogLevel, cfg.LogFormat)

	// 1. User database
	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	logger.Info("user database ready", "driver", st.Driver(), "data_dir", cfg.DataDir)

	// 2. Services
	hasher := service.NewHasher(cfg.BcryptCost)
	authSvc := service.NewAuthService(st, hasher, cfg.AllowRegistration)
	adminSvc := service.NewAdminService(st, hasher)

	// 3. First-run admin
	seeded, err := authSvc.EnsureBootstrapAdmin(ctx, cfg.AdminUsername, cfg.AdminPassword)
	if err != nil {
		st.Close()
		return fmt.Errorf("bootstrap admin: %w", err)
	}
	if seeded {
		logger.Info("bootstrap admin created", "username", cfg.AdminUsername)
	} else if n, err := st.CountUsers(ctx); err == nil && n == 0 {
		logger.Warn("no accounts exist - set bootstrap.admin_username and bootstrap.admin_password or run: jetiptv user create")
	}

	// 4. Sessions and catalog
	sessions, err := session.NewManager(session.Config{
		Secret: cfg.SecretKey,
		TTL:    cfg.SessionTTL,
		Secure: cfg.SecureCookies,
		Logger: logger,
	})
	if err != nil {
		st.Close()
		return fmt.Errorf("init sessions: %w", err)
	}

	cat, err := loadCatalog(cfg)
	if err != nil {
		st.Close()
		return err
	}
	logger.Info("catalog loaded", "categories", len(cat.Names()))

	// 5. Build and start HTTP server
	srvCfg := server.DefaultConfig()
	srvCfg.Host = cfg.Host
	srvCfg.Port = cfg.Port
	srvCfg.CORSOrigins = cfg.CORSOrigins
	srvCfg.LoginRatePerMinute = cfg.LoginRate
	srvCfg.Version = versionString()

	srv, err := server.New(srvCfg, server.Deps{
		Store:    st,
		Auth:     authSvc,
		Admin:    adminSvc,
		Sessions: sessions,
		Catalog:  cat,
	}, logger)
	if err != nil {
		st.Close()
		return err
	}

	fmt.Printf("→ JET IPTV %s\n", versionString())
	fmt.Printf("→ Listening on http://%s:%d\n", cfg.Host, cfg.Port)
	fmt.Printf("→ Admin:      http://%s:%d/admin\n", cfg.Host, cfg.Port)
	fmt.Printf("→ OpenAPI:    http://%s:%d/openapi.json\n", cfg.Host, cfg.Port)
	fmt.Printf("→ Health:     http://%s:%d/healthz\n", cfg.Host, cfg.Port)
	if !cfg.AllowRegistration {
		fmt.Println("→ Self-registration is disabled")
	}
	fmt.Println()

	return srv.ListenAndServe()
}
