package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage JET IPTV configuration",
		Long:  "Initialize a default configuration file or display the current effective configuration.",
	}

	cmd.AddCommand(newConfigInitCmd())
	cmd.AddCommand(newConfigShowCmd())

	return cmd
}

// ---------- config init ----------

func newConfigInitCmd() *cobra.Command {
	var (
		force bool
		path  string
	)

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create a default jetiptv.yaml configuration file",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigInit(cmd.OutOrStdout(), path, force)
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Overwrite existing config file")
	cmd.Flags().StringVarP(&path, "output", "o", "jetiptv.yaml", "Path of the file to write")

	return cmd
}

const defaultConfig = `# JET IPTV Configuration
# Every key can also be set from the environment, e.g. JETIPTV_AUTH_SECRET_KEY.

server:
  host: 0.0.0.0
  port: 8080
  cors_origins:
    - "*"
  secure_cookies: false   # set true behind HTTPS

# Sessions and accounts
auth:
  secret_key: ""          # session signing key; random per start when empty
  session_ttl: 24h
  bcrypt_cost: 10
  allow_registration: true
  login_rate_per_minute: 10

# User database: sqlite (default), postgres or mysql
store:
  driver: sqlite
  dsn: ""                 # required for postgres and mysql
  # data_dir: ~/.jetiptv  # where jetiptv.db lives for sqlite

# Created on first start when the database holds no accounts
bootstrap:
  admin_username: ""
  admin_password: ""

# Stream catalog
catalog:
  file: ""                # YAML catalog replacing the built-in sample
  playlists: []           # M3U files or URLs appended by group-title

# Logging
log:
  level: info    # debug, info, warn, error
  format: text   # text or json
`

func runConfigInit(out io.Writer, path string, force bool) error {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("%s already exists (use --force to overwrite)", path)
		}
	}

	if err := os.WriteFile(path, []byte(defaultConfig), 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	fmt.Fprintf(out, "Created %s\n", path)
	fmt.Fprintln(out, "Set auth.secret_key and the bootstrap admin, then run 'jetiptv serve'.")
	return nil
}

// ---------- config show ----------

func newConfigShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the current effective configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigShow(cmd.OutOrStdout())
		},
	}
}

// secretKeys are masked by config show.
var secretKeys = map[string]bool{
	"secret_key":     true,
	"admin_password": true,
	"dsn":            true,
}

func runConfigShow(out io.Writer) error {
	configFile := viper.ConfigFileUsed()
	if configFile != "" {
		fmt.Fprintf(out, "# Config file: %s\n", configFile)
	} else {
		fmt.Fprintln(out, "# Config file: (none found, using defaults)")
	}

	settings := viper.AllSettings()
	maskSecrets(settings)

	b, err := yaml.Marshal(settings)
	if err != nil {
		return fmt.Errorf("render config: %w", err)
	}
	_, err = out.Write(b)
	return err
}

// maskSecrets replaces non-empty secret values in the nested settings map.
func maskSecrets(m map[string]interface{}) {
	for k, v := range m {
		switch val := v.(type) {
		case map[string]interface{}:
			maskSecrets(val)
		case string:
			if secretKeys[strings.ToLower(k)] && val != "" {
				m[k] = "********"
			}
		}
	}
}
