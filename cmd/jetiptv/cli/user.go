package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/JET-SOUZA/jet.iptv/internal/service"
	"github.com/JET-SOUZA/jet.iptv/internal/store"
)

func newUserCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage accounts",
		Long:  "Create, list, delete and update accounts directly in the user database.",
	}

	cmd.AddCommand(newUserCreateCmd())
	cmd.AddCommand(newUserListCmd())
	cmd.AddCommand(newUserDeleteCmd())
	cmd.AddCommand(newUserPremiumCmd())
	cmd.AddCommand(newUserExpiryCmd())

	return cmd
}

// ---------- user create ----------

func newUserCreateCmd() *cobra.Command {
	var in service.NewUser

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create an account",
		Example: `  jetiptv user create --username alice --password secret --premium
  jetiptv user create --username root --admin --premium   # prompts for password
  jetiptv user create --username bob --expiry-hours 72 --server http://panel.example:8080`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if in.Password == "" {
				pw, err := promptPassword(cmd.ErrOrStderr())
				if err != nil {
					return err
				}
				in.Password = pw
			}
			return runUserCreate(cmd.Context(), cmd.OutOrStdout(), in)
		},
	}

	cmd.Flags().StringVar(&in.Username, "username", "", "Login name (required)")
	cmd.Flags().StringVar(&in.Password, "password", "", "Password (prompted if omitted)")
	cmd.Flags().BoolVar(&in.Premium, "premium", false, "Grant premium access")
	cmd.Flags().BoolVar(&in.IsAdmin, "admin", false, "Grant user administration")
	cmd.Flags().StringVar(&in.ExpiryHours, "expiry-hours", "", "Hours until the account expires (blank: never)")
	cmd.Flags().StringVar(&in.Server, "server", "", "Xtream panel base URL")
	cmd.MarkFlagRequired("username")

	return cmd
}

// promptPassword reads a password twice from the terminal without echo.
func promptPassword(w io.Writer) (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", errors.New("--password is required when stdin is not a terminal")
	}

	fmt.Fprint(w, "Password: ")
	pwBytes, err := term.ReadPassword(fd)
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	fmt.Fprintln(w)

	fmt.Fprint(w, "Confirm password: ")
	confirmBytes, err := term.ReadPassword(fd)
	if err != nil {
		return "", fmt.Errorf("failed to read confirmation: %w", err)
	}
	fmt.Fprintln(w)

	if string(pwBytes) != string(confirmBytes) {
		return "", errors.New("passwords do not match")
	}
	return string(pwBytes), nil
}

func runUserCreate(ctx context.Context, out io.Writer, in service.NewUser) error {
	admin, st, err := openAdmin(loadSettings())
	if err != nil {
		return err
	}
	defer st.Close()

	u, err := admin.CreateUser(ctxOrBackground(ctx), in)
	switch {
	case errors.Is(err, service.ErrMissingFields):
		return errors.New("username and password must not be blank")
	case errors.Is(err, store.ErrDuplicateUsername):
		return fmt.Errorf("username %q already exists", in.Username)
	case err != nil:
		return fmt.Errorf("create user: %w", err)
	}

	fmt.Fprintf(out, "Created user %q (id %d)\n", u.Username, u.ID)
	return nil
}

// ---------- user list ----------

func newUserListCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List all accounts",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runUserList(cmd.Context(), cmd.OutOrStdout(), jsonOutput)
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")

	return cmd
}

func runUserList(ctx context.Context, out io.Writer, jsonOutput bool) error {
	admin, st, err := openAdmin(loadSettings())
	if err != nil {
		return err
	}
	defer st.Close()

	users, err := admin.ListUsers(ctxOrBackground(ctx))
	if err != nil {
		return fmt.Errorf("list users: %w", err)
	}

	if jsonOutput {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(users)
	}

	if len(users) == 0 {
		fmt.Fprintln(out, "No accounts. Use 'jetiptv user create' to create one.")
		return nil
	}

	now := time.Now()
	fmt.Fprintf(out, "%-6s %-24s %-8s %-6s %-22s\n", "ID", "USERNAME", "PREMIUM", "ADMIN", "EXPIRES")
	fmt.Fprintf(out, "%-6s %-24s %-8s %-6s %-22s\n", "--", "--------", "-------", "-----", "-------")
	for _, u := range users {
		expires := "never"
		if u.ExpiresAt != nil {
			expires = u.ExpiresAt.UTC().Format("2006-01-02 15:04 UTC")
			if u.IsExpired(now) {
				expires += " (expired)"
			}
		}
		fmt.Fprintf(out, "%-6d %-24s %-8s %-6s %-22s\n", u.ID, u.Username, yesNo(u.Premium), yesNo(u.IsAdmin), expires)
	}
	return nil
}

// ---------- user delete ----------

func newUserDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete an account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			admin, st, err := openAdmin(loadSettings())
			if err != nil {
				return err
			}
			defer st.Close()

			if err := admin.DeleteUser(ctxOrBackground(cmd.Context()), id); err != nil {
				return fmt.Errorf("delete user: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted user %d\n", id)
			return nil
		},
	}
}

// ---------- user premium ----------

func newUserPremiumCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "premium <id>",
		Short: "Toggle an account's premium flag",
		Long:  "Toggle premium access. A signed-in user sees the change at their next login.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			admin, st, err := openAdmin(loadSettings())
			if err != nil {
				return err
			}
			defer st.Close()

			ctx := ctxOrBackground(cmd.Context())
			if err := admin.TogglePremium(ctx, id); err != nil {
				return fmt.Errorf("toggle premium: %w", err)
			}
			u, err := admin.GetUser(ctx, id)
			if errors.Is(err, store.ErrNotFound) {
				return fmt.Errorf("user %d not found", id)
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "User %q premium: %s\n", u.Username, yesNo(u.Premium))
			return nil
		},
	}
}

// ---------- user expiry ----------

func newUserExpiryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "expiry <id> [hours]",
		Short: "Set or clear an account's expiry",
		Long:  "Set the account to expire the given number of hours from now. Omit hours to clear the expiry.",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			hours := ""
			if len(args) == 2 {
				hours = args[1]
			}

			admin, st, err := openAdmin(loadSettings())
			if err != nil {
				return err
			}
			defer st.Close()

			ctx := ctxOrBackground(cmd.Context())
			if _, err := admin.GetUser(ctx, id); errors.Is(err, store.ErrNotFound) {
				return fmt.Errorf("user %d not found", id)
			}
			exp, err := admin.SetExpiry(ctx, id, hours)
			if err != nil {
				return fmt.Errorf("set expiry: %w", err)
			}
			if exp == nil {
				fmt.Fprintf(cmd.OutOrStdout(), "Expiry cleared for user %d\n", id)
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "User %d expires at %s\n", id, exp.Format("2006-01-02 15:04 UTC"))
			return nil
		},
	}
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid user id %q", s)
	}
	return id, nil
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func ctxOrBackground(ctx context.Context) context.Context {
	if ctx == nil {
		return context.Background()
	}
	return ctx
}
