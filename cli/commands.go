// Package cli provides the Cobra-based CLI for hisaab-pos.
package cli

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"golang.org/x/term"

	"hisaabpos/api"
	"hisaabpos/catalog"
	"hisaabpos/notify"
	"hisaabpos/session"
)

var (
	rootCmd = &cobra.Command{
		Use:           "hisaab-pos",
		Short:         "Keyboard-first quick sale client for HisaabPlus",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// IMPORTANT: allow tests to inject the backend client
			if backend != nil {
				return nil
			}

			if cfg := viper.GetString("config"); cfg != "" {
				viper.SetConfigFile(cfg)
				if err := viper.ReadInConfig(); err != nil {
					return err
				}
			}

			lvlStr := strings.ToLower(viper.GetString("log-level"))
			lvl := slog.LevelInfo
			switch lvlStr {
			case "debug":
				lvl = slog.LevelDebug
			case "warn", "warning":
				lvl = slog.LevelWarn
			case "error":
				lvl = slog.LevelError
			}
			slog.SetDefault(slog.New(
				slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}),
			))

			store, err := session.NewStore(
				viper.GetString("session-store"),
				viper.GetString("session-file"),
			)
			if err != nil {
				return err
			}
			sessions = session.NewManager(store)

			httpClient := &http.Client{Timeout: viper.GetDuration("timeout")}
			backend, err = api.NewClient(viper.GetString("api-url"), httpClient, sessions)
			return err
		},
	}

	backend  *api.Client
	sessions *session.Manager
)

// errNotLoggedIn is returned by commands that need a session when none is stored
var errNotLoggedIn = errors.New("not logged in: run `hisaab-pos login` first")

const defaultTimeout = 15 * time.Second

// requireSession returns the active session, restoring it from the store on first use
func requireSession(ctx context.Context) (session.Session, error) {
	if s, ok := sessions.Current(); ok {
		return s, nil
	}
	s, err := sessions.Restore(ctx, backend)
	if errors.Is(err, session.ErrNoSession) {
		return session.Session{}, errNotLoggedIn
	}
	return s, err
}

func defaultSessionFile() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return filepath.Join(".hisaab-pos", "session.json")
	}
	return filepath.Join(dir, "hisaab-pos", "session.json")
}

// resetFlags puts every local flag of cmd back to its default, Changed included,
// so a later run in the same process (the shell) starts clean
func resetFlags(cmd *cobra.Command) {
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			_ = sv.Replace(nil)
		} else {
			_ = f.Value.Set(f.DefValue)
		}
		f.Changed = false
	})
}

func printJSON(w io.Writer, v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(b))
	return err
}

func init() {
	// shell
	shellCmd := &cobra.Command{
		Use:   "shell",
		Short: "Interactive shell mode",
		RunE: func(cmd *cobra.Command, args []string) error {
			r := bufio.NewReader(cmd.InOrStdin())
			out := cmd.OutOrStdout()
			for {
				fmt.Fprint(out, "hisaab> ")
				line, err := r.ReadString('\n')
				if err != nil {
					return nil
				}
				line = strings.TrimSpace(line)
				if line == "" {
					continue
				}
				if line == "exit" || line == "quit" {
					return nil
				}
				if strings.Fields(line)[0] == "shell" {
					fmt.Fprintln(cmd.ErrOrStderr(), "already in shell")
					continue
				}
				rootCmd.SetArgs(strings.Fields(line))
				if err := rootCmd.Execute(); err != nil {
					fmt.Fprintln(cmd.ErrOrStderr(), err)
				}
				rootCmd.SetArgs(nil)
			}
		},
	}
	rootCmd.AddCommand(shellCmd)

	rootCmd.PersistentFlags().String("api-url", "http://localhost:8000/api", "backend base URL")
	rootCmd.PersistentFlags().String("session-store", "file", "session store: file|memory")
	rootCmd.PersistentFlags().String("session-file", defaultSessionFile(), "session file path")
	rootCmd.PersistentFlags().Duration("timeout", defaultTimeout, "per-request timeout")
	rootCmd.PersistentFlags().String("config", "", "config file")
	rootCmd.PersistentFlags().String("log-level", "info", "log level")

	for _, name := range []string{"api-url", "session-store", "session-file", "timeout", "config", "log-level"} {
		viper.BindPFlag(name, rootCmd.PersistentFlags().Lookup(name))
	}
	viper.SetEnvPrefix("HISAAB")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	// login
	var email, password string
	loginCmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and store the session",
		RunE: func(cmd *cobra.Command, args []string) error {
			if password == "" {
				p, err := readPassword(cmd)
				if err != nil {
					return err
				}
				password = p
			}
			defer func() { password = "" }()

			s, err := sessions.Login(cmd.Context(), backend, email, password)
			if err != nil {
				return fmt.Errorf("login failed: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Logged in as %s (business %d)\n", s.User.Email, s.User.Business)
			return nil
		},
	}
	loginCmd.Flags().StringVar(&email, "email", "", "account email")
	loginCmd.Flags().StringVar(&password, "password", "", "account password (prompted when empty)")
	rootCmd.AddCommand(loginCmd)

	// logout
	logoutCmd := &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored session",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := sessions.Logout(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Logged out")
			return nil
		},
	}
	rootCmd.AddCommand(logoutCmd)

	// whoami
	whoamiCmd := &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in user",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := requireSession(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), s.User)
		},
	}
	rootCmd.AddCommand(whoamiCmd)

	// products
	var pSearch, pOutput string
	productsCmd := &cobra.Command{
		Use:   "products",
		Short: "List sellable products",
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := requireSession(cmd.Context()); err != nil {
				return err
			}
			cat, err := catalog.Load(cmd.Context(), backend, notify.Log{})
			if err != nil {
				return err
			}
			out := cat.Products()
			if pSearch != "" {
				out = cat.Search(pSearch)
			}
			if pOutput == "json" {
				return printJSON(cmd.OutOrStdout(), out)
			}
			w := cmd.OutOrStdout()
			for _, p := range out {
				flag := ""
				if p.BelowReorderLevel() {
					flag = " LOW"
				}
				fmt.Fprintf(w, "%d | %s | %s | %s | %d%s\n",
					p.ID, p.SKU, p.Name, p.SellingPrice.StringFixed(2), p.Stock, flag)
			}
			return nil
		},
	}
	productsCmd.Flags().StringVar(&pSearch, "search", "", "name or SKU substring")
	productsCmd.Flags().StringVar(&pOutput, "output", "", "output format")
	rootCmd.AddCommand(productsCmd)
}

// readPassword prompts without echo on a terminal, otherwise reads one line of input
func readPassword(cmd *cobra.Command) (string, error) {
	in := cmd.InOrStdin()
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		fmt.Fprint(cmd.ErrOrStderr(), "Password: ")
		b, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(cmd.ErrOrStderr())
		return string(b), err
	}
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func Execute() error {
	return rootCmd.Execute()
}

// ExecuteContext runs the CLI with ctx as every command's context
func ExecuteContext(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}
