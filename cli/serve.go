package cli

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"hisaabpos/mockapi"
	"hisaabpos/store"
)

func init() {
	// mock-api
	var addr, seed string
	var cfg mockapi.Config
	mockCmd := &cobra.Command{
		Use:   "mock-api",
		Short: "Run a stand-in backend over an in-memory store",
		RunE: func(cmd *cobra.Command, args []string) error {
			st := store.NewInMemoryStore()
			if seed != "" {
				start := time.Now()
				if err := st.SeedFile(cmd.Context(), seed); err != nil {
					slog.Error("seed failed", "file", seed, "error", err)
					return err
				}
				_, total, _ := st.List(cmd.Context(), store.ListFilter{})
				slog.Info("products seeded", "file", seed, "count", total, "duration_ms", time.Since(start).Milliseconds())
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			srv := mockapi.New(addr, st, cfg)
			errCh := make(chan error, 1)
			go func() {
				slog.Info("mock api listening", "addr", addr, "email", cfg.Email)
				errCh <- srv.ListenAndServe()
			}()

			select {
			case err := <-errCh:
				if errors.Is(err, http.ErrServerClosed) {
					return nil
				}
				return err
			case <-ctx.Done():
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			slog.Info("mock api shutting down")
			return srv.Shutdown(shutdownCtx)
		},
	}
	mockCmd.Flags().StringVar(&addr, "addr", ":8000", "listen address")
	mockCmd.Flags().StringVar(&seed, "seed", "", "products file (JSON array or NDJSON)")
	mockCmd.Flags().StringVar(&cfg.Email, "email", "owner@example.com", "login email")
	mockCmd.Flags().StringVar(&cfg.Password, "password", "password", "login password")
	mockCmd.Flags().StringVar(&cfg.Name, "name", "Owner", "user display name")
	mockCmd.Flags().Int64Var(&cfg.Business, "business", 1, "business id")
	rootCmd.AddCommand(mockCmd)
}
