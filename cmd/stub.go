package cmd

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/sitemaptools/sitemapctl/internal/stubserver"
)

var stubPort int

var stubCmd = &cobra.Command{
	Use:   "stub",
	Short: "Run a local fake of the admin backend",
	Long: `Starts a local emulator of the sitemap service's admin backend. It
implements all console actions against a SQLite store, including the
out-of-date rejection on stale saves. Useful for trying the client
without a real service. Default credentials: admin/admin.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		port := stubPort
		if port == 0 {
			port = cfg.Stub.Port
		}

		dbPath := filepath.Join(cfg.Stub.DataDir, "stub.db")
		store, err := stubserver.Open(dbPath, cfg.Stub.Password)
		if err != nil {
			return fmt.Errorf("opening stub database: %w", err)
		}
		defer store.Close()

		srv := stubserver.New(stubserver.Config{
			Port:     port,
			Username: cfg.Username,
			AllowAll: cfg.Stub.AllowAll,
		}, store)

		// Graceful shutdown.
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		go func() {
			<-ctx.Done()
			fmt.Fprintln(os.Stderr, "\nShutting down stub backend...")
			srv.Shutdown(context.Background())
		}()

		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	},
}

func init() {
	stubCmd.Flags().IntVarP(&stubPort, "port", "p", 0, "listen port (default from config)")
	rootCmd.AddCommand(stubCmd)
}
