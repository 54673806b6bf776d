package cli

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/spf13/cobra"

	"cratekeeper/internal/web"
)

func cmdServe() *cobra.Command {
	return &cobra.Command{
		Use:          "serve",
		Short:        "Run the control API server",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.Close()

			r := chi.NewRouter()
			r.Use(middleware.Recoverer)
			web.NewHandler(a.db, a.pipe, a.resolver, a.log).RegisterRoutes(r)

			srv := &http.Server{
				Addr:    ":" + a.cfg.Port,
				Handler: r,
			}

			errCh := make(chan error, 1)
			go func() {
				a.log.Info("server listening", "addr", srv.Addr)
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errCh <- err
				}
			}()

			quit := make(chan os.Signal, 1)
			signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

			select {
			case err := <-errCh:
				return err
			case <-quit:
			}

			a.log.Info("shutting down server")
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return srv.Shutdown(ctx)
		},
	}
}
