package cmd

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"github.com/yeremiapane/tablebook/hub"
	"github.com/yeremiapane/tablebook/router"
	"github.com/yeremiapane/tablebook/services"
	"github.com/yeremiapane/tablebook/utils"
)

func newServeCmd() *cobra.Command {
	var noSweeper bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API, live feed and completion sweeper",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			live := hub.New()
			a, err := bootstrap(ctx, live)
			if err != nil {
				return err
			}
			defer a.Close()

			if a.cfg.GinMode == gin.ReleaseMode {
				gin.SetMode(gin.ReleaseMode)
			}

			if !noSweeper {
				sweeper := services.NewCompletionSweeper(a.svc.Completion, a.cfg.SweepInterval)
				sweeper.Start()
				defer sweeper.Stop()
			}

			r := router.SetupRouter(a.svc, live, router.Options{CORSOrigins: a.cfg.CORSOrigins})
			srv := &http.Server{
				Addr:              ":" + a.cfg.Port,
				Handler:           r,
				ReadHeaderTimeout: 10 * time.Second,
			}

			errCh := make(chan error, 1)
			go func() {
				utils.InfoLogger.Printf("Listening on port %s", a.cfg.Port)
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errCh <- err
				}
				close(errCh)
			}()

			select {
			case err := <-errCh:
				return err
			case <-ctx.Done():
			}

			utils.InfoLogger.Println("Shutting down")
			shutdownCtx, stop := context.WithTimeout(context.Background(), 10*time.Second)
			defer stop()
			return srv.Shutdown(shutdownCtx)
		},
	}

	cmd.Flags().BoolVar(&noSweeper, "no-sweeper", false, "do not run the periodic completion sweep")
	return cmd
}
