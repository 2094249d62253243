package cli

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/vpnda/cardless-sync/pkg/services"
)

func newDaemonCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "daemon",
		Short: "Sync on a schedule until interrupted",
		Long: `Run a sync pass at every interval boundary of the day. SIGUSR1 triggers a
manual pass, which takes priority over the next scheduled one.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			registry := prometheus.NewRegistry()
			registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

			app, err := newAppState(true, registry)
			if err != nil {
				return err
			}
			defer app.Close()

			if n, err := app.syncer.ResetStaleStatuses(); err != nil {
				return err
			} else if n > 0 {
				log.Info().Int("count", n).Msg("recovered statuses left by an interrupted run")
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			var server *http.Server
			if addr := app.cfg.MetricsOptions.ListenAddress; addr != "" {
				mux := http.NewServeMux()
				mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
				server = &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 10 * time.Second}
				go func() {
					log.Info().Str("address", addr).Msg("serving metrics")
					if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
						log.Error().Err(err).Msg("metrics server failed")
					}
				}()
			}

			manual := make(chan os.Signal, 1)
			signal.Notify(manual, syscall.SIGUSR1)
			defer signal.Stop(manual)
			listenerDone := make(chan struct{})
			go func() {
				defer close(listenerDone)
				for {
					select {
					case <-ctx.Done():
						return
					case <-manual:
						log.Info().Msg("manual sync requested")
						app.syncer.Trigger(ctx, "")
					}
				}
			}()

			scheduler := services.NewScheduler(app.syncer, app.cfg.SyncOptions.Interval, app.cfg.SyncOptions.SyncOnStartup)
			scheduler.Run(ctx)

			<-listenerDone
			app.syncer.Wait()
			if server != nil {
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := server.Shutdown(shutdownCtx); err != nil {
					log.Warn().Err(err).Msg("failed to stop metrics server")
				}
			}
			return nil
		},
	}
}
