package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"epidemicsim/internal/artifacts"
	"epidemicsim/internal/config"
	"epidemicsim/internal/resultserver"
	"epidemicsim/internal/runid"
	pkgmetrics "epidemicsim/pkg/metrics"
)

var serveConfigPath string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve a completed run's results over HTTP",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(serveConfigPath)
		if err != nil {
			return fmt.Errorf("serve: load config: %w", err)
		}
		if !cfg.ResultServer.Enabled {
			return fmt.Errorf("serve: result_server.enabled is false in config")
		}

		log, err := newLogger(cfg.Logging.Level)
		if err != nil {
			return err
		}
		defer log.Sync()

		id := runid.New()
		m := pkgmetrics.New()
		snapshot := func() resultserver.Snapshot {
			summary, err := artifacts.ReadSummary(cfg.Run.OutDir, cfg.Run.Compress)
			if err != nil {
				log.Warn("summary not yet available", zap.Error(err))
				return resultserver.Snapshot{RunID: id}
			}
			m.Observe(summary.Ticks, summary.Residue, summary.NetworkMsgsSent, summary.NetworkMsgsDropped, summary.ReplicaOpsSentTotal, summary.ReplicaOpsReceivedTotal)
			return resultserver.Snapshot{
				RunID:       id,
				TotalTicks:  summary.Ticks,
				InjectedOps: summary.WorkloadOpsInjected,
			}
		}

		addr := fmt.Sprintf(":%d", cfg.ResultServer.Port)
		srv := resultserver.New(addr, float64(cfg.ResultServer.RateLimitPerSecond), cfg.ResultServer.RateLimitBurst, snapshot, m.Registry(), log)

		log.Info("serving run results", zap.String("addr", addr), zap.String("out_dir", cfg.Run.OutDir))

		errCh := make(chan error, 1)
		go func() { errCh <- srv.ListenAndServe() }()

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

		select {
		case err := <-errCh:
			return err
		case <-sigCh:
			log.Info("shutting down")
			return srv.Close()
		}
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveConfigPath, "config", "", "path to YAML config file (optional)")
}
