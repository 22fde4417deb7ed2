package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"epidemicsim/internal/algorithm"
	"epidemicsim/internal/algorithm/antientropy"
	"epidemicsim/internal/algorithm/directmail"
	"epidemicsim/internal/algorithm/rumor"
	"epidemicsim/internal/artifacts"
	"epidemicsim/internal/config"
	"epidemicsim/internal/model"
	"epidemicsim/internal/network"
	"epidemicsim/internal/replica"
	"epidemicsim/internal/residue"
	"epidemicsim/internal/runid"
	"epidemicsim/internal/scheduler"
	"epidemicsim/internal/workload"
	pkgmetrics "epidemicsim/pkg/metrics"
)

var (
	runConfigPath   string
	runSnapshotPath string
	runWorkloadPath string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a simulation over a generated dataset",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(runConfigPath)
		if err != nil {
			return fmt.Errorf("run: load config: %w", err)
		}

		log, err := newLogger(cfg.Logging.Level)
		if err != nil {
			return err
		}
		defer log.Sync()

		id := runid.New()
		log = log.With(zap.String("run_id", id))

		snapshot, err := workload.LoadSnapshot(runSnapshotPath)
		if err != nil {
			return fmt.Errorf("run: %w", err)
		}
		ops, err := workload.LoadWorkload(runWorkloadPath)
		if err != nil {
			return fmt.Errorf("run: %w", err)
		}

		kind, err := parseKind(cfg.Algorithm.Kind)
		if err != nil {
			return fmt.Errorf("run: %w", err)
		}

		replicas := make([]*replica.Replica, cfg.Replicas.Count)
		for i := 0; i < cfg.Replicas.Count; i++ {
			replicas[i] = replica.New(fmt.Sprintf("R%d", i), cloneStore(snapshot), cfg.Run.Seed, i, log)
		}

		net := network.New(network.Config{
			Seed:     cfg.Run.Seed + 1,
			DropRate: cfg.Network.DropRate,
			MinDelay: cfg.Network.MinDelay,
			MaxDelay: cfg.Network.MaxDelay,
		}, log)

		algo, err := buildAlgorithm(kind, cfg, log)
		if err != nil {
			return fmt.Errorf("run: %w", err)
		}

		sched := scheduler.New(scheduler.Config{
			Kind:          kind,
			InjectPerTick: cfg.Workload.InjectPerTick,
			RumorBudget:   cfg.Algorithm.RumorBudget,
			MetricsEvery:  cfg.Run.MetricsEvery,
			Seed:          cfg.Run.Seed,
		}, replicas, net, algo, ops, log)

		writer, err := artifacts.New(cfg.Run.OutDir, cfg.Run.Compress)
		if err != nil {
			return fmt.Errorf("run: %w", err)
		}
		if err := writer.WriteConfig(cfg); err != nil {
			return fmt.Errorf("run: %w", err)
		}
		if err := writer.OpenMetrics(); err != nil {
			return fmt.Errorf("run: %w", err)
		}

		if err := sched.Run(cfg.Run.Ticks); err != nil {
			writer.CloseMetrics()
			return fmt.Errorf("run: simulation failed: %w", err)
		}

		m := pkgmetrics.New()
		for _, s := range sched.Metrics {
			if err := writer.WriteMetricsSample(s); err != nil {
				return fmt.Errorf("run: %w", err)
			}
			m.Observe(s.Tick, s.Residue, s.MsgsSent, s.MsgsDropped, s.OpsSent, s.OpsReceived)
		}
		if err := writer.CloseMetrics(); err != nil {
			return fmt.Errorf("run: %w", err)
		}

		for _, r := range sched.Replicas() {
			if err := writer.WriteFinalState(r.ID, r.Store); err != nil {
				return fmt.Errorf("run: %w", err)
			}
		}

		var convergedAt *int
		for _, s := range sched.Metrics {
			if s.Residue == 0 && sched.InjectedCount() >= len(ops) {
				t := s.Tick
				convergedAt = &t
				break
			}
		}

		opsSentTotal, opsReceivedTotal, opsAppliedTotal := 0, 0, 0
		finalStores := make([]map[string]model.Record, 0, len(sched.Replicas()))
		for _, r := range sched.Replicas() {
			opsSentTotal += r.OpsSent
			opsReceivedTotal += r.OpsReceived
			opsAppliedTotal += r.OpsApplied
			finalStores = append(finalStores, r.Store)
		}
		finalResidue := residue.Count(finalStores)

		summary := artifacts.Summary{
			Replicas:                cfg.Replicas.Count,
			Ticks:                   cfg.Run.Ticks,
			WorkloadOpsTotal:        len(ops),
			WorkloadOpsInjected:     sched.InjectedCount(),
			ConvergedAtTick:         convergedAt,
			NetworkMsgsSent:         net.MsgsSent,
			NetworkMsgsDropped:      net.MsgsDropped,
			ReplicaOpsSentTotal:     opsSentTotal,
			ReplicaOpsReceivedTotal: opsReceivedTotal,
			ReplicaOpsAppliedTotal:  opsAppliedTotal,
			Residue:                 finalResidue,
		}
		if err := writer.WriteSummary(summary); err != nil {
			return fmt.Errorf("run: %w", err)
		}

		log.Info("simulation complete",
			zap.Int("final_residue", finalResidue),
			zap.Intp("converged_at_tick", convergedAt),
			zap.String("out_dir", cfg.Run.OutDir),
		)
		return nil
	},
}

func cloneStore(snapshot map[string]model.Record) map[string]model.Record {
	out := make(map[string]model.Record, len(snapshot))
	for k, v := range snapshot {
		out[k] = v
	}
	return out
}

func parseKind(s string) (scheduler.Kind, error) {
	switch s {
	case "direct_mail":
		return scheduler.KindDirectMail, nil
	case "rumor":
		return scheduler.KindRumor, nil
	case "anti_entropy":
		return scheduler.KindAntiEntropy, nil
	default:
		return "", fmt.Errorf("unknown algorithm kind %q", s)
	}
}

func buildAlgorithm(kind scheduler.Kind, cfg *config.Config, log *zap.Logger) (algorithm.Algorithm, error) {
	switch kind {
	case scheduler.KindDirectMail:
		return directmail.New(log), nil
	case scheduler.KindRumor:
		return rumor.New(rumor.Config{
			Budget:        cfg.Algorithm.RumorBudget,
			Fanout:        cfg.Algorithm.RumorFanout,
			StopThreshold: cfg.Algorithm.RumorStopThreshold,
		}, log), nil
	case scheduler.KindAntiEntropy:
		return antientropy.New(antientropy.Config{
			Interval:   cfg.Algorithm.AntiEntropyInterval,
			SampleSize: cfg.Algorithm.AntiEntropySample,
		}, cfg.Run.Seed+2, log), nil
	default:
		return nil, fmt.Errorf("unknown algorithm kind %q", kind)
	}
}

func init() {
	runCmd.Flags().StringVar(&runConfigPath, "config", "", "path to YAML config file (optional)")
	runCmd.Flags().StringVar(&runSnapshotPath, "snapshot", "data/initial_snapshot.json", "path to initial snapshot")
	runCmd.Flags().StringVar(&runWorkloadPath, "workload", "data/workload.jsonl", "path to workload file")
}
