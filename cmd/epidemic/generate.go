package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"epidemicsim/internal/workload"
)

var (
	genOutDir    string
	genReplicas  int
	genKeys      int
	genOps       int
	genDelRatio  float64
	genZipfSkew  float64
	genSeed      int64
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate a synthetic initial snapshot and workload",
	RunE: func(cmd *cobra.Command, args []string) error {
		log, err := newLogger("info")
		if err != nil {
			return err
		}
		defer log.Sync()

		if err := os.MkdirAll(genOutDir, 0o755); err != nil {
			return fmt.Errorf("generate: create outdir: %w", err)
		}

		snapshot := workload.GenerateSnapshot(workload.SnapshotSpec{
			NumKeys: genKeys,
			Seed:    genSeed,
		})
		snapshotPath := filepath.Join(genOutDir, "initial_snapshot.json")
		if err := workload.SaveSnapshot(snapshotPath, snapshot); err != nil {
			return fmt.Errorf("generate: save snapshot: %w", err)
		}

		ops := workload.GenerateWorkload(workload.WorkloadSpec{
			NumReplicas: genReplicas,
			NumKeys:     genKeys,
			NumOps:      genOps,
			DelRatio:    genDelRatio,
			ZipfSkew:    genZipfSkew,
			Seed:        genSeed,
		})
		workloadPath := filepath.Join(genOutDir, "workload.jsonl")
		if err := workload.SaveWorkload(workloadPath, ops); err != nil {
			return fmt.Errorf("generate: save workload: %w", err)
		}

		log.Info("generated synthetic dataset",
			zap.String("snapshot", snapshotPath),
			zap.String("workload", workloadPath),
			zap.Int("keys", genKeys),
			zap.Int("ops", genOps),
		)
		return nil
	},
}

func init() {
	generateCmd.Flags().StringVar(&genOutDir, "outdir", "data", "output directory")
	generateCmd.Flags().IntVar(&genReplicas, "replicas", 20, "number of replicas")
	generateCmd.Flags().IntVar(&genKeys, "keys", 30000, "number of keys")
	generateCmd.Flags().IntVar(&genOps, "ops", 120000, "number of operations")
	generateCmd.Flags().Float64Var(&genDelRatio, "del_ratio", 0.10, "fraction of deletes")
	generateCmd.Flags().Float64Var(&genZipfSkew, "zipf_s", 1.1, "Zipf skew")
	generateCmd.Flags().Int64Var(&genSeed, "seed", 7, "random seed")
}
