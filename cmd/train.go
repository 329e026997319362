package main

import (
	"fmt"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"appraisal/internal/dataset"
	"appraisal/internal/model"
	"appraisal/internal/types"
)

var (
	trainInput    string
	trainFromDB   string
	trainOutput   string
	trainTrees    int
	trainMaxDepth int
	trainHoldout  float64
	trainSeed     int64
)

var trainCmd = &cobra.Command{
	Use:   "train",
	Short: "Train the price estimator and write the model artifact",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		log := zap.L().With(zap.String("command", "train"))

		flags := cmd.Flags()
		if flags.Changed("trees") {
			cfg.Train.Trees = trainTrees
		}
		if flags.Changed("max-depth") {
			cfg.Train.MaxDepth = trainMaxDepth
		}
		if flags.Changed("holdout") {
			cfg.Train.Holdout = trainHoldout
		}
		if flags.Changed("seed") {
			cfg.Train.Seed = trainSeed
		}
		if flags.Changed("output") {
			cfg.Model.Path = trainOutput
		}
		if err := cfg.Validate("train"); err != nil {
			return err
		}

		var (
			ds     types.Dataset
			source string
			err    error
		)
		if trainFromDB != "" {
			db, err := openDatabase(ctx, log)
			if err != nil {
				return err
			}
			defer db.Close()
			if ds, err = db.LoadDataset(ctx, trainFromDB); err != nil {
				return err
			}
			source = fmt.Sprintf("%s dataset %q", cfg.Database.Driver, trainFromDB)
		} else {
			input := trainInput
			if input == "" {
				input = cfg.Synth.Output
			}
			if ds, err = dataset.Load(input); err != nil {
				return err
			}
			source = input
		}
		fmt.Printf("Loaded %d rows from %s\n", len(ds), source)

		start := time.Now()
		a, err := model.NewTrainer(cfg.Train.TrainerConfig(), log).Train(ctx, ds)
		if err != nil {
			return err
		}
		if err := a.Save(cfg.Model.Path); err != nil {
			return err
		}
		log.Info("model written", zap.String("path", cfg.Model.Path), zap.String("model_id", a.ID))

		fmt.Println(strings.Repeat("-", 80))
		fmt.Printf("%-20s: %s\n", "Model", a.ID)
		fmt.Printf("%-20s: %s\n", "Artifact", cfg.Model.Path)
		fmt.Printf("%-20s: %d\n", "Training Rows", a.TrainingRows)
		fmt.Printf("%-20s: %d\n", "Trees", len(a.Forest.Trees))
		fmt.Printf("%-20s: %v\n", "Elapsed", time.Since(start).Truncate(time.Millisecond))
		if m := a.Metrics; m != nil {
			fmt.Println()
			fmt.Printf("%-20s: %d rows\n", "Holdout", m.Rows)
			fmt.Printf("%-20s: %s\n", "MAE", formatDollars(m.MAE))
			fmt.Printf("%-20s: %s\n", "RMSE", formatDollars(m.RMSE))
			fmt.Printf("%-20s: %.4f\n", "R²", m.R2)
		}
		fmt.Println(strings.Repeat("-", 80))
		return nil
	},
}

func init() {
	trainCmd.Flags().StringVar(&trainInput, "input", "", "training CSV (default synth.output)")
	trainCmd.Flags().StringVar(&trainFromDB, "from-db", "", "load the named dataset from the database instead of a CSV")
	trainCmd.Flags().StringVar(&trainOutput, "output", "", "artifact path (default model.path)")
	trainCmd.Flags().IntVar(&trainTrees, "trees", 0, "number of trees (default from config)")
	trainCmd.Flags().IntVar(&trainMaxDepth, "max-depth", 0, "maximum tree depth, 0 for unlimited")
	trainCmd.Flags().Float64Var(&trainHoldout, "holdout", 0, "fraction of rows held out for evaluation")
	trainCmd.Flags().Int64Var(&trainSeed, "seed", 0, "random seed (default from config)")
	trainCmd.MarkFlagsMutuallyExclusive("input", "from-db")
	rootCmd.AddCommand(trainCmd)
}
