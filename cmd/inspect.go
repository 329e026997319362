package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"appraisal/internal/model"
)

var (
	inspectModel string
	inspectTop   int
)

var inspectCmd = &cobra.Command{
	Use:   "inspect",
	Short: "Show model metadata, holdout metrics and feature importances",
	RunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Flags().Changed("model") {
			cfg.Model.Path = inspectModel
		}
		a, err := model.Load(cfg.Model.Path)
		if err != nil {
			return err
		}

		fc := a.Config.Forest
		fmt.Println(strings.Repeat("-", 80))
		fmt.Printf("%-20s: %s\n", "Model", a.ID)
		fmt.Printf("%-20s: %d\n", "Format Version", a.Version)
		fmt.Printf("%-20s: %s\n", "Created", a.CreatedAt.Local().Format("2006-01-02 15:04:05"))
		fmt.Printf("%-20s: %d\n", "Training Rows", a.TrainingRows)
		fmt.Printf("%-20s: %d (%d numeric)\n", "Features", len(a.FeatureNames), len(a.NumericColumns))
		fmt.Printf("%-20s: %d\n", "Trees", len(a.Forest.Trees))
		fmt.Printf("%-20s: %s\n", "Max Depth", depthLabel(fc.MaxDepth))
		fmt.Printf("%-20s: %d / %d\n", "Min Split / Leaf", fc.MinSamplesSplit, fc.MinSamplesLeaf)
		fmt.Printf("%-20s: %d\n", "Seed", fc.Seed)

		if m := a.Metrics; m != nil {
			fmt.Println()
			fmt.Printf("%-20s: %d rows\n", "Holdout", m.Rows)
			fmt.Printf("%-20s: %s\n", "MAE", formatDollars(m.MAE))
			fmt.Printf("%-20s: %s\n", "RMSE", formatDollars(m.RMSE))
			fmt.Printf("%-20s: %.4f\n", "R²", m.R2)
		}

		imps := a.Importances()
		if inspectTop > 0 && inspectTop < len(imps) {
			imps = imps[:inspectTop]
		}
		fmt.Println()
		fmt.Println("Feature importances:")
		for _, fi := range imps {
			fmt.Printf("  %-45s %6.2f%%\n", fi.Feature, fi.Importance*100)
		}
		fmt.Println(strings.Repeat("-", 80))
		return nil
	},
}

func depthLabel(d int) string {
	if d <= 0 {
		return "unlimited"
	}
	return fmt.Sprint(d)
}

func init() {
	inspectCmd.Flags().StringVar(&inspectModel, "model", "", "artifact path (default model.path)")
	inspectCmd.Flags().IntVar(&inspectTop, "top", 15, "number of feature importances to show, 0 for all")
	rootCmd.AddCommand(inspectCmd)
}
