package main

import (
	"context"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"appraisal/internal/config"
	"appraisal/internal/database"
	"appraisal/internal/model"
	"appraisal/internal/types"
)

// version is overridden at build time with -ldflags "-X main.version=...".
var version = "dev"

var cfg *config.Config

const (
	colorRed   = "\033[31m"
	colorGreen = "\033[32m"
	colorReset = "\033[0m"
)

var rootCmd = &cobra.Command{
	Use:   "appraisal",
	Short: "Residential property price estimator",
	Long: "Fabricates labelled property listings, trains a random forest price estimator on them, " +
		"and serves estimates from the command line or over HTTP.",
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// openDatabase connects to the configured dataset store.
func openDatabase(ctx context.Context, log *zap.Logger) (*database.Database, error) {
	if cfg.Database.Driver == "" {
		return nil, eris.New("database.driver is not configured (set APPRAISAL_DATABASE_DRIVER)")
	}
	return database.NewDatabase(ctx, cfg.Database.DBConfig(), log)
}

// renderEstimate prints the inputs and the estimate in a readable layout.
func renderEstimate(row types.Row, price float64, a *model.Artifact) {
	printDetails(row, price, a.ID, a.Encoder.Known)
}

// printDetails lays out one row and its price. Categorical values for which
// known reports false are flagged; known may be nil.
func printDetails(row types.Row, price float64, modelID string, known func(column, value string) bool) {
	fmt.Println(strings.Repeat("-", 80))
	for _, c := range types.Columns {
		var val string
		switch c.Kind {
		case types.Numeric:
			if v, ok := row.Numeric[c.Name]; ok {
				val = strconv.FormatFloat(v, 'f', -1, 64)
			}
		case types.Categorical:
			if v, ok := row.Categorical[c.Name]; ok {
				val = v
				if known != nil && !known(c.Name, v) {
					val += fmt.Sprintf(" %s[not seen in training]%s", colorRed, colorReset)
				}
			}
		}
		fmt.Printf("%-30s: %s\n", c.Label, val)
	}
	fmt.Println()

	priceColor := colorGreen
	if price < 0 {
		priceColor = colorRed
	}
	fmt.Printf("%-30s: %s%s%s\n", "Estimated Price", priceColor, formatDollars(price), colorReset)
	fmt.Printf("%-30s: %s\n", "Model", modelID)
	fmt.Println(strings.Repeat("-", 80))
}

// formatDollars renders v rounded to whole dollars with thousands separators.
func formatDollars(v float64) string {
	sign := ""
	if v < 0 {
		sign = "-"
		v = -v
	}
	digits := strconv.FormatFloat(math.Round(v), 'f', 0, 64)
	var b strings.Builder
	for i, d := range digits {
		if i > 0 && (len(digits)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(d)
	}
	return sign + "$" + b.String()
}
