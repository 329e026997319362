package main

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"appraisal/internal/dataset"
	"appraisal/internal/geo"
	"appraisal/internal/model"
	"appraisal/internal/types"
	"appraisal/internal/zoning"
)

var (
	predictModel        string
	predictSet          []string
	predictLat          float64
	predictLon          float64
	predictInteractive  bool
	predictAllowUnknown bool
)

var predictCmd = &cobra.Command{
	Use:   "predict",
	Short: "Estimate the price of one property",
	Example: `  appraisal predict --set area_sqft=2400 --set bedrooms=3 ...
  appraisal predict --lat 32.7555 --lon -97.3308 --interactive`,
	RunE: func(cmd *cobra.Command, args []string) error {
		log := zap.L().With(zap.String("command", "predict"))
		flags := cmd.Flags()
		if flags.Changed("model") {
			cfg.Model.Path = predictModel
		}
		if flags.Changed("allow-unknown") {
			cfg.Predict.AllowUnknown = predictAllowUnknown
		}

		a, err := model.Load(cfg.Model.Path)
		if err != nil {
			return err
		}
		log.Debug("model loaded", zap.String("model_id", a.ID), zap.String("path", cfg.Model.Path))

		values, err := parseAssignments(predictSet)
		if err != nil {
			return err
		}

		if flags.Changed("lat") != flags.Changed("lon") {
			return eris.New("--lat and --lon must be given together")
		}
		if flags.Changed("lat") {
			var idx *zoning.Index
			if _, set := values[types.ColZoning]; !set && len(cfg.Zoning.Layers) > 0 {
				if idx, err = zoning.Load(cfg.Zoning.Layers...); err != nil {
					fmt.Fprintf(os.Stderr, "warning: %v\n", err)
					idx = nil
				}
			}
			notes, err := enrichLocation(values, predictLat, predictLon, cfg.Geo.CenterLat, cfg.Geo.CenterLon, idx)
			if err != nil {
				return err
			}
			for _, n := range notes {
				fmt.Println(n)
			}
		}

		stdin := bufio.NewReader(os.Stdin)
		if predictInteractive {
			if err := promptForm(stdin, values); err != nil {
				return err
			}
		}

		row, err := types.ParseRow(values, !cfg.Predict.AllowUnknown)
		if err != nil {
			return err
		}
		price, err := a.Predict(row)
		if err != nil {
			return err
		}
		renderEstimate(row, price, a)

		if predictInteractive {
			offerSave(stdin, row, price, a)
		}
		return nil
	},
}

// parseAssignments turns repeated col=value flags into a value map.
func parseAssignments(pairs []string) (map[string]string, error) {
	values := make(map[string]string, len(pairs))
	for _, p := range pairs {
		k, v, ok := strings.Cut(p, "=")
		k = strings.TrimSpace(k)
		if !ok || k == "" {
			return nil, eris.Errorf("--set %q: expected column=value", p)
		}
		values[k] = v
	}
	return values, nil
}

// enrichLocation fills distance_to_center_mi and, when idx is given,
// zoning_type from the coordinates. Values already present are kept. The
// returned notes describe what was derived.
func enrichLocation(values map[string]string, lat, lon, centerLat, centerLon float64, idx *zoning.Index) ([]string, error) {
	if !geo.ValidCoordinates(lat, lon) {
		return nil, eris.Errorf("invalid coordinates %v, %v", lat, lon)
	}
	var notes []string
	if _, set := values[types.ColDistanceToCenter]; !set {
		d := geo.DistanceMiles(lat, lon, centerLat, centerLon)
		values[types.ColDistanceToCenter] = strconv.FormatFloat(d, 'f', 2, 64)
		notes = append(notes, fmt.Sprintf("%-30s: %.2f mi", "Distance to Center", d))
	}
	if _, set := values[types.ColZoning]; !set && idx != nil {
		zt, code, ok := idx.Lookup(lat, lon)
		switch {
		case ok:
			values[types.ColZoning] = string(zt)
			notes = append(notes, fmt.Sprintf("%-30s: %s (%s)", "Zoning", code, zt))
		case code != "":
			notes = append(notes, fmt.Sprintf("Zoning district %s has no zoning type; enter it manually", code))
		default:
			notes = append(notes, "No zoning attributes found")
		}
	}
	return notes, nil
}

// offerSave asks whether to append the estimate to the estimates log.
func offerSave(reader *bufio.Reader, row types.Row, price float64, a *model.Artifact) {
	fmt.Print("Save to estimates log? (y/N): ")
	resp, _ := reader.ReadString('\n')
	resp = strings.ToLower(strings.TrimSpace(resp))
	if resp != "y" && resp != "yes" {
		return
	}
	err := dataset.AppendEstimate(cfg.Predict.EstimatesFile, dataset.Estimate{
		EstimatedAt: time.Now().UTC(),
		ModelID:     a.ID,
		Record:      row.Record(),
		Price:       price,
	})
	if err != nil {
		fmt.Printf("Failed to save estimate: %v\n", err)
		return
	}
	fmt.Println("Estimate saved.")
}

func init() {
	predictCmd.Flags().StringVar(&predictModel, "model", "", "artifact path (default model.path)")
	predictCmd.Flags().StringArrayVar(&predictSet, "set", nil, "column=value, repeatable")
	predictCmd.Flags().Float64Var(&predictLat, "lat", 0, "latitude used to derive distance and zoning")
	predictCmd.Flags().Float64Var(&predictLon, "lon", 0, "longitude used to derive distance and zoning")
	predictCmd.Flags().BoolVar(&predictInteractive, "interactive", false, "prompt for every column not given with --set")
	predictCmd.Flags().BoolVar(&predictAllowUnknown, "allow-unknown", false, "accept categorical values outside the vocabulary")
	rootCmd.AddCommand(predictCmd)
}
