package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"appraisal/internal/dataset"
)

var estimatesCmd = &cobra.Command{
	Use:   "estimates",
	Short: "List estimates saved from interactive predictions",
	RunE: func(cmd *cobra.Command, args []string) error {
		estimates, err := dataset.LoadEstimates(cfg.Predict.EstimatesFile)
		if err != nil {
			return err
		}
		if len(estimates) == 0 {
			fmt.Println("No estimates saved yet. Use predict --interactive to add some.")
			return nil
		}

		lines := make([]string, len(estimates))
		for i, e := range estimates {
			lines[i] = estimateLine(e)
		}

		pick := func(title string, options []string) (int, error) {
			return pickOption(bufio.NewReader(os.Stdin), title, options)
		}
		i, err := browseEstimates(os.Stdout, lines, term.IsTerminal(int(os.Stdin.Fd())), pick)
		if err != nil || i < 0 {
			return err
		}
		e := estimates[i]
		fmt.Printf("%-30s: %s\n", "Estimated At", e.EstimatedAt.Local().Format("2006-01-02 15:04"))
		printDetails(e.Record.Row(), e.Price, e.ModelID, nil)
		return nil
	},
}

// browseEstimates lets the user pick one of lines, or prints them all to w
// when no picker is available. It returns -1 when nothing was picked.
func browseEstimates(w io.Writer, lines []string, interactive bool, pick func(title string, options []string) (int, error)) (int, error) {
	printLines := func() {
		for _, l := range lines {
			fmt.Fprintln(w, l)
		}
	}
	if !interactive {
		printLines()
		return -1, nil
	}

	i, err := pick("Saved estimates", lines)
	switch {
	case errors.Is(err, errNoRawSelect):
		printLines()
		return -1, nil
	case errors.Is(err, errCancelled):
		return -1, nil
	case err != nil:
		return -1, err
	}
	return i, nil
}

// estimateLine is the one-line summary shown in the estimates list.
func estimateLine(e dataset.Estimate) string {
	id := e.ModelID
	if len(id) > 8 {
		id = id[:8]
	}
	return fmt.Sprintf("%-16s | %-8s | %8.0f sqft | %d bd | %-9s | %12s",
		e.EstimatedAt.Local().Format("2006-01-02 15:04"), id, e.Area, e.Bedrooms, e.Location, formatDollars(e.Price))
}

func init() {
	rootCmd.AddCommand(estimatesCmd)
}
