package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/sells-group/saferoute/internal/dataset"
	"github.com/sells-group/saferoute/internal/model"
	"github.com/sells-group/saferoute/internal/predict"
)

var evalTestFraction float64

var evaluateCmd = &cobra.Command{
	Use:   "evaluate",
	Short: "Report holdout accuracy of the fallback classifier and the hybrid predictor",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("evaluate"); err != nil {
			return err
		}

		records, err := dataset.Load(cmd.Context(), cfg.Dataset)
		if err != nil {
			return err
		}

		rep, err := predict.Evaluate(cmd.Context(), records,
			forestOptions(cfg.Model), predictSettings(cfg.Predict), evalTestFraction)
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintf(w, "train records\t%d\n", rep.Train)
		fmt.Fprintf(w, "test records\t%d\n", rep.Test)
		fmt.Fprintf(w, "fallback accuracy\t%.4f\n", rep.FallbackAccuracy)
		fmt.Fprintf(w, "hybrid accuracy\t%.4f\n", rep.HybridAccuracy)
		fmt.Fprintf(w, "vote / fallback\t%d / %d\n", rep.Methods[model.MethodVote], rep.Methods[model.MethodFallback])
		return w.Flush()
	},
}

func init() {
	evaluateCmd.Flags().Float64Var(&evalTestFraction, "test-fraction", 0.2, "share of records held out for testing")
	rootCmd.AddCommand(evaluateCmd)
}
