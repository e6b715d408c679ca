package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/attestor-io/attestor/internal/doctor"
)

var doctorJSON bool

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check attestor configuration and storage health",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, span := tracer.Start(cmd.Context(), "doctor")
		defer span.End()

		report := doctor.Run(ctx)

		if doctorJSON {
			if err := printJSON(os.Stdout, report); err != nil {
				return err
			}
		} else {
			renderDoctorReport(os.Stdout, report)
		}

		if report.Status == "fail" {
			return fmt.Errorf("doctor found %d failing check(s)", report.Summary.Fail)
		}
		return nil
	},
}

func init() {
	doctorCmd.Flags().BoolVar(&doctorJSON, "json", false, "Output report as JSON")
	rootCmd.AddCommand(doctorCmd)
}

// renderDoctorReport writes a human-readable report to w (testable).
func renderDoctorReport(w io.Writer, report *doctor.Report) {
	marks := map[string]string{"pass": "✓", "warn": "!", "fail": "✗"}
	for _, c := range report.Checks {
		fmt.Fprintf(w, "  %s %-20s %s\n", marks[c.Status], c.Name, c.Message)
		if c.Fix != "" && c.Status != "pass" {
			fmt.Fprintf(w, "    fix: %s\n", c.Fix)
		}
	}
	fmt.Fprintf(w, "\n%d passed, %d warnings, %d failures\n",
		report.Summary.Pass, report.Summary.Warn, report.Summary.Fail)
}
