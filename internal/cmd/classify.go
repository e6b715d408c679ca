package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/attestor-io/attestor/internal/classifier"
	"github.com/attestor-io/attestor/internal/config"
)

var classifyCmd = &cobra.Command{
	Use:   "classify [descriptor.json]",
	Short: "Classify a tool-action descriptor without building a receipt",
	Long: `Reads a ToolActionDescriptor from a JSON file (or stdin when the
argument is "-" or omitted), validates it, normalizes regime aliases, and
prints the resulting compliance status as JSON.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runClassify,
}

func init() {
	rootCmd.AddCommand(classifyCmd)
}

func runClassify(cmd *cobra.Command, args []string) error {
	_, span := tracer.Start(cmd.Context(), "classify")
	defer span.End()

	data, err := readDescriptorInput(args)
	if err != nil {
		return err
	}

	if err := classifier.ValidateDescriptorJSON(data); err != nil {
		return fmt.Errorf("invalid descriptor: %w", err)
	}

	var d classifier.ToolActionDescriptor
	if err := json.Unmarshal(data, &d); err != nil {
		return fmt.Errorf("decoding descriptor: %w", err)
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	mapper := classifier.NewMapper()
	if cfg.RegimeRegistry != "" {
		rf, err := classifier.LoadRegimeFile(cfg.RegimeRegistry)
		if err != nil {
			return fmt.Errorf("loading regime registry: %w", err)
		}
		if rf != nil {
			mapper = classifier.NewMapper(rf.Regimes)
		}
	}
	d.ComplianceRequirements = mapper.Normalize(d.ComplianceRequirements)

	return printJSON(os.Stdout, classifier.Classify(d))
}

// readDescriptorInput reads the descriptor from the file argument, or from
// stdin when the argument is "-" or absent.
func readDescriptorInput(args []string) ([]byte, error) {
	if len(args) == 0 || args[0] == "-" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return nil, fmt.Errorf("reading descriptor from stdin: %w", err)
		}
		return data, nil
	}
	data, err := os.ReadFile(args[0])
	if err != nil {
		return nil, fmt.Errorf("reading descriptor file: %w", err)
	}
	return data, nil
}
