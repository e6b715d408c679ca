package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/attestor-io/attestor/internal/app"
	"github.com/attestor-io/attestor/internal/classifier"
	"github.com/attestor-io/attestor/internal/config"
)

var (
	receiptAgent   string
	receiptDescr   string
	receiptResult  string
	receiptLinkage bool
)

var receiptCmd = &cobra.Command{
	Use:   "receipt",
	Short: "Build and persist audit receipts",
}

var receiptBuildCmd = &cobra.Command{
	Use:   "build",
	Short: "Build a signed receipt from a tool-action descriptor",
	RunE:  receiptBuild,
}

func init() {
	receiptBuildCmd.Flags().StringVar(&receiptAgent, "agent", "", "Agent ID the action is attributed to (required)")
	receiptBuildCmd.Flags().StringVarP(&receiptDescr, "descriptor", "f", "", "Descriptor JSON file, or - for stdin (required)")
	receiptBuildCmd.Flags().StringVar(&receiptResult, "result", "", "Optional execution result JSON file")
	receiptBuildCmd.Flags().BoolVar(&receiptLinkage, "link", false, "Relate this receipt to prior receipts sharing agent and business context")
	_ = receiptBuildCmd.MarkFlagRequired("agent")
	_ = receiptBuildCmd.MarkFlagRequired("descriptor")

	receiptCmd.AddCommand(receiptBuildCmd)
	rootCmd.AddCommand(receiptCmd)
}

// openApp wires a durable App from config, warning when the signing key is
// the derived default.
func openApp() (*app.App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	cfg.WarnIfDefaultKey()
	return app.New(cfg)
}

func receiptBuild(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
	defer cancel()

	data, err := readDescriptorInput([]string{receiptDescr})
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

	var result interface{}
	if receiptResult != "" {
		resultData, err := os.ReadFile(receiptResult)
		if err != nil {
			return fmt.Errorf("reading result file: %w", err)
		}
		if err := json.Unmarshal(resultData, &result); err != nil {
			return fmt.Errorf("decoding result file: %w", err)
		}
	}

	a, err := openApp()
	if err != nil {
		return fmt.Errorf("initializing attestor: %w", err)
	}
	defer a.Close()

	builder := a.Builder
	if receiptLinkage {
		builder = a.LinkedBuilder()
	}

	r, err := builder.Build(ctx, receiptAgent, d, result, nil)
	if err != nil {
		return fmt.Errorf("building receipt: %w", err)
	}
	return printJSON(os.Stdout, r)
}
