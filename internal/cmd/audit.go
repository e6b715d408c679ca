package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/attestor-io/attestor/internal/receipt"
)

var (
	auditAgent string
	auditTool  string
	auditLimit int
)

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Query and verify the receipt audit trail",
}

var auditListCmd = &cobra.Command{
	Use:   "list",
	Short: "List receipts, newest first",
	RunE:  auditList,
}

var auditShowCmd = &cobra.Command{
	Use:   "show [receipt-id]",
	Short: "Print one receipt as JSON",
	Args:  cobra.ExactArgs(1),
	RunE:  auditShow,
}

var auditVerifyCmd = &cobra.Command{
	Use:   "verify [receipt-id]",
	Short: "Verify the HMAC signature of a receipt",
	Args:  cobra.ExactArgs(1),
	RunE:  auditVerify,
}

func init() {
	auditListCmd.Flags().StringVar(&auditAgent, "agent", "", "Filter by agent ID")
	auditListCmd.Flags().StringVar(&auditTool, "tool", "", "Filter by tool name")
	auditListCmd.Flags().IntVar(&auditLimit, "limit", 20, "Maximum receipts to show")

	auditCmd.AddCommand(auditListCmd)
	auditCmd.AddCommand(auditShowCmd)
	auditCmd.AddCommand(auditVerifyCmd)
	rootCmd.AddCommand(auditCmd)
}

func auditList(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
	defer cancel()

	a, err := openApp()
	if err != nil {
		return fmt.Errorf("initializing attestor: %w", err)
	}
	defer a.Close()

	receipts, err := a.Store.List(ctx, receipt.ListFilter{
		AgentID:  auditAgent,
		ToolName: auditTool,
		Limit:    auditLimit,
	})
	if err != nil {
		return fmt.Errorf("querying receipts: %w", err)
	}

	if len(receipts) == 0 {
		fmt.Println("No receipts found.")
		return nil
	}
	renderReceiptList(os.Stdout, receipts)
	return nil
}

func auditShow(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
	defer cancel()

	a, err := openApp()
	if err != nil {
		return fmt.Errorf("initializing attestor: %w", err)
	}
	defer a.Close()

	r, err := a.Store.Get(ctx, args[0])
	if err != nil {
		return err
	}
	return printJSON(os.Stdout, r)
}

func auditVerify(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
	defer cancel()

	receiptID := args[0]

	a, err := openApp()
	if err != nil {
		return fmt.Errorf("initializing attestor: %w", err)
	}
	defer a.Close()

	valid, err := a.Store.Verify(ctx, a.Signer, receiptID)
	if err != nil {
		return fmt.Errorf("verifying receipt: %w", err)
	}
	renderVerifyResult(os.Stdout, receiptID, valid)
	if !valid {
		return fmt.Errorf("signature verification failed for %s", receiptID)
	}
	return nil
}
