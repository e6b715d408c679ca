package cmd

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/attestor-io/attestor/internal/receipt"
)

// printJSON writes v as indented JSON to w.
func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// renderReceiptList writes one summary line per receipt to w (testable).
func renderReceiptList(w io.Writer, receipts []*receipt.Receipt) {
	fmt.Fprintf(w, "Receipts (showing %d):\n\n", len(receipts))
	for _, r := range receipts {
		modMark := ""
		if r.BusinessImpact.DataModified {
			modMark = " [MODIFIED]"
		}
		fmt.Fprintf(w, "  %s | %s | %s/%s | %s | risk %d%s\n",
			r.ID,
			r.Timestamp.Format("2006-01-02 15:04:05"),
			r.AgentID,
			r.ToolName,
			r.ActionType,
			r.RiskLevel,
			modMark,
		)
	}
}

// renderVerifyResult writes a verify outcome to w (testable).
func renderVerifyResult(w io.Writer, receiptID string, valid bool) {
	if valid {
		fmt.Fprintf(w, "✓ Receipt %s: signature VALID (HMAC-SHA256 intact)\n", receiptID)
	} else {
		fmt.Fprintf(w, "✗ Receipt %s: signature INVALID (possible tampering)\n", receiptID)
	}
}
