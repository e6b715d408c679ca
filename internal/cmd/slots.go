package cmd

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/attestor-io/attestor/internal/extension"
)

var slotsCmd = &cobra.Command{
	Use:   "slots",
	Short: "List the extension slots a wired process declares",
	RunE: func(cmd *cobra.Command, args []string) error {
		_, span := tracer.Start(cmd.Context(), "slots")
		defer span.End()

		a, err := openApp()
		if err != nil {
			return fmt.Errorf("initializing attestor: %w", err)
		}
		defer a.Close()

		renderSlots(os.Stdout, a.Registry.Slots())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(slotsCmd)
}

// renderSlots writes slot definitions to w, sorted by name (testable).
func renderSlots(w io.Writer, slots []extension.Slot) {
	sort.Slice(slots, func(i, j int) bool { return slots[i].Name < slots[j].Name })
	fmt.Fprintf(w, "Extension slots (%d):\n\n", len(slots))
	for _, s := range slots {
		fmt.Fprintf(w, "  %-15s %s\n", s.Name, s.Description)
		if len(s.Params) > 0 {
			fmt.Fprintf(w, "  %-15s payload: %s\n", "", strings.Join(s.Params, ", "))
		}
	}
}
