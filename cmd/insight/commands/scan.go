package commands

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/joywufn/portfolio-insight/backend/internal/twstock"
)

// scanCmd represents the scan command
var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Scan TWSE for limit-up and limit-down stocks",
	Long: `Fetch the latest TWSE daily quotes and classify every stock
against its ±10% price limit.

Outside trading hours the most recent session is scanned.

Example:
  go run ./cmd/insight scan
  go run ./cmd/insight scan --json`,
	RunE: runScan,
}

var scanJSON bool

func init() {
	rootCmd.AddCommand(scanCmd)

	scanCmd.Flags().BoolVar(&scanJSON, "json", false, "print the raw scan result as JSON")
}

func runScan(cmd *cobra.Command, args []string) error {
	ctx, cancel := commandContext()
	defer cancel()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	result := a.taiwan.RefreshLimitStocks(ctx)

	if scanJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}

	PrintDoubleSeparator()
	fmt.Printf("  TWSE Limit Scan  %s\n", result.MarketDate)
	PrintSeparator()
	PrintKeyValue("Session", result.Session.Status, 10)
	PrintKeyValue("Scanned", fmt.Sprintf("%d", result.Summary.TotalScanned), 10)
	PrintKeyValue("Limit up", fmt.Sprintf("%d", result.Summary.LimitUpFound), 10)
	PrintKeyValue("Limit down", fmt.Sprintf("%d", result.Summary.LimitDownFound), 10)
	PrintKeyValue("Source", result.DataSource, 10)
	PrintSeparator()

	if !result.Available {
		PrintWarning(result.Error)
		return nil
	}

	printLimitTable("🔺 Limit up", result.LimitUp)
	printLimitTable("🔻 Limit down", result.LimitDown)
	return nil
}

func printLimitTable(title string, stocks []twstock.ClassifiedStock) {
	fmt.Printf("\n%s (%d)\n", title, len(stocks))
	if len(stocks) == 0 {
		return
	}

	widths := []int{10, 12, 10, 10, 8, 6}
	PrintTableHeader([]string{"SYMBOL", "NAME", "PRICE", "REF", "CHG%", "TIME"}, widths)
	for _, s := range stocks {
		PrintTableRow([]string{
			s.Symbol,
			s.Name,
			fmt.Sprintf("%.2f", s.CurrentPrice),
			fmt.Sprintf("%.2f", s.ReferencePrice),
			fmt.Sprintf("%+.2f", s.ChangePercent),
			s.LimitTime,
		}, widths)
	}
}
