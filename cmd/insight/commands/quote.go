package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

// quoteCmd represents the quote command
var quoteCmd = &cobra.Command{
	Use:   "quote [symbol]",
	Short: "Show the latest quote of a symbol",
	Long: `Resolve a quote through the cache, Alpha Vantage and the mock
generator, in that order.

Example:
  go run ./cmd/insight quote AAPL
  go run ./cmd/insight quote 2330.TW`,
	Args: cobra.ExactArgs(1),
	RunE: runQuote,
}

func init() {
	rootCmd.AddCommand(quoteCmd)
}

func runQuote(cmd *cobra.Command, args []string) error {
	ctx, cancel := commandContext()
	defer cancel()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	quote, err := a.quotes.Quote(ctx, args[0])
	if err != nil {
		return err
	}

	PrintDoubleSeparator()
	fmt.Printf("  %s  %s\n", quote.Symbol, quote.Name)
	PrintSeparator()
	PrintKeyValue("Price", fmt.Sprintf("%.2f", quote.Price), 10)
	PrintKeyValue("Change", fmt.Sprintf("%+.2f (%+.2f%%)", quote.Change, quote.ChangePercent), 10)
	PrintKeyValue("Volume", fmt.Sprintf("%d", quote.Volume), 10)
	PrintKeyValue("Exchange", quote.Exchange, 10)
	PrintKeyValue("Source", quote.DataSource, 10)
	PrintKeyValue("Updated", quote.LastUpdated.Format("2006-01-02 15:04:05"), 10)
	if quote.IsMock {
		PrintWarning("Mock data: no live quote available")
	}
	return nil
}
