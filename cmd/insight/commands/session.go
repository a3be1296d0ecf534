package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/joywufn/portfolio-insight/backend/internal/twstock"
)

// sessionCmd represents the session command
var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Show trading session state",
	Long: `Print whether each exchange is open, its phase and the next
open and close times.

Example:
  go run ./cmd/insight session
  go run ./cmd/insight session --exchange TWSE`,
	RunE: runSession,
}

var sessionExchange string

func init() {
	rootCmd.AddCommand(sessionCmd)

	sessionCmd.Flags().StringVar(&sessionExchange, "exchange", "", "TWSE, TPEx or NYSE (default all)")
}

func runSession(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	twseExchange, err := exchangeWithHours(twstock.TWSE(), cfg.TWSE)
	if err != nil {
		return fmt.Errorf("TWSE hours: %w", err)
	}
	tpexExchange, err := exchangeWithHours(twstock.TPEx(), cfg.TPEx)
	if err != nil {
		return fmt.Errorf("TPEx hours: %w", err)
	}
	exchanges := []*twstock.Exchange{twseExchange, tpexExchange, twstock.NYSE()}

	if sessionExchange != "" {
		selected, err := twstock.ExchangeByName(sessionExchange)
		if err != nil {
			return err
		}
		for _, e := range exchanges {
			if e.Name == selected.Name {
				selected = e
			}
		}
		exchanges = []*twstock.Exchange{selected}
	}

	now := time.Now()
	widths := []int{6, 8, 10, 18, 18}
	PrintTableHeader([]string{"EXCH", "STATUS", "PHASE", "NEXT OPEN", "NEXT CLOSE"}, widths)
	for _, e := range exchanges {
		s := e.SessionFor(now)
		PrintTableRow([]string{
			s.Exchange,
			s.Status,
			string(s.Phase),
			formatSessionTime(s.NextOpen),
			formatSessionTime(s.NextClose),
		}, widths)
	}
	return nil
}

func formatSessionTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Format("01-02 15:04 MST")
}
