package commands

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/rojas-cambio/cambio/internal/access"
	"github.com/rojas-cambio/cambio/internal/model"
)

func newForecastCommand(g *globals) *cobra.Command {
	var typ, currency, amount, rate string
	var since time.Duration

	cmd := &cobra.Command{
		Use:   "forecast",
		Short: "Project the profit of an operation from the recent rate trend",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			t, err := model.ParseTransactionType(typ)
			if err != nil {
				return err
			}
			c, err := model.ParseCurrency(currency)
			if err != nil {
				return err
			}
			amt, err := decimal.NewFromString(amount)
			if err != nil {
				return fmt.Errorf("amount %q is not a number", amount)
			}
			r := decimal.Zero
			if rate != "" {
				if r, err = decimal.NewFromString(rate); err != nil {
					return fmt.Errorf("rate %q is not a number", rate)
				}
			}

			a, _, err := g.session(cmd, access.ViewRates)
			if err != nil {
				return err
			}
			defer a.Close()

			var from time.Time
			if since > 0 {
				from = time.Now().Add(-since)
			}
			o, err := a.Forecast(ctxOf(cmd), t, c, amt, r, from)
			if err != nil {
				return err
			}

			p, local := o.Projection, a.Config.Local()
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s %s %s at %s (%d quotes)\n", p.Type, model.FormatMoney(p.Amount), p.Currency, model.FormatRate(p.Rate), o.Points)
			fmt.Fprintf(out, "Average %s  trend %s  %s\n", model.FormatRate(p.Average), model.FormatRate(p.Trend), o.Summary.Direction)
			fmt.Fprintf(out, "Projected profit: %s %s\n", local, model.FormatMoney(p.Profit))
			for _, s := range p.Scenarios {
				fmt.Fprintf(out, "  %-12s %s %s\n", s.Name, local, model.FormatMoney(s.Profit))
			}
			fmt.Fprintln(out, p.Advice())
			return nil
		},
	}
	cmd.Flags().StringVar(&typ, "type", "buy", "buy or sell")
	cmd.Flags().StringVar(&currency, "currency", "USD", "foreign currency")
	cmd.Flags().StringVar(&amount, "amount", "", "foreign amount (required)")
	_ = cmd.MarkFlagRequired("amount")
	cmd.Flags().StringVar(&rate, "rate", "", "operation rate (default the current quote)")
	cmd.Flags().DurationVar(&since, "since", 24*time.Hour, "rate history window (0 = everything)")
	return cmd
}
