package commands

import (
	"fmt"
	"slices"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/rojas-cambio/cambio/internal/access"
	"github.com/rojas-cambio/cambio/internal/activity"
	"github.com/rojas-cambio/cambio/internal/forecast"
	"github.com/rojas-cambio/cambio/internal/model"
)

func newRatesCommand(g *globals) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rates",
		Short: "Quoted buy and sell rates",
	}
	cmd.AddCommand(
		newRatesShowCommand(g),
		newRatesRefreshCommand(g),
		newRatesSetCommand(g),
		newRatesHistoryCommand(g),
	)
	return cmd
}

func rateRows(rs []model.Rate) [][]string {
	rows := make([][]string, len(rs))
	for i, r := range rs {
		rows[i] = []string{
			string(r.Currency),
			model.FormatRate(r.Buy),
			model.FormatRate(r.Sell),
			model.FormatRate(r.Change),
			r.ChangePercent.StringFixed(3) + "%",
			r.Source,
			r.UpdatedAt.Local().Format("2006-01-02 15:04"),
		}
	}
	return rows
}

var rateColumns = []string{"currency", "buy", "sell", "change", "change %", "source", "updated"}

func newRatesShowCommand(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the current rates",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, _, err := g.session(cmd, access.ViewRates)
			if err != nil {
				return err
			}
			defer a.Close()

			current, err := a.Board.Current(ctxOf(cmd))
			if err != nil {
				return err
			}
			return printTable(cmd.OutOrStdout(), rateColumns, rateRows(current))
		},
	}
}

func newRatesRefreshCommand(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "refresh",
		Short: "Fetch fresh rates from the configured provider",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, u, err := g.session(cmd, access.ManageRates)
			if err != nil {
				return err
			}
			defer a.Close()

			fresh, err := a.Board.Refresh(ctxOf(cmd))
			if err != nil {
				return err
			}
			_ = a.Activity.Record(activity.Entry{
				UserID:  u.ID,
				Action:  activity.ActionRatesUpdate,
				Details: fmt.Sprintf("refreshed %d rates", len(fresh)),
			})
			a.Commit(ctxOf(cmd), "Refresh exchange rates")
			return printTable(cmd.OutOrStdout(), rateColumns, rateRows(fresh))
		},
	}
}

func newRatesSetCommand(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "set <currency> <buy> <sell>",
		Short: "Override the quote of one currency",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := model.ParseCurrency(args[0])
			if err != nil {
				return err
			}
			buy, err := decimal.NewFromString(args[1])
			if err != nil {
				return fmt.Errorf("buy rate %q is not a number", args[1])
			}
			sell, err := decimal.NewFromString(args[2])
			if err != nil {
				return fmt.Errorf("sell rate %q is not a number", args[2])
			}

			a, u, err := g.session(cmd, access.ManageRates)
			if err != nil {
				return err
			}
			defer a.Close()
			if !slices.Contains(a.Currencies, c) {
				return fmt.Errorf("currency %s is not traded", c)
			}

			r, err := a.Board.Set(c, buy, sell)
			if err != nil {
				return err
			}
			_ = a.Activity.Record(activity.Entry{
				UserID:  u.ID,
				Action:  activity.ActionRatesSet,
				Details: fmt.Sprintf("%s buy %s sell %s", c, model.FormatRate(buy), model.FormatRate(sell)),
				Ref:     string(c),
			})
			a.Commit(ctxOf(cmd), fmt.Sprintf("Set %s rate", c))
			return printTable(cmd.OutOrStdout(), rateColumns, rateRows([]model.Rate{r}))
		},
	}
}

func newRatesHistoryCommand(g *globals) *cobra.Command {
	var since time.Duration
	cmd := &cobra.Command{
		Use:   "history <currency>",
		Short: "Show recorded quotes with their high, low and direction",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := model.ParseCurrency(args[0])
			if err != nil {
				return err
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
			hist, err := a.Board.History(c, from)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(hist) == 0 {
				fmt.Fprintf(out, "No %s quotes recorded.\n", c)
				return nil
			}
			if err := printTable(out, rateColumns, rateRows(hist)); err != nil {
				return err
			}
			for _, typ := range []model.TransactionType{model.Buy, model.Sell} {
				s := forecast.Summarize(forecast.Series(hist, typ))
				fmt.Fprintf(out, "%s: max %s  min %s  last %s  %s\n", typ,
					model.FormatRate(s.Max), model.FormatRate(s.Min), model.FormatRate(s.Last), s.Direction)
			}
			return nil
		},
	}
	cmd.Flags().DurationVar(&since, "since", 24*time.Hour, "how far back to look (0 = everything)")
	return cmd
}
