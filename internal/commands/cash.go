package commands

import (
	"fmt"
	"io"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/rojas-cambio/cambio/internal/access"
	"github.com/rojas-cambio/cambio/internal/cash"
	"github.com/rojas-cambio/cambio/internal/model"
)

func newCashCommand(g *globals) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cash",
		Short: "Cash position and profitability",
	}
	cmd.AddCommand(newCashCalcCommand(g))
	return cmd
}

func newCashCalcCommand(g *globals) *cobra.Command {
	var start, end, month, expenses, opening string
	var currencies []string
	var mine bool

	cmd := &cobra.Command{
		Use:   "calc",
		Short: "Aggregate positions and compute profit for a period",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rng, err := parseRange(start, end, month)
			if err != nil {
				return err
			}
			req := cash.Request{Range: rng, Expenses: decimal.Zero}
			if cmd.Flags().Changed("expenses") {
				if req.Expenses, err = cash.ParseExpenses(expenses); err != nil {
					return err
				}
			}
			if req.Opening, err = cash.ParseOpening(opening); err != nil {
				return err
			}
			if req.Currencies, err = model.ParseCurrencies(currencies); err != nil {
				return err
			}

			a, u, err := g.session(cmd, access.CalculateCash)
			if err != nil {
				return err
			}
			defer a.Close()
			if mine {
				req.UserID = u.ID
			}

			res, err := a.Calculator.Calculate(ctxOf(cmd), req)
			if err != nil {
				return err
			}
			return printCash(cmd.OutOrStdout(), a.Config.Local(), res)
		},
	}
	rangeFlags(cmd, &start, &end, &month)
	cmd.Flags().StringVar(&expenses, "expenses", "0", "operating expenses in local currency")
	cmd.Flags().StringVar(&opening, "opening", "", "opening positions, e.g. USD=1500,EUR=300")
	cmd.Flags().StringSliceVar(&currencies, "currency", nil, "limit to these currencies (default all traded)")
	cmd.Flags().BoolVar(&mine, "mine", false, "only my transactions")
	return cmd
}

func printCash(w io.Writer, local model.Currency, res *cash.Result) error {
	fmt.Fprintf(w, "Period %s: %d transactions\n\n", res.Request.Range, res.Transactions)

	var positions [][]string
	for _, c := range res.Positions.Currencies() {
		p := res.Positions[c]
		positions = append(positions, []string{
			string(c),
			model.FormatMoney(p.BuyForeign),
			model.FormatMoney(p.SellForeign),
			model.FormatMoney(p.NetForeign()),
			model.FormatMoney(p.BuyLocal),
			model.FormatMoney(p.SellLocal),
		})
	}
	if err := printTable(w, []string{"currency", "bought", "sold", "net", "paid " + string(local), "received " + string(local)}, positions); err != nil {
		return err
	}
	fmt.Fprintln(w)

	var rows [][]string
	for _, r := range res.Profit.Currencies {
		rows = append(rows, []string{
			string(r.Currency),
			model.FormatRate(r.BuyMargin),
			model.FormatRate(r.SellMargin),
			model.FormatMoney(r.GrossProfitLocal),
			model.FormatMoney(r.ExpenseShareLocal),
			model.FormatMoney(r.NetProfitLocal),
			model.FormatMoney(r.NetProfitForeign),
			model.FormatMoney(r.FinalPositionForeign),
		})
	}
	if err := printTable(w, []string{"currency", "buy margin", "sell margin", "gross", "expenses", "net", "net foreign", "final position"}, rows); err != nil {
		return err
	}

	fmt.Fprintf(w, "\nGross profit: %s %s\n", local, model.FormatMoney(res.Profit.TotalGrossProfitLocal))
	fmt.Fprintf(w, "Expenses:     %s %s\n", local, model.FormatMoney(res.Profit.TotalExpenses))
	fmt.Fprintf(w, "Net profit:   %s %s\n", local, model.FormatMoney(res.Profit.TotalNetProfitLocal))
	for _, d := range res.Dropped {
		fmt.Fprintf(w, "skipped %s: %s\n", d.Transaction.Receipt, d.Reason)
	}
	return nil
}
