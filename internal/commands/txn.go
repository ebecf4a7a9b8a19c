package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rojas-cambio/cambio/internal/access"
	"github.com/rojas-cambio/cambio/internal/id"
	"github.com/rojas-cambio/cambio/internal/ledger"
	"github.com/rojas-cambio/cambio/internal/model"
	"github.com/rojas-cambio/cambio/internal/report"
)

func newTxnCommand(g *globals) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "txn",
		Aliases: []string{"transactions"},
		Short:   "Record and browse exchange operations",
	}
	cmd.AddCommand(
		newTxnAddCommand(g),
		newTxnListCommand(g),
		newTxnEditCommand(g),
		newTxnRemoveCommand(g),
	)
	return cmd
}

func draftFlags(cmd *cobra.Command, d *ledger.Draft) {
	cmd.Flags().StringVar(&d.Type, "type", "", "buy or sell (compra/venta)")
	cmd.Flags().StringVar(&d.Currency, "currency", "", "foreign currency code")
	cmd.Flags().StringVar(&d.Amount, "amount", "", "foreign amount")
	cmd.Flags().StringVar(&d.Rate, "rate", "", "local units per foreign unit")
	cmd.Flags().StringVar(&d.Date, "date", "", "YYYY-MM-DD (default today)")
	cmd.Flags().StringVar(&d.CustomerDNI, "dni", "", "customer DNI")
	cmd.Flags().StringVar(&d.CustomerName, "customer", "", "customer name")
}

func newTxnAddCommand(g *globals) *cobra.Command {
	var d ledger.Draft
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Record a transaction",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, u, err := g.session(cmd, access.RecordTransaction)
			if err != nil {
				return err
			}
			defer a.Close()

			t, err := a.Ledger.Record(ctxOf(cmd), u.ID, d)
			if err != nil {
				return err
			}
			a.Commit(ctxOf(cmd), "Record "+t.Receipt)
			fmt.Fprintf(cmd.OutOrStdout(), "Recorded %s: %s %s %s at %s = %s\n",
				t.Receipt, t.Type, model.FormatMoney(t.Amount), t.Currency,
				model.FormatRate(t.Rate), model.FormatMoney(t.Total))
			return nil
		},
	}
	draftFlags(cmd, &d)
	return cmd
}

func newTxnListCommand(g *globals) *cobra.Command {
	var start, end, month, currency, typ string
	var limit int
	var mine bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List transactions, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rng, err := parseRange(start, end, month)
			if err != nil {
				return err
			}
			q := ledger.Query{Range: rng, Limit: limit}
			if currency != "" {
				if q.Currency, err = model.ParseCurrency(currency); err != nil {
					return err
				}
			}
			if typ != "" {
				if q.Type, err = model.ParseTransactionType(typ); err != nil {
					return err
				}
			}

			a, u, err := g.session(cmd, access.ViewTransactions)
			if err != nil {
				return err
			}
			defer a.Close()
			if mine || !access.Can(u, access.EditTransaction) {
				q.UserID = u.ID
			}

			txns, err := a.Ledger.List(ctxOf(cmd), q)
			if err != nil {
				return err
			}
			if len(txns) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No transactions.")
				return nil
			}
			tbl := report.Transactions(rng, txns)
			return printTable(cmd.OutOrStdout(), tbl.Columns, tbl.Rows)
		},
	}
	rangeFlags(cmd, &start, &end, &month)
	cmd.Flags().StringVar(&currency, "currency", "", "only this currency")
	cmd.Flags().StringVar(&typ, "type", "", "only buy or sell")
	cmd.Flags().IntVar(&limit, "limit", 0, "maximum rows (0 = all)")
	cmd.Flags().BoolVar(&mine, "mine", false, "only my transactions")
	return cmd
}

func newTxnEditCommand(g *globals) *cobra.Command {
	var d ledger.Draft
	cmd := &cobra.Command{
		Use:   "edit <id|receipt>",
		Short: "Replace the fields of a transaction",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, u, err := g.session(cmd, access.EditTransaction)
			if err != nil {
				return err
			}
			defer a.Close()

			old, err := findTransaction(cmd, a.Ledger, args[0])
			if err != nil {
				return err
			}
			// Unset flags keep the stored value.
			fill := func(flag string, dst *string, v string) {
				if !cmd.Flags().Changed(flag) {
					*dst = v
				}
			}
			fill("type", &d.Type, string(old.Type))
			fill("currency", &d.Currency, string(old.Currency))
			fill("amount", &d.Amount, old.Amount.String())
			fill("rate", &d.Rate, old.Rate.String())
			fill("date", &d.Date, old.Day())
			fill("dni", &d.CustomerDNI, old.CustomerDNI)
			fill("customer", &d.CustomerName, old.CustomerName)

			t, err := a.Ledger.Edit(ctxOf(cmd), u.ID, old.ID, d)
			if err != nil {
				return err
			}
			a.Commit(ctxOf(cmd), "Edit "+t.Receipt)
			fmt.Fprintf(cmd.OutOrStdout(), "Updated %s: total %s\n", t.Receipt, model.FormatMoney(t.Total))
			return nil
		},
	}
	draftFlags(cmd, &d)
	return cmd
}

func newTxnRemoveCommand(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:     "rm <id|receipt>",
		Aliases: []string{"delete"},
		Short:   "Delete a transaction",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, u, err := g.session(cmd, access.EditTransaction)
			if err != nil {
				return err
			}
			defer a.Close()

			t, err := findTransaction(cmd, a.Ledger, args[0])
			if err != nil {
				return err
			}
			if err := a.Ledger.Remove(ctxOf(cmd), u.ID, t.ID); err != nil {
				return err
			}
			a.Commit(ctxOf(cmd), "Delete "+t.Receipt)
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", t.Receipt)
			return nil
		},
	}
}

// findTransaction accepts a transaction ID or a receipt number.
func findTransaction(cmd *cobra.Command, l *ledger.Service, ref string) (model.Transaction, error) {
	ref = strings.TrimSpace(ref)
	receipt := strings.ToUpper(ref)
	if _, _, _, _, err := id.ParseReceipt(receipt); err != nil {
		return l.Get(ctxOf(cmd), ref)
	}
	txns, err := l.List(ctxOf(cmd), ledger.Query{Receipt: receipt})
	if err != nil {
		return model.Transaction{}, err
	}
	for _, t := range txns {
		if strings.EqualFold(t.Receipt, ref) {
			return t, nil
		}
	}
	return model.Transaction{}, fmt.Errorf("%s: %w", ref, ledger.ErrNotFound)
}
