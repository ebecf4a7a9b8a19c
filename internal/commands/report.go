package commands

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/rojas-cambio/cambio/internal/access"
	"github.com/rojas-cambio/cambio/internal/activity"
	"github.com/rojas-cambio/cambio/internal/cash"
	"github.com/rojas-cambio/cambio/internal/report"
)

func newReportCommand(g *globals) *cobra.Command {
	var start, end, month, format, outPath, expenses string

	kinds := make([]string, len(report.Kinds))
	for i, k := range report.Kinds {
		kinds[i] = string(k)
	}

	cmd := &cobra.Command{
		Use:       "report <" + strings.Join(kinds, "|") + ">",
		Short:     "Build a report, print it or write it as CSV or XLSX",
		Args:      cobra.ExactArgs(1),
		ValidArgs: kinds,
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := report.ParseKind(args[0])
			if err != nil {
				return err
			}
			rng, err := parseRange(start, end, month)
			if err != nil {
				return err
			}
			exp := decimal.Zero
			if cmd.Flags().Changed("expenses") {
				if exp, err = cash.ParseExpenses(expenses); err != nil {
					return err
				}
			}
			var f report.Format
			if format != "" && format != "table" {
				if f, err = report.ParseFormat(format); err != nil {
					return err
				}
			}

			a, u, err := g.session(cmd, access.ViewReports)
			if err != nil {
				return err
			}
			defer a.Close()

			tbl, err := a.Report(ctxOf(cmd), kind, rng, exp)
			if err != nil {
				return err
			}
			if f == "" {
				fmt.Fprintln(cmd.OutOrStdout(), tbl.Title)
				return printTable(cmd.OutOrStdout(), tbl.Columns, tbl.Rows)
			}

			if outPath == "" {
				outPath = filepath.Join(a.Dir, "reports", fmt.Sprintf("%s.%s", kind, f))
			}
			if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
				return fmt.Errorf("creating report dir: %w", err)
			}
			file, err := os.Create(outPath)
			if err != nil {
				return fmt.Errorf("creating %s: %w", outPath, err)
			}
			if err := report.Write(file, f, tbl); err != nil {
				file.Close()
				return err
			}
			if err := file.Close(); err != nil {
				return fmt.Errorf("closing %s: %w", outPath, err)
			}
			_ = a.Activity.Record(activity.Entry{
				UserID:  u.ID,
				Action:  activity.ActionReport,
				Details: fmt.Sprintf("%s report %s as %s", kind, rng, f),
			})
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", outPath)
			return nil
		},
	}
	rangeFlags(cmd, &start, &end, &month)
	cmd.Flags().StringVar(&format, "format", "table", "table, csv or xlsx")
	cmd.Flags().StringVarP(&outPath, "out", "o", "", "output file (default reports/<kind>.<format> in the data dir)")
	cmd.Flags().StringVar(&expenses, "expenses", "0", "operating expenses for the profit report")
	return cmd
}
