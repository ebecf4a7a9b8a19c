package commands

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/rojas-cambio/cambio/internal/access"
	"github.com/rojas-cambio/cambio/internal/importer"
)

func newImportCommand(g *globals) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import transactions from CSV files in import/",
	}
	cmd.AddCommand(newImportListCommand(g), newImportRunCommand(g))
	return cmd
}

func newImportListCommand(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List pending import files and their detected format",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, _, err := g.session(cmd, access.ImportTransaction)
			if err != nil {
				return err
			}
			defer a.Close()

			files, err := importer.Scan(a.Dir)
			if err != nil {
				return err
			}
			if len(files) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No files to import.")
				return nil
			}
			reg := importer.DefaultRegistry()
			var rows [][]string
			for _, f := range files {
				format := "unknown"
				if p, err := reg.Detect(f.Path); err == nil {
					format = p.Format()
				}
				rows = append(rows, []string{f.Name, format, strconv.FormatInt(f.Size, 10)})
			}
			return printTable(cmd.OutOrStdout(), []string{"file", "format", "bytes"}, rows)
		},
	}
}

func newImportRunCommand(g *globals) *cobra.Command {
	var format string
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "run [file...]",
		Short: "Record every transaction of the pending files",
		Long: "Parses each file in import/ (or only the named ones), records its rows as one batch " +
			"and moves it to import/processed/. A file with any invalid row is left in place and nothing from it is recorded.",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, u, err := g.session(cmd, access.ImportTransaction)
			if err != nil {
				return err
			}
			defer a.Close()

			files, err := importer.Scan(a.Dir)
			if err != nil {
				return err
			}
			if len(args) > 0 {
				want := make(map[string]bool, len(args))
				for _, name := range args {
					want[name] = true
				}
				var picked []importer.FileInfo
				for _, f := range files {
					if want[f.Name] {
						picked = append(picked, f)
						delete(want, f.Name)
					}
				}
				for name := range want {
					return fmt.Errorf("%s is not in the import directory", name)
				}
				files = picked
			}

			reg := importer.DefaultRegistry()
			out := cmd.OutOrStdout()
			var total, failed int
			for _, f := range files {
				var p importer.Parser
				if format != "" {
					if p = reg.Get(format); p == nil {
						return fmt.Errorf("%w: %s (known: %v)", importer.ErrUnknownFormat, format, reg.Formats())
					}
				} else if p, err = reg.Detect(f.Path); err != nil {
					fmt.Fprintf(out, "%s: %v\n", f.Name, err)
					failed++
					continue
				}

				drafts, err := importer.ParseFile(p, f.Path)
				if err != nil {
					fmt.Fprintf(out, "%s: %v\n", f.Name, err)
					failed++
					continue
				}
				if dryRun {
					fmt.Fprintf(out, "%s: %d rows (%s), not recorded\n", f.Name, len(drafts), p.Format())
					continue
				}
				txns, err := a.Ledger.RecordBatch(ctxOf(cmd), u.ID, drafts)
				if err != nil {
					fmt.Fprintf(out, "%s: %v\n", f.Name, err)
					failed++
					continue
				}
				if err := importer.MarkProcessed(a.Dir, f.Name); err != nil {
					return err
				}
				total += len(txns)
				fmt.Fprintf(out, "%s: recorded %d transactions\n", f.Name, len(txns))
			}

			if total > 0 {
				a.Commit(ctxOf(cmd), fmt.Sprintf("Import %d transactions", total))
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d files failed", failed, len(files))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&format, "format", "", "parser to use instead of detecting it")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "parse only, record nothing")
	return cmd
}
