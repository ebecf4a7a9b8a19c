package commands

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/rojas-cambio/cambio/internal/access"
	"github.com/rojas-cambio/cambio/internal/app"
	"github.com/rojas-cambio/cambio/internal/buildinfo"
	"github.com/rojas-cambio/cambio/internal/model"
)

// globals holds the persistent flags shared by every subcommand.
type globals struct {
	dataDir string
	as      string
}

// NewRootCommand creates the root CLI command with all subcommands registered.
func NewRootCommand() *cobra.Command {
	g := &globals{}

	rootCmd := &cobra.Command{
		Use:     "cambio",
		Short:   "Back office for a currency exchange house",
		Version: buildinfo.String(),
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVar(&g.dataDir, "data", envOr("CAMBIO_DATA", "."), "data directory (env CAMBIO_DATA)")
	rootCmd.PersistentFlags().StringVar(&g.as, "as", os.Getenv("CAMBIO_AS"), "email of the acting user (env CAMBIO_AS)")

	rootCmd.AddCommand(
		newInitCommand(),
		newTxnCommand(g),
		newCashCommand(g),
		newRatesCommand(g),
		newForecastCommand(g),
		newReportCommand(g),
		newUsersCommand(g),
		newImportCommand(g),
		newServeCommand(g),
	)

	return rootCmd
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// open loads the data directory. Logs go to stderr.
func (g *globals) open(cmd *cobra.Command) (*app.App, error) {
	dir, err := filepath.Abs(g.dataDir)
	if err != nil {
		return nil, fmt.Errorf("resolving path: %w", err)
	}
	return app.Open(ctxOf(cmd), dir, cmd.ErrOrStderr())
}

// session opens the data directory and resolves the acting user, who must
// hold capability c.
func (g *globals) session(cmd *cobra.Command, c access.Capability) (*app.App, model.User, error) {
	a, err := g.open(cmd)
	if err != nil {
		return nil, model.User{}, err
	}
	u, err := a.Actor(g.as, c)
	if err != nil {
		a.Close()
		return nil, model.User{}, err
	}
	return a, u, nil
}

func ctxOf(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
