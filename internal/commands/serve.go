package commands

import (
	"github.com/spf13/cobra"

	"github.com/rojas-cambio/cambio/internal/server"
)

func newServeCommand(g *globals) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the JSON API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := g.open(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			tokens, err := a.Tokens()
			if err != nil {
				return err
			}
			if addr == "" {
				addr = a.Config.Server.Addr
			}
			return server.New(a, tokens).Run(ctxOf(cmd), addr)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from cambio.yaml)")
	return cmd
}
