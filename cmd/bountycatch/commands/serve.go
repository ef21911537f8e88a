package commands

import (
	"github.com/spf13/cobra"

	"github.com/JonMunkholm/bountycatch/internal/web"
)

func newServeCmd(a *app) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the read-only HTTP API",
		Long: `Serve a read-only HTTP API over the domain list until interrupted.

  GET /healthz
  GET /api/domains?match=&regex=&sort=&format=text|json
  GET /api/domains/count?match=&regex=`,
		Args: noArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, done, err := a.service(cmd)
			if err != nil {
				return err
			}
			defer done()

			cfg := a.cfg.Server
			if addr != "" {
				cfg.Addr = addr
			}
			return web.NewServer(svc, cfg).ListenAndServe(cmd.Context())
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (default: server.addr from config)")
	return cmd
}
