package main

import (
	"github.com/spf13/cobra"

	"github.com/aouyang1/go-demand/server"
	"github.com/aouyang1/go-demand/service"
)

var (
	serveUI   string
	serveAddr string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the demand dashboard",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveUI, "ui", "", "classic or reactive, defaults to server.mode")
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address, defaults to server.addr")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signalContext(cmd)
	defer stop()

	st, err := openStore()
	if err != nil {
		return err
	}
	defer closeStore(st)

	rec := newRecorder()
	svc, err := service.New(cfg.PipelineConfig(), st, rec)
	if err != nil {
		return err
	}

	scfg := cfg.Server
	if serveAddr != "" {
		scfg.Addr = serveAddr
	}
	srv, err := server.New(serveUI, svc, &scfg)
	if err != nil {
		return err
	}
	return srv.WithRecorder(rec).Start(ctx)
}
