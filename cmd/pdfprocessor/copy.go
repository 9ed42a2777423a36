package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/pdfprocessor/service/internal/blobcopy"
	"github.com/pdfprocessor/service/internal/config"
)

func newCopyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "copy <blob-name>",
		Short: "Copy one blob from unprocessed-pdf to processed-pdf",
		Example: `  pdfprocessor copy report.pdf
  pdfprocessor copy 2024/q3/report.pdf`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := setup(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = a.log.Sync() }()

			source := a.store.Container(config.SourceContainer)
			if err := a.copier.HandleObject(ctx, source, args[0]); err != nil {
				return err
			}
			a.log.Info("copy complete",
				zap.String("container", config.DestinationContainer),
				zap.String("destination", blobcopy.DestinationName(args[0])))
			return nil
		},
	}
}
