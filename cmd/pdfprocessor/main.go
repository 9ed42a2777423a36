//	@title			PDF Processor
//	@version		1.0
//	@description	Copies PDFs uploaded to unprocessed-pdf into processed-pdf as processed_<name>.
//
//	@host		localhost:8080
//	@BasePath	/

package main

import (
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "pdfprocessor",
		Short: "Copy new blobs from unprocessed-pdf to processed-pdf",
		Long: `pdfprocessor hosts the blob copy trigger endpoints (Event Grid, Azure Functions
custom handler, MinIO webhook) and can copy a single blob on demand.`,
		SilenceUsage: true,
	}
	root.AddCommand(newServeCmd(), newCopyCmd())
	return root
}
