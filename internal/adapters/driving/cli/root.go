// Package cli implements the docuchat command line interface.
package cli

import (
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/docuchat/docuchat/internal/core/ports/driving"
	"github.com/docuchat/docuchat/internal/logger"
)

// version is set at build time via -ldflags.
var version = "dev"

// Services injected by the composition root before Execute.
var (
	ingestService  driving.IngestService
	chatService    driving.ChatService
	sessionService driving.SessionService

	// serveFunc starts the HTTP server and blocks until shutdown.
	serveFunc func(addr string) error
)

var (
	verbose    bool
	configFile string
)

var rootCmd = &cobra.Command{
	Use:   "docuchat",
	Short: "Chat with your PDF documents",
	Long: `docuchat ingests PDF documents into a local retrieval index and
answers questions about them with streamed, citation-grounded responses.`,
	SilenceUsage: true,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		logger.SetVerbose(verbose)
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "path to the configuration file")
}

// ConfigPath extracts the --config flag value from args without running
// any command. The composition root needs the path before services are
// wired, which happens before Execute parses anything.
func ConfigPath(args []string) string {
	fs := pflag.NewFlagSet("config", pflag.ContinueOnError)
	fs.ParseErrorsWhitelist.UnknownFlags = true
	fs.Usage = func() {}
	path := fs.String("config", "", "")
	_ = fs.Parse(args)
	return *path
}

// SetServices injects the driving services. Must be called before
// Execute.
func SetServices(
	ingest driving.IngestService,
	chat driving.ChatService,
	sessions driving.SessionService,
	serve func(addr string) error,
) {
	ingestService = ingest
	chatService = chat
	sessionService = sessions
	serveFunc = serve
}

// SetVersion overrides the reported version string.
func SetVersion(v string) {
	version = v
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
