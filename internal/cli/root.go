package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/agentx-labs/extsync/internal/branding"
	"github.com/agentx-labs/extsync/internal/config"
)

var (
	buildVersion string
	buildCommit  string
	buildDate    string

	cfgFile string
	printer = message.NewPrinter(language.English)
)

// flagKeys maps config keys to the flags that override them.
var flagKeys = map[string]string{
	config.KeyManifest:             "manifest",
	config.KeyOutputDir:            "output-dir",
	config.KeyMarketplaceURL:       "marketplace-url",
	config.KeyLogLevel:             "log-level",
	config.KeyLogFormat:            "log-format",
	config.KeyMaxConcurrentProbes:  "max-probes",
	config.KeyMaxConcurrentFetches: "max-fetches",
	config.KeyMetricsFile:          "metrics-file",
	config.KeyHTTPTimeout:          "http-timeout",
	config.KeyTraceFile:            "trace-file",
}

var rootCmd = &cobra.Command{
	Use:   branding.CLIName(),
	Short: branding.Description(),
	Long: branding.DisplayName() + ` checks a curated list of editor extensions against the marketplace,
downloads the ones with newer published versions, and records the new versions
in the manifest once every download has succeeded.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		for key, name := range flagKeys {
			if f := cmd.Flags().Lookup(name); f != nil {
				if err := viper.BindPFlag(key, f); err != nil {
					return fmt.Errorf("binding flag --%s: %w", name, err)
				}
			}
		}
		return config.Load(cfgFile)
	},
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "Config file (default ~/"+branding.HomeDir()+"/config.yaml)")
	flags.String("manifest", "", "Path to the extension manifest (default extensions.json)")
	flags.String("output-dir", "", "Directory downloaded packages are written to (default extensions)")
	flags.String("marketplace-url", "", "Marketplace base URL")
	flags.String("log-level", "", "Log level: debug, info, warn, error")
	flags.String("log-format", "", "Log format: text or json")
	flags.Duration("http-timeout", 0, "Per-request HTTP timeout (0 disables)")
	flags.String("trace-file", "", "Write OpenTelemetry spans as JSON to this file")
}

// Run executes the command tree with the given arguments and streams.
func Run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	rootCmd.SetArgs(args)
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)
	return rootCmd.ExecuteContext(ctx)
}

// Execute runs the root command with build info injected via ldflags.
func Execute(version, commit, date string) error {
	buildVersion = version
	buildCommit = commit
	buildDate = date

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := Run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	}
	return err
}
