// Medichat answers questions about uploaded medical documents.
//
// Documents are split into overlapping chunks, embedded into an in-memory
// vector index, and the most similar chunks are sent with the question to
// the configured chat model.
//
// Usage:
//
//	# Start the REST API
//	medichat serve --config medichat.yaml
//
//	# One-shot question over local files
//	medichat ask --file discharge.pdf "Which medications were started?"
//
//	# Interactive session
//	medichat chat --file labs.pdf --file notes.md
//
// Configuration is read from the optional YAML file, then MEDICHAT_*
// environment variables. See internal/config for the keys.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/medichat/internal/config"
)

// Version information (set via ldflags during build)
var (
	version   = "dev"
	gitCommit = "unknown"
	buildDate = "unknown"
)

type rootOptions struct {
	configPath string
	logLevel   string
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:   "medichat",
		Short: "Question answering over medical documents",
		Long: `medichat indexes medical documents (PDF, text, Markdown) and answers
questions about them with a chat model, reporting how well each answer is
grounded in the retrieved passages.`,
		Version:      version,
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&opts.configPath, "config", "", "path to a YAML config file")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "override logging.level (trace, debug, info, warn, error)")

	root.AddCommand(
		newServeCmd(opts),
		newAskCmd(opts),
		newChatCmd(opts),
		newVersionCmd(),
	)
	return root
}

// loadConfig loads configuration. --log-level wins over quietLevel, which
// interactive commands set so log lines do not interleave with answers.
func loadConfig(opts *rootOptions, quietLevel string) (*config.Config, error) {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return nil, fmt.Errorf("loading configuration: %w", err)
	}
	switch {
	case opts.logLevel != "":
		cfg.Logging.Level = opts.logLevel
	case quietLevel != "":
		cfg.Logging.Level = quietLevel
	}
	return cfg, nil
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "medichat by Fyrsmith Labs\n")
			fmt.Fprintf(out, "Version:    %s\n", version)
			fmt.Fprintf(out, "Commit:     %s\n", gitCommit)
			fmt.Fprintf(out, "Build Date: %s\n", buildDate)
		},
	}
}
