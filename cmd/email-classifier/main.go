package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/mikey/llm-email-classifier/internal/di"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	flags := &di.CLIFlags{}

	rootCmd := &cobra.Command{
		Use:           "email-classifier",
		Short:         "Classify email messages as phishing, spam or benign",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&flags.ConfigFile, "config", "", "Path to config file")
	pf.StringVar(&flags.Provider, "provider", "", "Completion provider (openai, gemini, bedrock, rules)")
	pf.StringVar(&flags.Model, "model", "", "Model name for the selected provider")
	pf.StringSliceVar(&flags.Labels, "labels", nil, "Comma-separated label set")
	pf.IntVar(&flags.Concurrency, "concurrency", 0, "Number of messages classified in parallel")
	pf.BoolVarP(&flags.Verbose, "verbose", "v", false, "Enable verbose logging and show model output")
	pf.BoolVar(&flags.JSONLog, "json-log", false, "Output logs in JSON format")

	rootCmd.AddCommand(
		newClassifyCmd(flags),
		newDirCmd(flags),
		newMboxCmd(flags),
	)
	return rootCmd
}
