package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mikey/llm-email-classifier/internal/adapters/report"
	"github.com/mikey/llm-email-classifier/internal/core"
	"github.com/mikey/llm-email-classifier/internal/di"
)

// output controls how a run is rendered
type output struct {
	json    bool
	csvPath string
	verbose bool
}

func newClassifyCmd(flags *di.CLIFlags) *cobra.Command {
	var out output

	cmd := &cobra.Command{
		Use:   "classify FILE...",
		Short: "Classify one or more .eml files",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			items, err := loadFiles(args)
			if err != nil {
				return err
			}
			out.verbose = flags.Verbose
			return classify(cmd.Context(), flags, items, out, cmd.OutOrStdout())
		},
	}

	cmd.Flags().BoolVar(&out.json, "json", false, "Print results as JSON")
	cmd.Flags().StringVar(&out.csvPath, "csv", "", "Also write results to this CSV file")
	return cmd
}

func newDirCmd(flags *di.CLIFlags) *cobra.Command {
	var (
		out    output
		limit  int
		offset int
	)

	cmd := &cobra.Command{
		Use:   "dir DIR",
		Short: "Classify the .eml files of a directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			items, total, err := loadDir(args[0], offset, limit)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "Found %d .eml files, classifying %d (offset %d)\n", total, len(items), offset)
			out.verbose = flags.Verbose
			return classify(cmd.Context(), flags, items, out, cmd.OutOrStdout())
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 0, "Maximum number of files to classify (0 = all)")
	cmd.Flags().IntVar(&offset, "offset", 0, "Number of files to skip")
	cmd.Flags().BoolVar(&out.json, "json", false, "Print results as JSON")
	cmd.Flags().StringVar(&out.csvPath, "csv", "", "Also write results to this CSV file")
	return cmd
}

func newMboxCmd(flags *di.CLIFlags) *cobra.Command {
	var out output

	cmd := &cobra.Command{
		Use:   "mbox FILE",
		Short: "Classify every message of an mbox archive",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			items, err := loadMbox(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "Read %d messages from %s\n", len(items), args[0])
			out.verbose = flags.Verbose
			return classify(cmd.Context(), flags, items, out, cmd.OutOrStdout())
		},
	}

	cmd.Flags().BoolVar(&out.json, "json", false, "Print results as JSON")
	cmd.Flags().StringVar(&out.csvPath, "csv", "", "Also write results to this CSV file")
	return cmd
}

// classify runs items through the service built by the CLI container and renders the results
func classify(ctx context.Context, flags *di.CLIFlags, items []core.BatchItem, out output, w io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}

	container, err := di.BuildCLIContainer(flags)
	if err != nil {
		return fmt.Errorf("failed to build dependency container: %w", err)
	}

	return container.Invoke(func(logger *zap.Logger, service *core.ClassificationService) error {
		defer logger.Sync()

		logger.Debug("Classifying messages",
			zap.Int("count", len(items)),
			zap.String("model", service.ModelID()))

		results := service.ClassifyBatch(ctx, items)
		return render(results, out, w)
	})
}

func render(results []*core.ClassificationResult, out output, w io.Writer) error {
	if out.json {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(results); err != nil {
			return fmt.Errorf("failed to encode results: %w", err)
		}
	} else {
		for _, r := range results {
			if err := report.WriteResult(w, r, out.verbose); err != nil {
				return err
			}
		}
		if err := report.WriteSummary(w, report.Summarize(results)); err != nil {
			return err
		}
	}

	if out.csvPath != "" {
		if err := writeCSV(out.csvPath, results); err != nil {
			return err
		}
		if !out.json {
			fmt.Fprintf(w, "\nResults saved to %s\n", out.csvPath)
		}
	}
	return nil
}

func writeCSV(path string, results []*core.ClassificationResult) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create CSV file: %w", err)
	}
	defer f.Close()

	cw, err := report.NewCSVWriter(f)
	if err != nil {
		return err
	}
	for _, r := range results {
		if err := cw.Write(r); err != nil {
			return err
		}
	}
	if err := cw.Flush(); err != nil {
		return fmt.Errorf("failed to write CSV file: %w", err)
	}
	return f.Close()
}
