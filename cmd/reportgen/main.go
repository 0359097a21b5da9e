// Command reportgen renders a report record (JSON) to a PDF without the UI.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/spf13/cobra"

	"mammo-annotator/internal/config"
	"mammo-annotator/internal/finding"
	"mammo-annotator/internal/image"
	"mammo-annotator/internal/logging"
	"mammo-annotator/internal/report"
)

type options struct {
	configPath string
	recordPath string
	outDir     string
	pageSize   string
	demo       int
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := newCommand().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newCommand() *cobra.Command {
	opts := &options{demo: -1}

	cmd := &cobra.Command{
		Use:   "reportgen",
		Short: "Render a report record to PDF",
		Long: `Render a report record to PDF.

The record is the JSON document produced by the analysis service:
{"id", "input_img", "output_img", "report": [...], "BIRADS", "comment": [...]}.
Use --demo N to render the built-in record against sample image N.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), opts, cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVarP(&opts.configPath, "config", "c", "", "Path to config file")
	cmd.Flags().StringVarP(&opts.recordPath, "record", "r", "", "Report record JSON file ('-' for stdin)")
	cmd.Flags().StringVarP(&opts.outDir, "out", "o", "", "Output directory (default from config)")
	cmd.Flags().StringVar(&opts.pageSize, "page-size", "", "Page size: A4, Letter or Legal")
	cmd.Flags().IntVar(&opts.demo, "demo", -1, "Render the demo record with sample image N")
	cmd.MarkFlagsMutuallyExclusive("record", "demo")
	return cmd
}

func run(ctx context.Context, opts *options, out io.Writer) error {
	cfg, warnings, err := config.Load(opts.configPath)
	if err != nil {
		return err
	}
	logger := logging.New(cfg.Log.Level, cfg.Log.Format, os.Stderr)
	for _, w := range warnings {
		logger.Warn("config value replaced", "detail", w)
	}

	rec, err := loadRecord(opts)
	if err != nil {
		return err
	}
	if opts.outDir != "" {
		cfg.Export.OutputDir = opts.outDir
	}
	if opts.pageSize != "" {
		ps, err := report.ParsePageSize(opts.pageSize)
		if err != nil {
			return err
		}
		cfg.Export.PageSize = ps
	}

	fetcher := image.NewFetcher(image.FetcherOptions{
		Timeout:   cfg.Fetch.Timeout,
		CacheTTL:  cfg.Fetch.CacheTTL,
		UserAgent: cfg.Fetch.UserAgent,
	}, logging.Module(logger, "image"))
	exporter := report.NewExporter(fetcher, report.Options{
		OutputDir:  cfg.Export.OutputDir,
		PageSize:   cfg.Export.PageSize,
		MaxImagePx: cfg.Export.MaxImagePx,
		Palette:    cfg.Palette(),
		Compress:   true,
	}, logging.Module(logger, "report"))

	res, err := exporter.Export(ctx, rec)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "Report written: %s (%d page(s))\n", res.Path, res.Pages)
	for _, w := range res.Warnings {
		fmt.Fprintf(out, "  warning: %s\n", w)
	}
	return nil
}

func loadRecord(opts *options) (finding.Record, error) {
	if opts.demo >= 0 {
		samples := image.Gallery()
		if opts.demo >= len(samples) {
			return finding.Record{}, fmt.Errorf("demo sample %d out of range (0-%d)", opts.demo, len(samples)-1)
		}
		s := samples[opts.demo]
		id := strings.ReplaceAll(strings.ToLower(s.Name), " ", "-")
		return finding.SampleRecord(id, s.Thumbnail, s.Result), nil
	}

	var (
		data []byte
		err  error
	)
	switch opts.recordPath {
	case "":
		return finding.Record{}, errors.New("either --record or --demo is required")
	case "-":
		data, err = io.ReadAll(os.Stdin)
	default:
		data, err = os.ReadFile(opts.recordPath)
	}
	if err != nil {
		return finding.Record{}, fmt.Errorf("read record: %w", err)
	}
	return finding.ParseRecord(data)
}
