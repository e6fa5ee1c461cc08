package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/pario-ai/briefbench/pkg/bench"
	"github.com/pario-ai/briefbench/pkg/cache"
	"github.com/pario-ai/briefbench/pkg/history"
	"github.com/pario-ai/briefbench/pkg/listfile"
	"github.com/pario-ai/briefbench/pkg/logging"
	"github.com/pario-ai/briefbench/pkg/report"
)

func newBenchCmd(a *app) *cobra.Command {
	var (
		modelsArg  string
		modelFile  string
		urlsArg    string
		urlsFile   string
		runs       int
		outputPath string
	)

	cmd := &cobra.Command{
		Use:   "bench <ollama_host> <max_length>",
		Short: "Benchmark models across articles",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := a.cfg
			logger := logging.FromContext(cmd.Context())

			maxLength, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("max length %q is not a number", args[1])
			}

			if modelsArg == "" && modelFile == "" {
				return fmt.Errorf("one of --models or --model-file is required")
			}
			if urlsArg == "" && urlsFile == "" {
				return fmt.Errorf("one of --urls or --urls-file is required")
			}
			modelList, err := listfile.Models(modelsArg, modelFile)
			if err != nil {
				return err
			}
			urlList, err := listfile.URLs(urlsArg, urlsFile)
			if err != nil {
				return err
			}

			if outputPath == "" {
				outputPath = filepath.Join(cfg.ReportDir, report.FileName(time.Now()))
			}

			binary, err := os.Executable()
			if err != nil {
				return fmt.Errorf("locate briefbench binary: %w", err)
			}

			store, err := cache.New(cfg.CacheDir, cfg.FreshnessWindow)
			if err != nil {
				return err
			}

			var recorder history.Recorder
			if cfg.History.Enabled {
				hs, err := history.New(cfg.History.DBPath)
				if err != nil {
					return err
				}
				defer func() { _ = hs.Close() }()
				recorder = hs
			}

			runner := &bench.ExecRunner{
				Binary:     binary,
				ConfigPath: a.configPath,
				Timeout:    cfg.Timeouts.Run,
				Logger:     logger.Named("runner"),
			}
			driver := bench.NewDriver(runner, store, recorder, logger.Named("bench"))

			res, err := driver.Run(cmd.Context(), bench.Plan{
				Host:         args[0],
				URLs:         urlList,
				Models:       modelList,
				TargetLength: maxLength,
				Runs:         runs,
				ReportPath:   outputPath,
			})
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "MODEL\tURL\tMEAN\tSTD DEV\tSUCCESSFUL")
			for _, ps := range res.Pairs {
				mean, std := "-", "-"
				if ps.HasTiming {
					mean, std = fmt.Sprintf("%.2fs", ps.Mean), fmt.Sprintf("%.2fs", ps.StdDev)
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d/%d\n", ps.Model, ps.URL, mean, std, ps.Successful, ps.Runs)
			}
			if err := w.Flush(); err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout())
			fmt.Fprintln(cmd.OutOrStdout(), "Average time per model and URL (successful runs):")
			for _, row := range res.Aggregate {
				fmt.Fprintf(cmd.OutOrStdout(), "%-20s %-40s %6.2fs avg (%d runs)\n", row.Model, row.URL, row.MeanSeconds, row.Runs)
			}

			logger.Info("benchmark complete",
				zap.String("report", res.ReportPath),
				zap.String("sweep", res.SweepID))
			return nil
		},
	}

	cmd.Flags().StringVarP(&modelsArg, "models", "m", "", "comma-separated list of models")
	cmd.Flags().StringVarP(&modelFile, "model-file", "M", "", "file with one model per line")
	cmd.Flags().StringVarP(&urlsArg, "urls", "u", "", "comma-separated list of URLs")
	cmd.Flags().StringVarP(&urlsFile, "urls-file", "U", "", "file with one URL per line")
	cmd.Flags().IntVarP(&runs, "runs", "r", 3, "runs per model and URL")
	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "report path (default <report_dir>/briefbench_bench_<unix>.csv)")
	return cmd
}
