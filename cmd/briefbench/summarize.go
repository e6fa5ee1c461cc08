package main

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/pario-ai/briefbench/pkg/cache"
	"github.com/pario-ai/briefbench/pkg/extract"
	"github.com/pario-ai/briefbench/pkg/fetcher"
	"github.com/pario-ai/briefbench/pkg/logging"
	"github.com/pario-ai/briefbench/pkg/models"
	"github.com/pario-ai/briefbench/pkg/ollama"
	"github.com/pario-ai/briefbench/pkg/summarizer"
)

var errNoSummary = errors.New("no summary generated")

func newSummarizeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "summarize <ollama_host> <url> [ollama_model] [summary_length] [REPEATED]",
		Short: "Summarize an article with a local Ollama model",
		Long: "Fetches the article (or reuses a cached copy), unloads resident models and asks the\n" +
			"model for a fixed-length summary. Only the summary is written to stdout.\n" +
			"Passing REPEATED as the last argument reuses any cached copy and always reprocesses.",
		Args: cobra.RangeArgs(2, 5),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := a.cfg
			logger := logging.FromContext(cmd.Context())

			host, url := args[0], args[1]
			if err := summarizer.CheckHost(host); err != nil {
				return err
			}

			req := summarizer.Request{
				URL:          url,
				Model:        cfg.Model,
				TargetLength: cfg.SummaryLength,
			}
			if len(args) > 2 && args[2] != "" {
				req.Model = args[2]
			}
			if len(args) > 3 {
				n, err := strconv.Atoi(args[3])
				if err != nil {
					return fmt.Errorf("%w: summary length %q is not a number", summarizer.ErrConfiguration, args[3])
				}
				req.TargetLength = n
			}
			req.ForceReuse = len(args) > 4 && args[4] == summarizer.ReuseFlag

			store, err := cache.New(cfg.CacheDir, cfg.FreshnessWindow)
			if err != nil {
				return err
			}

			client, err := ollama.New(host, ollama.Options{
				StatusTimeout: cfg.Timeouts.Status,
				Logger:        logger.Named("ollama"),
			})
			if err != nil {
				return fmt.Errorf("%w: %v", summarizer.ErrConfiguration, err)
			}

			extractor, err := extract.New(cfg.Extractor)
			if err != nil {
				return fmt.Errorf("%w: %v", summarizer.ErrConfiguration, err)
			}

			f := fetcher.New(store, fetcher.Options{
				Timeout:   cfg.Timeouts.Fetch,
				UserAgent: cfg.UserAgent,
				Extractor: extractor,
				Logger:    logger.Named("fetcher"),
			})

			out := cmd.OutOrStdout()
			orch := summarizer.New(client, f, store,
				summarizer.WithLogger(logger.Named("summarizer")),
				summarizer.WithGenerateTimeout(cfg.Timeouts.Generate),
				summarizer.OnSummary(func(res models.SummaryResult) {
					fmt.Fprintln(out, res.CleanedText)
				}),
			)

			logger.Info("processing article",
				zap.String("host", client.BaseURL()),
				zap.String("url", req.URL),
				zap.String("model", req.Model),
				zap.Int("summary_length", req.TargetLength))

			outcome, err := orch.Run(cmd.Context(), req)
			if err != nil {
				return err
			}

			switch outcome.Kind {
			case models.Reused:
				fmt.Fprintln(out, summarizer.ReuseFlag)
				return nil
			default:
				if outcome.Summary.IsFallback {
					return errNoSummary
				}
				return nil
			}
		},
	}
}
