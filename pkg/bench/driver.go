package bench

import (
	"context"
	"errors"
	"fmt"
	"unicode/utf8"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/stat"

	"github.com/pario-ai/briefbench/pkg/history"
	"github.com/pario-ai/briefbench/pkg/listfile"
	"github.com/pario-ai/briefbench/pkg/models"
	"github.com/pario-ai/briefbench/pkg/report"
)

const excerptRunes = 100

// CacheInspector reports cache state for a URL.
type CacheInspector interface {
	Info(url string) (exists bool, ageHours float64)
}

// Plan describes one benchmark sweep.
type Plan struct {
	Host         string
	URLs         []string
	Models       []string
	TargetLength int
	Runs         int
	ReportPath   string
}

// Validate drops embedding models and rejects unusable plans.
func (p *Plan) Validate() error {
	p.Models = listfile.FilterEmbedding(p.Models)
	switch {
	case p.Host == "":
		return errors.New("host is required")
	case len(p.Models) == 0:
		return errors.New("no models to benchmark")
	case len(p.URLs) == 0:
		return errors.New("no urls to benchmark")
	case p.TargetLength <= 0:
		return fmt.Errorf("max length must be positive, got %d", p.TargetLength)
	case p.Runs < 1:
		return fmt.Errorf("runs must be at least 1, got %d", p.Runs)
	case p.ReportPath == "":
		return errors.New("report path is required")
	}
	return nil
}

// Result is everything a sweep produced.
type Result struct {
	SweepID    string
	ReportPath string
	Records    []models.BenchmarkRecord
	Pairs      []models.PairStats
	Aggregate  []models.AggregateRow
}

// Driver runs benchmark sweeps sequentially.
type Driver struct {
	runner   Runner
	cache    CacheInspector
	recorder history.Recorder
	logger   *zap.Logger
}

// NewDriver creates a Driver. recorder may be nil.
func NewDriver(runner Runner, c CacheInspector, recorder history.Recorder, logger *zap.Logger) *Driver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Driver{runner: runner, cache: c, recorder: recorder, logger: logger}
}

// Run executes every (url, model, run) combination. Failed runs are
// recorded and the sweep continues.
func (d *Driver) Run(ctx context.Context, plan Plan) (*Result, error) {
	if err := plan.Validate(); err != nil {
		return nil, err
	}

	w, err := report.Create(plan.ReportPath)
	if err != nil {
		return nil, err
	}
	res := &Result{ReportPath: w.Path()}

	if d.recorder != nil {
		res.SweepID, err = d.recorder.StartSweep(ctx, models.Sweep{
			Host:         plan.Host,
			TargetLength: plan.TargetLength,
			Runs:         plan.Runs,
			ReportPath:   w.Path(),
		})
		if err != nil {
			_ = w.Close()
			return nil, err
		}
	}

	d.logger.Info("starting benchmark",
		zap.String("sweep", res.SweepID),
		zap.Int("models", len(plan.Models)),
		zap.Int("urls", len(plan.URLs)),
		zap.Int("runs", plan.Runs),
		zap.String("report", w.Path()))

	runErr := d.sweep(ctx, plan, w, res)
	if cerr := w.Close(); cerr != nil && runErr == nil {
		runErr = cerr
	}
	if runErr != nil {
		return res, runErr
	}

	rows, err := report.Read(res.ReportPath)
	if err != nil {
		return res, err
	}
	res.Aggregate = report.Aggregate(rows)
	return res, nil
}

func (d *Driver) sweep(ctx context.Context, plan Plan, w *report.Writer, res *Result) error {
	for _, url := range plan.URLs {
		exists, age := d.cache.Info(url)
		if !exists {
			age = 0
		}

		for _, model := range plan.Models {
			log := d.logger.With(zap.String("url", url), zap.String("model", model))
			var pair []models.BenchmarkRecord

			for run := 1; run <= plan.Runs; run++ {
				if err := ctx.Err(); err != nil {
					return err
				}

				out := d.runner.RunOnce(ctx, RunParams{
					Host:         plan.Host,
					URL:          url,
					Model:        model,
					TargetLength: plan.TargetLength,
				})
				rec := buildRecord(url, model, run, plan.TargetLength, exists, age, out)

				if err := w.Append(rec); err != nil {
					return err
				}
				if d.recorder != nil {
					if err := d.recorder.Record(ctx, res.SweepID, rec); err != nil {
						log.Warn("failed to record run in history", zap.Error(err))
					}
				}
				if rec.Success {
					log.Info("run finished",
						zap.Int("run", run),
						zap.Float64("seconds", rec.ElapsedSeconds),
						zap.Int("length", rec.SummaryLength),
						zap.Bool("length_match", rec.LengthMatch))
				} else {
					log.Warn("run failed", zap.Int("run", run), zap.String("error", rec.Error))
				}

				pair = append(pair, rec)
				res.Records = append(res.Records, rec)
			}

			ps := PairStatsFor(url, model, pair)
			res.Pairs = append(res.Pairs, ps)
			log.Info("pair complete", zap.String("stats", FormatPairStats(ps)))
		}
	}
	return nil
}

func buildRecord(url, model string, run, target int, exists bool, age float64, out RunOutcome) models.BenchmarkRecord {
	rec := models.BenchmarkRecord{
		URL:            url,
		Model:          model,
		Run:            run,
		ElapsedSeconds: out.Elapsed.Seconds(),
		Success:        out.Success,
		TargetLength:   target,
		CacheExists:    exists,
		CacheAgeHours:  age,
		Error:          out.Err,
	}
	if out.Success {
		rec.SummaryLength = utf8.RuneCountInString(out.Summary)
		rec.LengthMatch = rec.SummaryLength <= target
		rec.SummaryExcerpt = Excerpt(out.Summary)
	}
	return rec
}

// Excerpt shortens s to its first 100 characters followed by "...".
func Excerpt(s string) string {
	if utf8.RuneCountInString(s) <= excerptRunes {
		return s
	}
	return string([]rune(s)[:excerptRunes]) + "..."
}

// PairStatsFor computes timing statistics over the successful runs in recs.
func PairStatsFor(url, model string, recs []models.BenchmarkRecord) models.PairStats {
	ps := models.PairStats{URL: url, Model: model, Runs: len(recs)}
	var times []float64
	for _, r := range recs {
		if r.Success {
			times = append(times, r.ElapsedSeconds)
		}
	}
	ps.Successful = len(times)
	if len(times) == 0 {
		return ps
	}
	ps.Mean, ps.StdDev = stat.PopMeanStdDev(times, nil)
	ps.HasTiming = true
	return ps
}

// FormatPairStats renders "mean ± std (k/n successful)".
func FormatPairStats(ps models.PairStats) string {
	if !ps.HasTiming {
		return fmt.Sprintf("no successful runs (0/%d)", ps.Runs)
	}
	return fmt.Sprintf("%.2fs ± %.2fs (%d/%d successful)", ps.Mean, ps.StdDev, ps.Successful, ps.Runs)
}
