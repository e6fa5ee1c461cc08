package report

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/pario-ai/briefbench/pkg/models"
)

// Header is the first row of every report.
var Header = []string{
	"URL", "Model", "Run", "Time (s)", "Success", "Summary Length",
	"Target Length", "Length Match", "Cache Used", "Cache Age (hours)", "Error", "Summary",
}

// FileName returns the default report name for a sweep started at t.
func FileName(t time.Time) string {
	return fmt.Sprintf("briefbench_bench_%d.csv", t.Unix())
}

// Writer appends benchmark records to a CSV file, flushing after every row.
type Writer struct {
	f    *os.File
	w    *csv.Writer
	path string
}

// Create opens a new report at path and writes the header.
func Create(path string) (*Writer, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create report dir: %w", err)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create report: %w", err)
	}
	rw := &Writer{f: f, w: csv.NewWriter(f), path: path}
	if err := rw.write(Header); err != nil {
		_ = f.Close()
		return nil, err
	}
	return rw, nil
}

// Path returns the report location.
func (rw *Writer) Path() string {
	return rw.path
}

// Append writes one record and flushes it.
func (rw *Writer) Append(rec models.BenchmarkRecord) error {
	return rw.write(encode(rec))
}

func (rw *Writer) write(row []string) error {
	if err := rw.w.Write(row); err != nil {
		return fmt.Errorf("write report row: %w", err)
	}
	rw.w.Flush()
	if err := rw.w.Error(); err != nil {
		return fmt.Errorf("flush report: %w", err)
	}
	return nil
}

// Close flushes and closes the file.
func (rw *Writer) Close() error {
	rw.w.Flush()
	if err := rw.w.Error(); err != nil {
		_ = rw.f.Close()
		return fmt.Errorf("flush report: %w", err)
	}
	return rw.f.Close()
}

func encode(r models.BenchmarkRecord) []string {
	return []string{
		r.URL,
		r.Model,
		strconv.Itoa(r.Run),
		strconv.FormatFloat(r.ElapsedSeconds, 'f', 2, 64),
		strconv.FormatBool(r.Success),
		strconv.Itoa(r.SummaryLength),
		strconv.Itoa(r.TargetLength),
		strconv.FormatBool(r.LengthMatch),
		strconv.FormatBool(r.CacheExists),
		strconv.FormatFloat(r.CacheAgeHours, 'f', 1, 64),
		r.Error,
		r.SummaryExcerpt,
	}
}

// Read parses a report written by Writer.
func Read(path string) ([]models.BenchmarkRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open report: %w", err)
	}
	defer func() { _ = f.Close() }()
	return Parse(f)
}

// Parse reads report rows from r.
func Parse(r io.Reader) ([]models.BenchmarkRecord, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = len(Header)

	head, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read report header: %w", err)
	}
	if head[0] != Header[0] {
		return nil, fmt.Errorf("unexpected report header %q", head[0])
	}

	var records []models.BenchmarkRecord
	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read report row: %w", err)
		}
		rec, err := decode(row)
		if err != nil {
			line, _ := cr.FieldPos(0)
			return nil, fmt.Errorf("report line %d: %w", line, err)
		}
		records = append(records, rec)
	}
	return records, nil
}

func decode(row []string) (models.BenchmarkRecord, error) {
	var (
		rec  models.BenchmarkRecord
		errs []error
	)
	atoi := func(s string) int {
		n, err := strconv.Atoi(s)
		errs = append(errs, err)
		return n
	}
	atof := func(s string) float64 {
		f, err := strconv.ParseFloat(s, 64)
		errs = append(errs, err)
		return f
	}

	rec.URL = row[0]
	rec.Model = row[1]
	rec.Run = atoi(row[2])
	rec.ElapsedSeconds = atof(row[3])
	rec.Success = isTrue(row[4])
	rec.SummaryLength = atoi(row[5])
	rec.TargetLength = atoi(row[6])
	rec.LengthMatch = isTrue(row[7])
	rec.CacheExists = isTrue(row[8])
	rec.CacheAgeHours = atof(row[9])
	rec.Error = row[10]
	rec.SummaryExcerpt = row[11]
	return rec, errors.Join(errs...)
}

func isTrue(s string) bool {
	return strings.EqualFold(strings.TrimSpace(s), "true")
}

// Aggregate computes the mean time of successful runs per (model, url),
// in order of first appearance.
func Aggregate(records []models.BenchmarkRecord) []models.AggregateRow {
	type key struct{ model, url string }
	index := make(map[key]int)
	sums := make([]float64, 0)
	var rows []models.AggregateRow

	for _, r := range records {
		if !r.Success {
			continue
		}
		k := key{r.Model, r.URL}
		i, ok := index[k]
		if !ok {
			i = len(rows)
			index[k] = i
			rows = append(rows, models.AggregateRow{Model: r.Model, URL: r.URL})
			sums = append(sums, 0)
		}
		rows[i].Runs++
		sums[i] += r.ElapsedSeconds
	}
	for i := range rows {
		rows[i].MeanSeconds = sums[i] / float64(rows[i].Runs)
	}
	return rows
}
