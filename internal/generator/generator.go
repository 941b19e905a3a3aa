// Package generator drives a batch: it resolves each record's variant
// features through a Lookup and turns accepted features into output
// records, preserving record then feature order.
package generator

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"pathovar/internal/fasta"
	"pathovar/internal/header"
	"pathovar/internal/mutation"
	"pathovar/internal/output"
	"pathovar/internal/proteins"
	"pathovar/internal/variant"
)

// Lookup resolves the variant features of one protein identifier.
type Lookup interface {
	Features(ctx context.Context, id string) ([]variant.Feature, error)
}

// LookupFunc adapts a function to Lookup.
type LookupFunc func(ctx context.Context, id string) ([]variant.Feature, error)

func (f LookupFunc) Features(ctx context.Context, id string) ([]variant.Feature, error) {
	return f(ctx, id)
}

// Skipped is an accepted feature that could not be applied.
type Skipped struct {
	Descriptor string
	Reason     error
}

// Mismatch is an applied feature whose stated wild type differed from the
// canonical sequence.
type Mismatch struct {
	Descriptor string
	Expected   string
	Found      string
}

// ProteinResult is the outcome of processing one record.
type ProteinResult struct {
	ID         string
	Features   int
	Accepted   int
	Entries    []output.Entry
	Skipped    []Skipped
	Mismatches []Mismatch
}

// ProcessProtein filters features by policy and applies each accepted one to
// rec. It performs no I/O.
func ProcessProtein(rec fasta.Record, features []variant.Feature, p variant.Policy) ProteinResult {
	res := ProteinResult{ID: rec.ID, Features: len(features)}
	accepted := variant.Filter(features, p)
	res.Accepted = len(accepted)
	for _, f := range accepted {
		o := mutation.Apply(rec.Sequence, f)
		if !o.Applied {
			res.Skipped = append(res.Skipped, Skipped{Descriptor: o.Descriptor, Reason: o.Reason})
			continue
		}
		if o.Mismatch {
			res.Mismatches = append(res.Mismatches, Mismatch{
				Descriptor: o.Descriptor,
				Expected:   mutation.Resolve(f).WildType,
				Found:      o.Found,
			})
		}
		res.Entries = append(res.Entries, output.Entry{
			Header:   header.Compose(rec.Header, rec.ID, f, o),
			Residues: o.Residues,
		})
	}
	return res
}

// Stage identifies a step of a run for progress reporting.
type Stage int

const (
	StageRead Stage = iota + 1
	StageDownload
	StageProcess
	StageCombine
)

// Progress is reported while a run advances.
type Progress struct {
	Stage Stage
	ID    string
	Done  int
	Total int
}

// Summary counts what a run did.
type Summary struct {
	Proteins   int
	Failed     int
	Features   int
	Accepted   int
	Applied    int
	Skipped    int
	Mismatches int
}

// Result is the output of a run.
type Result struct {
	Proteins []ProteinResult
	Entries  []output.Entry
	Text     string
	Summary  Summary
}

// Runner resolves features concurrently and processes records in order.
type Runner struct {
	Lookup Lookup
	Policy variant.Policy
	Logger *log.Logger
	// Concurrency is the number of parallel lookups (default 4).
	Concurrency int
	// QPS caps lookup starts per second; zero disables the limit.
	QPS int
	// Timeout bounds each lookup (default 30s).
	Timeout time.Duration
	// Progress, if set, is called from the goroutine running Run.
	Progress func(Progress)
}

func (r *Runner) logger() *log.Logger {
	if r.Logger == nil {
		return log.New(io.Discard)
	}
	return r.Logger
}

func (r *Runner) report(p Progress) {
	if r.Progress != nil {
		r.Progress(p)
	}
}

type lookupResult struct {
	index    int
	features []variant.Feature
	err      error
}

// Run processes every record of c. Lookup failures count as zero features;
// Run only returns an error when ctx is cancelled before lookups finish, and
// even then the returned Result covers the records resolved so far.
func (r *Runner) Run(ctx context.Context, c *fasta.Collection) (*Result, error) {
	logger := r.logger()
	records := c.Ordered()
	total := len(records)

	for _, id := range c.Duplicates {
		logger.Warn("duplicate identifier; later record replaces earlier one", "id", id)
	}
	for _, id := range c.Dropped {
		logger.Warn("canonical sequence not found; skipping", "id", id)
	}
	logger.Info("Step 2/4: downloading variant data", "proteins", total, "policy", r.Policy.String())

	features, resolved, failed, runErr := r.resolve(ctx, records)

	res := &Result{}
	res.Summary.Proteins = total
	res.Summary.Failed = failed
	for i, rec := range records {
		if !resolved[i] {
			continue
		}
		r.report(Progress{Stage: StageProcess, ID: rec.ID, Done: i + 1, Total: total})
		pr := ProcessProtein(rec, features[i], r.Policy)
		logger.Debug("Step 3/4: processed variants", "id", rec.ID, "features", pr.Features, "accepted", pr.Accepted, "applied", len(pr.Entries))
		for _, s := range pr.Skipped {
			logger.Warn("mutation not applied", "id", rec.ID, "variant", s.Descriptor, "reason", s.Reason)
		}
		for _, m := range pr.Mismatches {
			logger.Warn("residue mismatch; mutation applied anyway", "id", rec.ID, "variant", m.Descriptor, "expected", m.Expected, "found", m.Found)
		}
		res.Proteins = append(res.Proteins, pr)
		res.Entries = append(res.Entries, pr.Entries...)
		res.Summary.Features += pr.Features
		res.Summary.Accepted += pr.Accepted
		res.Summary.Applied += len(pr.Entries)
		res.Summary.Skipped += len(pr.Skipped)
		res.Summary.Mismatches += len(pr.Mismatches)
	}

	r.report(Progress{Stage: StageCombine, Total: total})
	logger.Info("Step 4/4: combining variants and cleaning stop symbols", "entries", len(res.Entries))
	res.Text = output.Assemble(res.Entries, r.Policy)
	return res, runErr
}

// resolve runs the lookups on a bounded worker pool. features[i] belongs to
// records[i]; resolved[i] is false only for records never looked up because
// ctx was cancelled. failed counts lookups that errored for reasons other
// than a missing entry.
func (r *Runner) resolve(ctx context.Context, records []fasta.Record) (features [][]variant.Feature, resolved []bool, failed int, err error) {
	logger := r.logger()
	total := len(records)
	features = make([][]variant.Feature, total)
	resolved = make([]bool, total)
	if total == 0 || r.Lookup == nil {
		for i := range resolved {
			resolved[i] = true
		}
		return features, resolved, 0, nil
	}

	concurrency := r.Concurrency
	if concurrency <= 0 {
		concurrency = 4
	}
	if concurrency > total {
		concurrency = total
	}
	timeout := r.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	var tick <-chan time.Time
	if r.QPS > 0 {
		ticker := time.NewTicker(time.Second / time.Duration(r.QPS))
		defer ticker.Stop()
		tick = ticker.C
	}

	tasks := make(chan int)
	results := make(chan lookupResult)

	var wg sync.WaitGroup
	for w := 0; w < concurrency; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range tasks {
				if tick != nil {
					select {
					case <-tick:
					case <-ctx.Done():
						results <- lookupResult{index: i, err: ctx.Err()}
						continue
					}
				}
				lctx, cancel := context.WithTimeout(ctx, timeout)
				fs, err := r.Lookup.Features(lctx, records[i].ID)
				cancel()
				results <- lookupResult{index: i, features: fs, err: err}
			}
		}()
	}

	go func() {
		defer close(tasks)
		for i := range records {
			select {
			case tasks <- i:
			case <-ctx.Done():
				return
			}
		}
	}()
	go func() {
		wg.Wait()
		close(results)
	}()

	done := 0
	for lr := range results {
		id := records[lr.index].ID
		if lr.err != nil && ctx.Err() != nil && errors.Is(lr.err, ctx.Err()) {
			continue
		}
		done++
		resolved[lr.index] = true
		r.report(Progress{Stage: StageDownload, ID: id, Done: done, Total: total})
		switch {
		case errors.Is(lr.err, proteins.ErrNotFound):
			logger.Warn("no variant data found", "id", id)
		case lr.err != nil:
			failed++
			logger.Error("variant lookup failed; assuming no variants", "id", id, "err", lr.err)
		default:
			features[lr.index] = lr.features
			logger.Debug("downloaded variant data", "id", id, "features", len(lr.features), "progress", done, "total", total)
		}
	}
	if failed > 0 {
		logger.Warn("some lookups failed", "failed", failed, "total", total)
	}
	return features, resolved, failed, ctx.Err()
}
