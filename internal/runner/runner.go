// Package runner iterates spreadsheet rows, drives the phone extractor for
// each one, and checkpoints results back to the workbook.
package runner

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/briandowns/spinner"
	"github.com/charmbracelet/log"
)

// Sentinels written into a row's Phone1 cell; a processed row never stays
// silently blank.
const (
	SentinelNoURL   = "No URL"
	SentinelNoPhone = "No phone found"
)

// Store is the slice of the workbook the runner needs. *sheet.Workbook
// satisfies it.
type Store interface {
	RowCount() int
	URL(row int) (string, error)
	SetPhones(row int, phone1, phone2 string) error
	Save() error
}

// Extractor produces up to two normalized numbers for one profile URL.
type Extractor interface {
	ExtractPhones(ctx context.Context, url string) ([]string, error)
}

// Config bounds the run window and pacing.
type Config struct {
	StartRow        int           // first 1-based row to process; min 2 (row 1 is headers)
	MaxRows         int           // 0 processes through the last row
	CheckpointEvery int           // rows between checkpoint saves; default 10
	DelayMin        time.Duration // randomized pause between rows
	DelayMax        time.Duration
	Progress        bool // show a spinner while processing
}

// Runner walks the configured row range. A single row's failure never aborts
// the batch; only the dataset itself going bad does.
type Runner struct {
	cfg     Config
	store   Store
	extract Extractor
	log     *log.Logger
}

func New(cfg Config, store Store, extract Extractor, logger *log.Logger) *Runner {
	if cfg.StartRow < 2 {
		cfg.StartRow = 2
	}
	if cfg.CheckpointEvery <= 0 {
		cfg.CheckpointEvery = 10
	}
	return &Runner{cfg: cfg, store: store, extract: extract, log: logger}
}

// Run processes the row range and returns after a final unconditional save.
// The deferred save also runs on early termination, so at most the rows since
// the last checkpoint are lost on interruption.
func (r *Runner) Run(ctx context.Context) (err error) {
	end := r.store.RowCount()
	if r.cfg.MaxRows > 0 && r.cfg.StartRow+r.cfg.MaxRows-1 < end {
		end = r.cfg.StartRow + r.cfg.MaxRows - 1
	}
	if end < r.cfg.StartRow {
		r.log.Warn("no rows in range", "start", r.cfg.StartRow, "rows", r.store.RowCount())
		return nil
	}

	defer func() {
		if saveErr := r.store.Save(); saveErr != nil {
			r.log.Error("final save failed", "err", saveErr)
			if err == nil {
				err = saveErr
			}
		}
	}()

	var spin *spinner.Spinner
	if r.cfg.Progress {
		spin = spinner.New(spinner.CharSets[9], 100*time.Millisecond)
		spin.Start()
		defer spin.Stop()
	}

	total := end - r.cfg.StartRow + 1
	processed := 0
	sinceCheckpoint := 0

	for row := r.cfg.StartRow; row <= end; row++ {
		if ctx.Err() != nil {
			r.log.Warn("run interrupted", "row", row)
			return ctx.Err()
		}
		if spin != nil {
			spin.Suffix = fmt.Sprintf(" row %d/%d", row, end)
		}

		if r.processRow(ctx, row) {
			processed++
			sinceCheckpoint++
			r.log.Info("processed profile", "done", processed, "of", total)
		}

		if sinceCheckpoint >= r.cfg.CheckpointEvery {
			if err := r.store.Save(); err != nil {
				r.log.Error("checkpoint save failed", "row", row, "err", err)
			} else {
				r.log.Info("progress saved", "records", processed)
			}
			sinceCheckpoint = 0
		}

		if row < end {
			r.pause(ctx)
		}
	}

	r.log.Info("run complete", "processed", processed)
	return nil
}

// processRow handles one row end to end and reports whether it counts toward
// the checkpoint cadence. Unexpected failures are recorded in the row itself
// and never propagate.
func (r *Runner) processRow(ctx context.Context, row int) (ok bool) {
	defer func() {
		if p := recover(); p != nil {
			r.log.Error("row processing failed", "row", row, "err", p)
			if setErr := r.store.SetPhones(row, fmt.Sprintf("Error: %v", p), ""); setErr != nil {
				r.log.Error("could not record row error", "row", row, "err", setErr)
			}
			ok = false
		}
	}()

	url, err := r.store.URL(row)
	if err != nil {
		r.log.Error("unreadable URL cell", "row", row, "err", err)
		if setErr := r.store.SetPhones(row, fmt.Sprintf("Error: %v", err), ""); setErr != nil {
			r.log.Error("could not record row error", "row", row, "err", setErr)
		}
		return false
	}
	if url == "" {
		r.log.Warn("no URL in row", "row", row)
		if setErr := r.store.SetPhones(row, SentinelNoURL, ""); setErr != nil {
			r.log.Error("could not record sentinel", "row", row, "err", setErr)
		}
		return false
	}

	url = ensureScheme(url)
	r.log.Info("processing row", "row", row, "url", url)

	phones, err := r.extract.ExtractPhones(ctx, url)
	if err != nil {
		// Session-level failure: this row stays empty, the run continues.
		r.log.Error("extraction failed", "row", row, "err", err)
		phones = nil
	}

	phone1 := SentinelNoPhone
	phone2 := ""
	if len(phones) > 0 {
		phone1 = phones[0]
	}
	if len(phones) > 1 {
		phone2 = phones[1]
	}
	if err := r.store.SetPhones(row, phone1, phone2); err != nil {
		r.log.Error("could not write phones", "row", row, "err", err)
		return false
	}
	return true
}

func ensureScheme(url string) string {
	if strings.HasPrefix(strings.ToLower(url), "http") {
		return url
	}
	return "https://" + strings.TrimLeft(url, "/")
}

func (r *Runner) pause(ctx context.Context) {
	d := r.cfg.DelayMin
	if r.cfg.DelayMax > r.cfg.DelayMin {
		d += time.Duration(rand.Int63n(int64(r.cfg.DelayMax - r.cfg.DelayMin)))
	}
	if d <= 0 {
		return
	}
	select {
	case <-time.After(d):
	case <-ctx.Done():
	}
}
