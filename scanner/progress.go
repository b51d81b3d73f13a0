package scanner

import (
	"fmt"
	"sync"
	"time"

	"photocons/logging"
	"photocons/types"
)

// ProgressTracker tracks progress of the extraction stage
type ProgressTracker struct {
	processed    int
	errors       int
	rawProcessed int
	ticker       *time.Ticker
	done         chan bool
	mu           sync.Mutex
	totalFiles   int
	rawFiles     int
	quiet        bool
}

// setupProgressTracker initializes the progress tracker
func setupProgressTracker(stats FileStats, quiet bool) *ProgressTracker {
	tracker := &ProgressTracker{
		ticker:     time.NewTicker(500 * time.Millisecond),
		done:       make(chan bool),
		totalFiles: stats.TotalFiles,
		rawFiles:   stats.RawFiles,
		quiet:      quiet,
	}

	// Start progress display goroutine
	go tracker.displayProgress()

	return tracker
}

// displayProgress shows the progress periodically
func (p *ProgressTracker) displayProgress() {
	for {
		select {
		case <-p.done:
			return
		case <-p.ticker.C:
			if p.quiet {
				continue
			}
			p.mu.Lock()
			if p.errors > 0 {
				fmt.Printf("\rProgress: %d/%d (Errors: %d, RAW: %d/%d)",
					p.processed, p.totalFiles, p.errors, p.rawProcessed, p.rawFiles)
			} else {
				fmt.Printf("\rProgress: %d/%d (RAW: %d/%d)",
					p.processed, p.totalFiles, p.rawProcessed, p.rawFiles)
			}
			p.mu.Unlock()
		}
	}
}

// record updates the tracker state for one extracted file
func (p *ProgressTracker) record(rec types.PhotoRecord, isRaw bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.processed++
	if isRaw {
		p.rawProcessed++
	}

	if rec.Unreadable {
		p.errors++
		if rec.Err != nil {
			logging.LogFileProcessed(rec.SourcePath, false, rec.Err.Error())
		}
	} else {
		logging.LogFileProcessed(rec.SourcePath, true, "")
	}
}

// counts returns the processed and error totals so far
func (p *ProgressTracker) counts() (processed, errors int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.processed, p.errors
}

// stop ends the progress tracking
func (p *ProgressTracker) stop() {
	p.ticker.Stop()
	p.done <- true
}
