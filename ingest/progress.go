package ingest

import (
	"fmt"
	"io"
	"sync"
	"time"
)

// ProgressTracker reports ingestion progress to a writer, typically
// os.Stderr during CLI runs.
type ProgressTracker struct {
	writer         io.Writer
	total          int
	processed      int
	failed         int
	reportInterval int
	lastReported   int
	startTime      time.Time
	started        bool
	mu             sync.Mutex
}

// NewProgressTracker creates a tracker for total documents, reporting
// every reportInterval processed documents.
func NewProgressTracker(writer io.Writer, total, reportInterval int) *ProgressTracker {
	if reportInterval < 1 {
		reportInterval = 1
	}
	return &ProgressTracker{
		writer:         writer,
		total:          total,
		reportInterval: reportInterval,
	}
}

// Start begins tracking.
func (p *ProgressTracker) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.startTime = time.Now()
	p.started = true
	p.processed = 0
	p.failed = 0
	p.lastReported = 0
}

// Document records one processed document.
func (p *ProgressTracker) Document(failed bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.started {
		return
	}

	p.processed++
	if failed {
		p.failed++
	}
	if p.processed > p.total {
		p.processed = p.total
	}

	if p.processed-p.lastReported >= p.reportInterval {
		p.report()
		p.lastReported = p.processed
	}
}

// Finish emits a final report.
func (p *ProgressTracker) Finish() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.started {
		return
	}
	p.report()
	p.started = false
}

// report writes one progress line. Caller must hold the lock.
func (p *ProgressTracker) report() {
	if p.writer == nil {
		return
	}

	elapsed := time.Since(p.startTime)
	var rate float64
	if elapsed > 0 {
		rate = float64(p.processed) / elapsed.Seconds()
	}

	fmt.Fprintf(p.writer, "ingested %d/%d documents (%d failed, %.1f docs/s)\n",
		p.processed, p.total, p.failed, rate)
}
