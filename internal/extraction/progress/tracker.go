// Package progress tracks phase-weighted completion percentage across an
// extraction and emits ProgressEvent to a sink.
package progress

import (
	"math"
	"sync"
	"time"

	"github.com/specvital/worker/internal/domain/extraction"
)

// phaseWeights and phaseOrder are grounded verbatim on the original
// progress_tracker.py implementation's phase weighting.
var phaseOrder = []extraction.Phase{
	extraction.PhaseInit,
	extraction.PhaseLoadDoc,
	extraction.PhaseChunk,
	extraction.PhaseIdentifyDomain,
	extraction.PhaseFieldExtract,
	extraction.PhaseTemporalNormalize,
	extraction.PhaseResultMerging,
	extraction.PhaseDedup,
	extraction.PhaseFormat,
	extraction.PhaseCompletion,
	extraction.PhaseError,
}

var phaseWeights = map[extraction.Phase]float64{
	extraction.PhaseInit:              5,
	extraction.PhaseLoadDoc:           5,
	extraction.PhaseChunk:             5,
	extraction.PhaseIdentifyDomain:    10,
	extraction.PhaseFieldExtract:      50,
	extraction.PhaseTemporalNormalize: 5,
	extraction.PhaseResultMerging:     10,
	extraction.PhaseDedup:             5,
	extraction.PhaseFormat:            5,
	extraction.PhaseCompletion:        0,
	extraction.PhaseError:             0,
}

func basePercent(phase extraction.Phase) float64 {
	base := 0.0
	for _, p := range phaseOrder {
		if p == phase {
			return base
		}
		base += phaseWeights[p]
	}
	return base
}

// Tracker computes and emits overall completion percentage as the
// pipeline advances through phases.
type Tracker struct {
	mu        sync.Mutex
	sink      extraction.ProgressSink
	completed int
	total     int
}

// New returns a Tracker delivering events to sink. A nil sink is replaced
// with extraction.NoopProgressSink.
func New(sink extraction.ProgressSink) *Tracker {
	if sink == nil {
		sink = extraction.NoopProgressSink{}
	}
	return &Tracker{sink: sink}
}

// Update emits an event for phase with overall percent =
// base(phase) + weight(phase) * phaseProgress / 100, clamped to [0,100].
func (t *Tracker) Update(phase extraction.Phase, message string, phaseProgress float64) {
	if phaseProgress < 0 {
		phaseProgress = 0
	}
	if phaseProgress > 100 {
		phaseProgress = 100
	}

	percent := basePercent(phase) + phaseWeights[phase]*phaseProgress/100
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}

	t.sink.Emit(extraction.ProgressEvent{
		Phase:     phase,
		Message:   message,
		Percent:   int(math.Round(percent)),
		Timestamp: time.Now(),
	})
}

// SetFieldExtractTotal initializes the FieldExtract sub-counter, used by
// the Parallel Extraction Engine which reports completion per job rather
// than an explicit phase-progress percentage.
func (t *Tracker) SetFieldExtractTotal(total int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.total = total
	t.completed = 0
}

// AdvanceFieldExtract records one completed job and emits a
// proportional FieldExtract progress event.
func (t *Tracker) AdvanceFieldExtract(message string) {
	t.mu.Lock()
	t.completed++
	completed, total := t.completed, t.total
	t.mu.Unlock()

	phaseProgress := 100.0
	if total > 0 {
		phaseProgress = float64(completed) / float64(total) * 100
	}
	t.Update(extraction.PhaseFieldExtract, message, phaseProgress)
}
