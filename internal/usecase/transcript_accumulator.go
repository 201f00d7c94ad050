package usecase

import (
	"strings"
	"sync"

	"voicebar/internal/domain"
)

// transcriptAccumulator reconstructs one ordered transcript from per-segment
// events that may arrive interleaved and out of order. Registration is
// idempotent: a segment id appears in the order exactly once and never moves
// after it is positioned.
type transcriptAccumulator struct {
	mu       sync.Mutex
	order    []string
	known    map[string]bool
	partials map[string]string
	finals   map[string]string
}

func newTranscriptAccumulator() *transcriptAccumulator {
	return &transcriptAccumulator{
		known:    make(map[string]bool),
		partials: make(map[string]string),
		finals:   make(map[string]string),
	}
}

// HandleCommitted registers the segment at its ordered position. Only
// committed events carry the previous-segment link.
func (a *transcriptAccumulator) HandleCommitted(itemID, previousItemID string) domain.TranscriptSnapshot {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.register(itemID, previousItemID)
	return a.snapshotLocked()
}

// HandleDelta appends incremental partial text to the segment, registering it
// at the end when unseen.
func (a *transcriptAccumulator) HandleDelta(itemID, delta string) domain.TranscriptSnapshot {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.register(itemID, "")
	a.partials[itemID] += delta
	return a.snapshotLocked()
}

// HandleCompleted sets the segment's final text. Final text is authoritative:
// it replaces, never appends to, the partial text.
func (a *transcriptAccumulator) HandleCompleted(itemID, text string) domain.TranscriptSnapshot {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.register(itemID, "")
	a.finals[itemID] = text
	return a.snapshotLocked()
}

// Reset clears all segment state; nothing carries across sessions.
func (a *transcriptAccumulator) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.order = nil
	a.known = make(map[string]bool)
	a.partials = make(map[string]string)
	a.finals = make(map[string]string)
}

// Snapshot returns the current preview and final transcripts.
func (a *transcriptAccumulator) Snapshot() domain.TranscriptSnapshot {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.snapshotLocked()
}

// register inserts an unknown segment directly after its predecessor when the
// predecessor is already known, else at the end. Greedy linked insertion is
// enough: segments commit near-sequentially and only rarely race.
func (a *transcriptAccumulator) register(itemID, previousItemID string) {
	if a.known[itemID] {
		return
	}
	a.known[itemID] = true

	if previousItemID != "" && a.known[previousItemID] {
		for i, id := range a.order {
			if id == previousItemID {
				a.order = append(a.order, "")
				copy(a.order[i+2:], a.order[i+1:])
				a.order[i+1] = itemID
				return
			}
		}
	}
	a.order = append(a.order, itemID)
}

func (a *transcriptAccumulator) snapshotLocked() domain.TranscriptSnapshot {
	var preview, final []string
	for _, id := range a.order {
		if text, ok := a.finals[id]; ok {
			if trimmed := strings.TrimSpace(text); trimmed != "" {
				preview = append(preview, trimmed)
				final = append(final, trimmed)
			}
			continue
		}
		if trimmed := strings.TrimSpace(a.partials[id]); trimmed != "" {
			preview = append(preview, trimmed)
		}
	}
	return domain.TranscriptSnapshot{
		Preview: strings.Join(preview, " "),
		Final:   strings.Join(final, " "),
	}
}
