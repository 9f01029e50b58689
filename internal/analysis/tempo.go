package analysis

import "github.com/dojevou/midi-pipeline/internal/midi"

// MinBPMConfidence is the threshold below which a detected BPM must not be
// persisted (Open Question decision, see SPEC_FULL.md).
const MinBPMConfidence = 0.3

// minBPM and maxBPM bound the musically plausible tempo range used to
// reject spurious onset-histogram modes (spec §8 testable property 2).
const (
	minBPM = 20.0
	maxBPM = 400.0
)

// Tempo is the result of tempo detection for one file.
type Tempo struct {
	BPM        float64
	Confidence float32
	IsConstant bool
}

// DetectTempo implements spec §4.2.1: if the file carries one or more
// TempoChange meta events, the first one (converted from microseconds per
// quarter note) is authoritative and IsConstant reports whether every
// tempo event in the file agrees. Otherwise tempo is estimated from the
// histogram of inter-onset intervals between NoteOn events, quantized to
// the nearest sixteenth note.
func DetectTempo(f *midi.MidiFile) Tempo {
	if tempos := tempoEvents(f); len(tempos) > 0 {
		bpm := 60000000.0 / float64(tempos[0])
		constant := true
		for _, t := range tempos[1:] {
			if t != tempos[0] {
				constant = false
				break
			}
		}
		return Tempo{BPM: bpm, Confidence: 0.95, IsConstant: constant}
	}
	return estimateTempoFromOnsets(f)
}

func tempoEvents(f *midi.MidiFile) []uint32 {
	var out []uint32
	for _, track := range f.Tracks {
		for _, te := range track.Events {
			if te.Event.Kind == midi.TempoChange {
				out = append(out, te.Event.TempoMicrosPerQuarter)
			}
		}
	}
	return out
}

// estimateTempoFromOnsets quantizes onset ticks to a sixteenth-note grid,
// converts inter-onset gaps to quarter-note units (so the histogram is
// independent of ticks-per-quarter resolution), and treats the modal gap
// as the beat period: BPM = 60 / modalGapInQuarterNotes. Only buckets that
// land in the plausible [minBPM,maxBPM] range are considered, and a tie
// within 1% of the leading bucket's count is broken in favor of the
// larger gap (the lower BPM), per the Open Question decision.
func estimateTempoFromOnsets(f *midi.MidiFile) Tempo {
	tpq := f.TicksPerQuarter
	if tpq == 0 {
		tpq = 480
	}
	grid := uint64(tpq) / 4
	if grid == 0 {
		grid = 1
	}

	var onsets []uint64
	for _, te := range flatten(f) {
		if te.event.IsNoteOn() {
			rounded := (te.tick + grid/2) / grid * grid
			if len(onsets) == 0 || onsets[len(onsets)-1] != rounded {
				onsets = append(onsets, rounded)
			}
		}
	}
	if len(onsets) < 2 {
		return Tempo{BPM: 0, Confidence: 0}
	}

	counts := map[uint64]int{}
	total := 0
	for i := 1; i < len(onsets); i++ {
		gap := onsets[i] - onsets[i-1]
		if gap == 0 {
			continue
		}
		counts[gap]++
		total++
	}
	if total == 0 {
		return Tempo{BPM: 0, Confidence: 0}
	}

	type bucket struct {
		gap   uint64
		count int
		bpm   float64
	}
	var candidates []bucket
	for gap, count := range counts {
		gapQuarters := float64(gap) / float64(tpq)
		bpm := 60.0 / gapQuarters
		if bpm < minBPM || bpm > maxBPM {
			continue
		}
		candidates = append(candidates, bucket{gap: gap, count: count, bpm: bpm})
	}
	if len(candidates) == 0 {
		return Tempo{BPM: 0, Confidence: 0}
	}

	best := candidates[0]
	for _, c := range candidates[1:] {
		if c.count > best.count {
			best = c
			continue
		}
		if c.count == best.count && c.gap > best.gap {
			best = c
			continue
		}
		if float64(best.count-c.count) <= 0.01*float64(best.count) && c.gap > best.gap {
			best = c
		}
	}

	confidence := float32(best.count) / float32(total)
	if confidence > 0.9 {
		confidence = 0.9
	}
	return Tempo{BPM: best.bpm, Confidence: confidence, IsConstant: false}
}
