package analysis

import (
	"sort"

	"github.com/dojevou/midi-pipeline/internal/midi"
)

// chordTemplates maps sorted interval-from-root sets (semitones above the
// lowest sounding pitch class) to a triad/seventh quality label, grounded
// on the teacher's chordSuffix table in handlers/api.go generalized from
// chord *names* typed by a user to chord *qualities* inferred from
// simultaneous notes.
var chordTemplates = []struct {
	intervals []uint8
	quality   string
}{
	{[]uint8{0, 4, 7}, "major"},
	{[]uint8{0, 3, 7}, "minor"},
	{[]uint8{0, 3, 6}, "diminished"},
	{[]uint8{0, 4, 8}, "augmented"},
	{[]uint8{0, 5, 7}, "sus4"},
	{[]uint8{0, 2, 7}, "sus2"},
	{[]uint8{0, 4, 7, 11}, "major7"},
	{[]uint8{0, 3, 7, 10}, "minor7"},
	{[]uint8{0, 4, 7, 10}, "dominant7"},
	{[]uint8{0, 3, 6, 9}, "diminished7"},
}

// ChordEvent is one simultaneity window classified to a chord quality (or
// "unknown" if it matches no template).
type ChordEvent struct {
	StartTick uint64
	Root      uint8
	Quality   string
}

// Harmony summarizes chord activity across a file for persistence as
// spec §3's chord_progression/chord_types/chord_change_rate/
// chord_complexity_score fields.
type Harmony struct {
	Progression    []ChordEvent
	Types          map[string]int
	ChangeRate     float64 // chord changes per second
	ComplexityScore float32 // distinct matched qualities as a share of all templates, scaled to [0,100]
}

// DetectHarmony groups notes into simultaneity windows by onset tick and
// classifies each window's pitch-class set against chordTemplates.
func DetectHarmony(notes []Note, durationSeconds float64) Harmony {
	windows := groupByOnset(notes)

	var progression []ChordEvent
	types := map[string]int{}
	for _, w := range windows {
		root, quality, ok := classify(w)
		if !ok {
			continue
		}
		progression = append(progression, ChordEvent{StartTick: w[0].StartTick, Root: root, Quality: quality})
		types[quality]++
	}

	var changeRate float64
	if durationSeconds > 0 {
		changeRate = float64(len(progression)) / durationSeconds
	}

	complexity := 0.0
	if len(progression) > 0 {
		complexity = float64(len(types)) / float64(len(chordTemplates))
	}

	return Harmony{
		Progression:     progression,
		Types:           types,
		ChangeRate:      changeRate,
		ComplexityScore: float32(clamp01(complexity) * 100),
	}
}

// groupByOnset buckets non-drum notes sharing the same start tick.
func groupByOnset(notes []Note) [][]Note {
	buckets := map[uint64][]Note{}
	var order []uint64
	for _, n := range notes {
		if n.Channel == midi.DrumChannel {
			continue
		}
		if _, seen := buckets[n.StartTick]; !seen {
			order = append(order, n.StartTick)
		}
		buckets[n.StartTick] = append(buckets[n.StartTick], n)
	}
	sort.Slice(order, func(i, j int) bool { return order[i] < order[j] })

	out := make([][]Note, 0, len(order))
	for _, tick := range order {
		out = append(out, buckets[tick])
	}
	return out
}

// classify matches a window's pitch-class set (relative to its lowest
// note) against chordTemplates. It requires at least 3 distinct pitch
// classes to be considered a chord at all.
func classify(window []Note) (root uint8, quality string, ok bool) {
	pcSet := map[uint8]bool{}
	lowest := uint8(255)
	for _, n := range window {
		pcSet[n.Pitch%12] = true
		if n.Pitch < lowest {
			lowest = n.Pitch
		}
	}
	if len(pcSet) < 3 {
		return 0, "", false
	}
	root = lowest % 12

	var intervals []uint8
	for pc := range pcSet {
		interval := (pc - root + 12) % 12
		intervals = append(intervals, interval)
	}
	sort.Slice(intervals, func(i, j int) bool { return intervals[i] < intervals[j] })

	for _, tmpl := range chordTemplates {
		if intervalsEqual(intervals, tmpl.intervals) {
			return root, tmpl.quality, true
		}
	}
	return root, "", false
}

func intervalsEqual(a, b []uint8) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
