// Package analysis implements the per-file musical analyzers (C2): tempo,
// key, note statistics, the ML feature extractor and the heuristic
// classifier, grounded on the teacher's chord/MIDI math in
// handlers/midi.go generalized from "write one chord" to "analyze an
// arbitrary parsed file".
package analysis

import (
	"sort"

	"github.com/dojevou/midi-pipeline/internal/midi"
)

// Note is one sounded note reconstructed from a NoteOn/NoteOff pair,
// carrying its absolute start tick and duration for the key and tempo
// analyzers.
type Note struct {
	Channel      uint8
	Pitch        uint8
	Velocity     uint8
	StartTick    uint64
	DurationTick uint64
}

// timedAbs is an event tagged with its absolute tick, used to merge every
// track's timeline into one ordered stream.
type timedAbs struct {
	tick  uint64
	track int
	seq   int
	event midi.Event
}

// flatten merges every track of f into one tick-ordered stream. Ties
// (same absolute tick) preserve track order then in-track order, which is
// enough determinism for analysis purposes — the codec itself is the
// source of truth for wire-level ordering within a single track.
func flatten(f *midi.MidiFile) []timedAbs {
	var out []timedAbs
	for ti, track := range f.Tracks {
		var tick uint64
		for seq, te := range track.Events {
			tick += uint64(te.Delta)
			out = append(out, timedAbs{tick: tick, track: ti, seq: seq, event: te.Event})
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].tick != out[j].tick {
			return out[i].tick < out[j].tick
		}
		if out[i].track != out[j].track {
			return out[i].track < out[j].track
		}
		return out[i].seq < out[j].seq
	})
	return out
}

// ExtractNotes reconstructs the note list for a file by matching NoteOn
// events to the next NoteOff (or velocity-0 NoteOn, spec §3 invariant) on
// the same channel/pitch.
func ExtractNotes(f *midi.MidiFile) []Note {
	events := flatten(f)
	type key struct {
		channel, pitch uint8
	}
	pending := map[key][]int{} // indices into notes, awaiting their NoteOff
	var notes []Note

	for _, te := range events {
		e := te.event
		k := key{e.Channel, e.Note}
		switch {
		case e.IsNoteOn():
			notes = append(notes, Note{Channel: e.Channel, Pitch: e.Note, Velocity: e.Velocity, StartTick: te.tick})
			pending[k] = append(pending[k], len(notes)-1)
		case e.IsNoteOff():
			queue := pending[k]
			if len(queue) == 0 {
				continue
			}
			idx := queue[0]
			pending[k] = queue[1:]
			notes[idx].DurationTick = te.tick - notes[idx].StartTick
		}
	}
	return notes
}

// Stats holds the note-statistics block of spec §3 MusicalMetadata.
type Stats struct {
	NoteCount     uint32
	PitchLow      uint8
	PitchHigh     uint8
	VelocityLow   uint8
	VelocityHigh  uint8
	VelocityAvg   float64
	PolyphonyMax  uint16
	DrumNoteCount uint32
}

// ComputeStats walks the merged event timeline maintaining a per-tick
// active-note set keyed by (channel, pitch) with NoteOn-increment /
// NoteOff-decrement semantics, per spec §4.2.3.
func ComputeStats(f *midi.MidiFile) Stats {
	events := flatten(f)
	type key struct {
		channel, pitch uint8
	}
	active := map[key]int{}
	var activeCount, maxActive int

	var s Stats
	s.PitchLow = 255
	var velocitySum float64

	for _, te := range events {
		e := te.event
		switch {
		case e.IsNoteOn():
			k := key{e.Channel, e.Note}
			active[k]++
			activeCount++
			if activeCount > maxActive {
				maxActive = activeCount
			}
			s.NoteCount++
			if e.Channel == midi.DrumChannel {
				s.DrumNoteCount++
			}
			if e.Note < s.PitchLow {
				s.PitchLow = e.Note
			}
			if e.Note > s.PitchHigh {
				s.PitchHigh = e.Note
			}
			if s.NoteCount == 1 || e.Velocity < s.VelocityLow {
				s.VelocityLow = e.Velocity
			}
			if e.Velocity > s.VelocityHigh {
				s.VelocityHigh = e.Velocity
			}
			velocitySum += float64(e.Velocity)
		case e.IsNoteOff():
			k := key{e.Channel, e.Note}
			if active[k] > 0 {
				active[k]--
				activeCount--
			}
		}
	}
	if s.NoteCount > 0 {
		s.VelocityAvg = velocitySum / float64(s.NoteCount)
	} else {
		s.PitchLow = 0
	}
	s.PolyphonyMax = uint16(maxActive)
	return s
}

// NoteDensity returns notes per second given a note count and duration.
func NoteDensity(noteCount uint32, durationSeconds float64) float64 {
	if durationSeconds <= 0 {
		return 0
	}
	return float64(noteCount) / durationSeconds
}

// ComplexityScore is a bounded [0,100] heuristic combining pitch range,
// polyphony and note density into a single number, grounded on the
// teacher's pattern-complexity switch in handlers/midi.go (more
// simultaneous voices and faster passages read as "more complex").
func ComplexityScore(s Stats, density float64) float32 {
	pitchRange := float64(s.PitchHigh) - float64(s.PitchLow)
	if pitchRange < 0 {
		pitchRange = 0
	}
	score := 0.4*clamp01(pitchRange/48) + 0.35*clamp01(float64(s.PolyphonyMax)/8) + 0.25*clamp01(density/10)
	return float32(score * 100)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
