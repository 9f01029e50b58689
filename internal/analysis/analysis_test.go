package analysis

import (
	"testing"

	"github.com/dojevou/midi-pipeline/internal/midi"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

func noteOnOff(delta uint32, channel, note, velocity uint8, duration uint32) []midi.TimedEvent {
	return []midi.TimedEvent{
		{Delta: delta, Event: midi.Event{Kind: midi.NoteOn, Channel: channel, Note: note, Velocity: velocity}},
		{Delta: duration, Event: midi.Event{Kind: midi.NoteOff, Channel: channel, Note: note, Velocity: 0}},
	}
}

// S5 from spec §8: a file with an explicit 500000us tempo event detects
// 120 BPM with confidence >= 0.9.
func TestDetectTempo_FromTempoEvent(t *testing.T) {
	track := midi.Track{Events: []midi.TimedEvent{
		{Delta: 0, Event: midi.Event{Kind: midi.TempoChange, TempoMicrosPerQuarter: 500000}},
	}}
	track.Events = append(track.Events, noteOnOff(0, 0, 60, 100, 480)...)
	f := &midi.MidiFile{Format: 0, NumTracks: 1, TicksPerQuarter: 480, Tracks: []midi.Track{track}}

	got := DetectTempo(f)
	if got.BPM != 120 {
		t.Fatalf("BPM = %v, want 120", got.BPM)
	}
	if got.Confidence < 0.9 {
		t.Fatalf("confidence = %v, want >= 0.9", got.Confidence)
	}
	if !got.IsConstant {
		t.Fatal("expected IsConstant true for a single tempo event")
	}
}

// S6 from spec §8: no tempo events and a single note gives a BPM estimate
// (or none) with confidence below the persistence threshold.
func TestDetectTempo_LowConfidenceSingleNote(t *testing.T) {
	track := midi.Track{Events: noteOnOff(0, 0, 60, 100, 480)}
	f := &midi.MidiFile{Format: 0, NumTracks: 1, TicksPerQuarter: 480, Tracks: []midi.Track{track}}

	got := DetectTempo(f)
	if got.Confidence >= MinBPMConfidence {
		t.Fatalf("confidence = %v, want < %v for a single note with no tempo events", got.Confidence, MinBPMConfidence)
	}

	meta := Analyze(f)
	if meta.BPM != nil {
		t.Fatalf("expected BPM to be unset at low confidence, got %v", *meta.BPM)
	}
}

func TestDetectTempo_RegularEighthNotes(t *testing.T) {
	var events []midi.TimedEvent
	notes := []uint8{60, 62, 64, 65, 67, 69, 71, 72, 60, 62, 64, 65}
	for i, n := range notes {
		delta := uint32(0)
		if i > 0 {
			delta = 240
		}
		events = append(events, midi.TimedEvent{Delta: delta, Event: midi.Event{Kind: midi.NoteOn, Channel: 0, Note: n, Velocity: 90}})
		events = append(events, midi.TimedEvent{Delta: 10, Event: midi.Event{Kind: midi.NoteOff, Channel: 0, Note: n, Velocity: 0}})
	}
	f := &midi.MidiFile{Format: 0, NumTracks: 1, TicksPerQuarter: 480, Tracks: []midi.Track{{Events: events}}}

	got := DetectTempo(f)
	if got.BPM < minBPM || got.BPM > maxBPM {
		t.Fatalf("BPM = %v out of plausible range", got.BPM)
	}
}

func TestDetectKey_MajorScaleLeansMajor(t *testing.T) {
	cMajorScale := []uint8{60, 62, 64, 65, 67, 69, 71, 72}
	var events []midi.TimedEvent
	for _, n := range cMajorScale {
		events = append(events, noteOnOff(120, 0, n, 100, 100)...)
	}
	f := &midi.MidiFile{Format: 0, NumTracks: 1, TicksPerQuarter: 480, Tracks: []midi.Track{{Events: events}}}

	got := DetectKey(f)
	if got.Tonic != "C" {
		t.Fatalf("tonic = %q, want C", got.Tonic)
	}
	if got.IsMinor {
		t.Fatal("expected major for a pure C major scale")
	}
}

func TestComputeStats_PolyphonyAndRange(t *testing.T) {
	events := []midi.TimedEvent{
		{Delta: 0, Event: midi.Event{Kind: midi.NoteOn, Channel: 0, Note: 40, Velocity: 80}},
		{Delta: 0, Event: midi.Event{Kind: midi.NoteOn, Channel: 0, Note: 64, Velocity: 120}},
		{Delta: 10, Event: midi.Event{Kind: midi.NoteOff, Channel: 0, Note: 40, Velocity: 0}},
		{Delta: 0, Event: midi.Event{Kind: midi.NoteOff, Channel: 0, Note: 64, Velocity: 0}},
	}
	f := &midi.MidiFile{Format: 0, NumTracks: 1, TicksPerQuarter: 480, Tracks: []midi.Track{{Events: events}}}

	stats := ComputeStats(f)
	if stats.NoteCount != 2 {
		t.Fatalf("NoteCount = %d, want 2", stats.NoteCount)
	}
	if stats.PolyphonyMax != 2 {
		t.Fatalf("PolyphonyMax = %d, want 2", stats.PolyphonyMax)
	}
	if stats.PitchLow != 40 || stats.PitchHigh != 64 {
		t.Fatalf("pitch range = [%d,%d], want [40,64]", stats.PitchLow, stats.PitchHigh)
	}
	if stats.VelocityLow != 80 || stats.VelocityHigh != 120 {
		t.Fatalf("velocity range = [%d,%d], want [80,120]", stats.VelocityLow, stats.VelocityHigh)
	}
}

// Property: BPM detection, when confident, always lands in the musically
// plausible range (spec §8 testable property 2).
func TestProperty_TempoWithinPlausibleRange(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 50
	properties := gopter.NewProperties(parameters)

	properties.Property("confident BPM is within [20,400]", prop.ForAll(
		func(gapTicks uint8, repeats uint8) bool {
			gap := uint32(gapTicks)%470 + 10
			count := int(repeats)%20 + 3
			var events []midi.TimedEvent
			for i := 0; i < count; i++ {
				delta := uint32(0)
				if i > 0 {
					delta = gap
				}
				note := uint8(60 + i%12)
				events = append(events, midi.TimedEvent{Delta: delta, Event: midi.Event{Kind: midi.NoteOn, Channel: 0, Note: note, Velocity: 90}})
				events = append(events, midi.TimedEvent{Delta: 5, Event: midi.Event{Kind: midi.NoteOff, Channel: 0, Note: note, Velocity: 0}})
			}
			f := &midi.MidiFile{Format: 0, NumTracks: 1, TicksPerQuarter: 480, Tracks: []midi.Track{{Events: events}}}
			got := DetectTempo(f)
			if got.Confidence < MinBPMConfidence {
				return true
			}
			return got.BPM >= minBPM && got.BPM <= maxBPM
		},
		gen.UInt8(),
		gen.UInt8(),
	))
	properties.TestingRun(t)
}
