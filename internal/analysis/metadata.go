package analysis

import "github.com/dojevou/midi-pipeline/internal/midi"

// Metadata is the full musical_metadata row produced by the analyze stage
// (C2/C5) for one file, per spec §3. BPM and Key fields are pointers so a
// low-confidence detection can be represented as "not persisted" instead
// of a fabricated zero value.
type Metadata struct {
	DurationSeconds   float64
	DurationTicks     uint32
	HasTempoVariation bool

	BPM           *float64
	BPMConfidence float32

	KeyTonic      *string
	KeyIsMinor    bool
	KeyConfidence float32

	TimeSigNumerator uint8
	TimeSigDenom     uint8

	Stats                Stats
	PitchRangeSemitones  uint8
	NoteDensity          float64
	ComplexityScore      float32
	Features             Features

	Instruments   []string
	HasPitchBend  bool
	HasCCMessages bool

	Harmony Harmony

	Genre           string
	GenreConfidence float32
	Mood            string
	MoodConfidence  float32
}

// Analyze runs every C2 analyzer over f and assembles the persisted
// metadata row, applying the MinBPMConfidence/MinKeyConfidence gates
// decided in SPEC_FULL.md: a detection below its threshold is computed
// (so the classifier can still use it) but not surfaced in the
// persisted BPM/KeyTonic fields.
func Analyze(f *midi.MidiFile) Metadata {
	notes := ExtractNotes(f)
	stats := ComputeStats(f)
	tempo := DetectTempo(f)
	key := DetectKey(f)
	duration := midi.Duration(f)
	density := NoteDensity(stats.NoteCount, duration)
	complexity := ComplexityScore(stats, density)
	classification := Classify(stats, tempo, key)
	features := ExtractFeatures(f, notes, stats, tempo, key)
	harmony := DetectHarmony(notes, duration)

	numerator, denom := timeSignature(f)
	instruments, hasPitchBend, hasCC := instrumentSummary(f)

	var pitchRange uint8
	if stats.PitchHigh >= stats.PitchLow {
		pitchRange = stats.PitchHigh - stats.PitchLow
	}

	m := Metadata{
		DurationSeconds:     duration,
		DurationTicks:       midi.DurationTicks(f),
		HasTempoVariation:   !tempo.IsConstant && len(tempoEvents(f)) > 1,
		BPMConfidence:       tempo.Confidence,
		KeyIsMinor:          key.IsMinor,
		KeyConfidence:       key.Confidence,
		TimeSigNumerator:    numerator,
		TimeSigDenom:        denom,
		Stats:               stats,
		PitchRangeSemitones: pitchRange,
		NoteDensity:         density,
		ComplexityScore:     complexity,
		Features:            features,
		Instruments:         instruments,
		HasPitchBend:        hasPitchBend,
		HasCCMessages:       hasCC,
		Harmony:             harmony,
		Genre:               classification.Genre,
		GenreConfidence:     classification.GenreConfidence,
		Mood:                classification.Mood,
		MoodConfidence:      classification.MoodConfidence,
	}
	if tempo.Confidence >= MinBPMConfidence {
		bpm := tempo.BPM
		m.BPM = &bpm
	}
	if key.Confidence >= MinKeyConfidence {
		tonic := key.Tonic
		m.KeyTonic = &tonic
	}
	return m
}

// timeSignature returns the file's first TimeSignature meta event,
// defaulting to (4,4) when absent, per spec §3.
func timeSignature(f *midi.MidiFile) (numerator, denom uint8) {
	for _, track := range f.Tracks {
		for _, te := range track.Events {
			if te.Event.Kind == midi.TimeSignature {
				return te.Event.TimeSigNumerator, 1 << te.Event.TimeSigDenomPow2
			}
		}
	}
	return 4, 4
}

// instrumentSummary collects the GM instrument names implied by every
// ProgramChange across the file, and reports whether any pitch-bend or
// control-change messages occur at all.
func instrumentSummary(f *midi.MidiFile) (instruments []string, hasPitchBend, hasCC bool) {
	seen := map[string]bool{}
	for _, track := range f.Tracks {
		for _, te := range track.Events {
			switch te.Event.Kind {
			case midi.ProgramChange:
				if name, ok := midi.GMInstrumentName(te.Event.Program); ok && !seen[name] {
					seen[name] = true
					instruments = append(instruments, name)
				}
			case midi.PitchBend:
				hasPitchBend = true
			case midi.ControlChange:
				hasCC = true
			case midi.Text:
				if te.Event.MetaType == 0x04 {
					name := f.Text(te.Event)
					if name != "" && !seen[name] {
						seen[name] = true
						instruments = append(instruments, name)
					}
				}
			}
		}
	}
	return instruments, hasPitchBend, hasCC
}
