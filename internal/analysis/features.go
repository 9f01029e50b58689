package analysis

import "github.com/dojevou/midi-pipeline/internal/midi"

// FeatureDim is the fixed length of the ML feature vector carried in each
// file's Metadata, per spec §4.2.4. The vector is not written to the
// musical_metadata row.
const FeatureDim = 128

// Features is the flat 128-dimensional feature vector fed to the
// heuristic classifier (and, downstream, to any external ML scoring this
// pipeline feeds). Dimensions 0-11 and 12-23 are the two pitch-class
// histograms (velocity-weighted and duration-weighted); the remaining
// slots hold scalar summary statistics, zero-padded beyond what is
// currently populated so new features can be appended without shifting
// existing indices.
type Features [FeatureDim]float64

// ExtractFeatures builds the feature vector for f from its already
// computed notes, stats, tempo and key. Computing these once in the
// analyze stage and passing them in avoids triple-walking the event
// stream.
func ExtractFeatures(f *midi.MidiFile, notes []Note, stats Stats, tempo Tempo, key Key) Features {
	var feat Features

	velocityHisto := [12]float64{}
	durationHisto := [12]float64{}
	var totalVelocity, totalDuration float64
	for _, n := range notes {
		pc := n.Pitch % 12
		velocityHisto[pc] += float64(n.Velocity)
		durationHisto[pc] += float64(n.DurationTick + 1)
		totalVelocity += float64(n.Velocity)
		totalDuration += float64(n.DurationTick + 1)
	}
	for i := 0; i < 12; i++ {
		if totalVelocity > 0 {
			feat[i] = velocityHisto[i] / totalVelocity
		}
		if totalDuration > 0 {
			feat[12+i] = durationHisto[i] / totalDuration
		}
	}

	feat[24] = clamp01(float64(stats.NoteCount) / 2000)
	feat[25] = clamp01(stats.VelocityAvg / 127)
	feat[26] = clamp01(float64(stats.PolyphonyMax) / 16)
	feat[27] = clamp01(tempo.BPM / 300)
	feat[28] = float64(key.Confidence)
	feat[29] = float64(tempo.Confidence)
	if stats.NoteCount > 0 {
		feat[30] = float64(stats.DrumNoteCount) / float64(stats.NoteCount)
	}
	feat[31] = clamp01((float64(stats.PitchHigh) - float64(stats.PitchLow)) / 127)
	if key.IsMinor {
		feat[32] = 1
	}
	return feat
}
