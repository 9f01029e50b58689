package analysis

import (
	"math"

	"github.com/dojevou/midi-pipeline/internal/midi"
)

// MinKeyConfidence is the threshold below which a detected key must not be
// persisted (Open Question decision, see SPEC_FULL.md).
const MinKeyConfidence = 0.3

// pitchClassNames gives the conventional sharp spelling for each of the 12
// pitch classes, matching the teacher's chordRootIndex table inverted.
var pitchClassNames = [12]string{"C", "C#", "D", "D#", "E", "F", "F#", "G", "G#", "A", "A#", "B"}

// Krumhansl-Schmuckler key profiles, both listed from their tonic (index
// 0 is C for C major and C minor), then correlated against every rotation.
var majorProfile = [12]float64{6.35, 2.23, 3.48, 2.33, 4.38, 4.09, 2.52, 5.19, 2.39, 3.66, 2.29, 2.88}
var minorProfile = [12]float64{6.33, 2.68, 3.52, 5.38, 2.60, 3.53, 2.54, 4.75, 3.98, 2.69, 3.34, 3.17}

// Key is the result of key detection for one file.
type Key struct {
	Tonic      string
	IsMinor    bool
	Confidence float32
}

// pitchClassHistogram weights each pitch class by the total velocity*ticks
// duration of notes on non-drum channels, per spec §4.2.2.
func pitchClassHistogram(notes []Note) [12]float64 {
	var histo [12]float64
	for _, n := range notes {
		if n.Channel == midi.DrumChannel {
			continue
		}
		weight := float64(n.Velocity) * float64(n.DurationTick+1)
		histo[n.Pitch%12] += weight
	}
	return histo
}

// DetectKey correlates the file's pitch-class histogram against all 24
// rotations of the Krumhansl-Schmuckler major/minor profiles and returns
// the best match. Confidence is the simple ratio of the best correlation
// to the sum of the best and second-best, so a clear winner reads close to
// 1 and a near-tie reads close to 0.5.
func DetectKey(f *midi.MidiFile) Key {
	histo := pitchClassHistogram(ExtractNotes(f))

	type candidate struct {
		pc      int
		minor   bool
		quality float64
	}
	var candidates []candidate
	for pc := 0; pc < 12; pc++ {
		candidates = append(candidates,
			candidate{pc, false, correlate(histo, rotate(majorProfile, pc))},
			candidate{pc, true, correlate(histo, rotate(minorProfile, pc))},
		)
	}

	best, second := candidates[0], candidates[1]
	if second.quality > best.quality {
		best, second = second, best
	}
	for _, c := range candidates[2:] {
		if c.quality > best.quality {
			second = best
			best = c
		} else if c.quality > second.quality {
			second = c
		}
	}

	confidence := 0.5
	if denom := best.quality + second.quality; denom > 0 {
		confidence = best.quality / denom
	}
	return Key{Tonic: pitchClassNames[best.pc], IsMinor: best.minor, Confidence: float32(confidence)}
}

// rotate shifts a profile so its tonic weight (profile index 0) lands on
// index root.
func rotate(profile [12]float64, root int) [12]float64 {
	var out [12]float64
	for i := 0; i < 12; i++ {
		out[(i+root)%12] = profile[i]
	}
	return out
}

// correlate computes the Pearson correlation coefficient between the
// observed histogram and a key profile.
func correlate(histo, profile [12]float64) float64 {
	var sumH, sumP float64
	for i := 0; i < 12; i++ {
		sumH += histo[i]
		sumP += profile[i]
	}
	meanH, meanP := sumH/12, sumP/12

	var cov, varH, varP float64
	for i := 0; i < 12; i++ {
		dh := histo[i] - meanH
		dp := profile[i] - meanP
		cov += dh * dp
		varH += dh * dh
		varP += dp * dp
	}
	if varH == 0 || varP == 0 {
		return 0
	}
	return cov / math.Sqrt(varH*varP)
}
