package analysis

// Classification is the heuristic genre/mood label produced for a file,
// per spec §4.2.5. It is always produced (unlike tempo/key) since it
// degrades gracefully to "unknown"/"neutral" rather than carrying its own
// confidence gate.
type Classification struct {
	Genre           string
	GenreConfidence float32
	Mood            string
	MoodConfidence  float32
}

// Classify applies a small decision table over the already-computed
// statistics, tempo and key rather than re-deriving anything from raw
// events, mirroring the teacher's pattern-name switch in
// handlers/midi.go (buildTrack) generalized from "pick a drum pattern"
// to "pick a genre label".
func Classify(stats Stats, tempo Tempo, key Key) Classification {
	drumFraction := 0.0
	if stats.NoteCount > 0 {
		drumFraction = float64(stats.DrumNoteCount) / float64(stats.NoteCount)
	}

	genre, genreConf := classifyGenre(drumFraction, stats.PolyphonyMax, tempo.BPM)
	mood, moodConf := classifyMood(key.IsMinor, tempo.BPM, key.Confidence)

	return Classification{
		Genre:           genre,
		GenreConfidence: genreConf,
		Mood:            mood,
		MoodConfidence:  moodConf,
	}
}

func classifyGenre(drumFraction float64, polyphonyMax uint16, bpm float64) (string, float32) {
	switch {
	case drumFraction >= 0.3 && bpm >= 110:
		return "electronic", float32(clamp01(drumFraction))
	case polyphonyMax >= 6:
		return "orchestral", float32(clamp01(float64(polyphonyMax) / 12))
	case polyphonyMax <= 2 && drumFraction < 0.05:
		return "acoustic", 0.55
	case drumFraction > 0 && drumFraction < 0.3:
		return "rock_pop", 0.5
	default:
		return "unknown", 0.2
	}
}

func classifyMood(isMinor bool, bpm float64, keyConfidence float32) (string, float32) {
	if keyConfidence < MinKeyConfidence {
		if bpm >= 120 {
			return "energetic", 0.4
		}
		return "neutral", 0.3
	}
	switch {
	case isMinor && bpm < 90:
		return "melancholic", 0.6
	case isMinor && bpm >= 90:
		return "tense", 0.55
	case !isMinor && bpm >= 120:
		return "energetic", 0.6
	default:
		return "bright", 0.55
	}
}
