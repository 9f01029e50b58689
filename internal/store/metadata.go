package store

import (
	"context"
	"encoding/json"

	"github.com/dojevou/midi-pipeline/internal/analysis"
)

// chordProgressionJSON renders the detected chord sequence as the JSON
// document spec §3's chord_progression field expects.
func chordProgressionJSON(h analysis.Harmony) ([]byte, error) {
	if len(h.Progression) == 0 {
		return nil, nil
	}
	type chord struct {
		Tick    uint64 `json:"tick"`
		Root    uint8  `json:"root"`
		Quality string `json:"quality"`
	}
	out := make([]chord, len(h.Progression))
	for i, c := range h.Progression {
		out[i] = chord{Tick: c.StartTick, Root: c.Root, Quality: c.Quality}
	}
	return json.Marshal(out)
}

func chordTypesList(h analysis.Harmony) []string {
	types := make([]string, 0, len(h.Types))
	for t := range h.Types {
		types = append(types, t)
	}
	return types
}

// UpsertMusicalMetadata writes the full musical_metadata row for fileID,
// replacing any existing row on conflict (spec §4.5.4). BPM and key are
// written as NULL when Analyze did not surface them (below-threshold
// confidence), per the Open Question decision in SPEC_FULL.md.
func (p *Pool) UpsertMusicalMetadata(ctx context.Context, fileID int64, m analysis.Metadata) error {
	var keyTonic *string
	var keyMinor *bool
	if m.KeyTonic != nil {
		keyTonic = m.KeyTonic
		minor := m.KeyIsMinor
		keyMinor = &minor
	}

	chordProgression, err := chordProgressionJSON(m.Harmony)
	if err != nil {
		return err
	}
	chordTypes := chordTypesList(m.Harmony)

	_, err = p.db.Exec(ctx, `
		INSERT INTO musical_metadata (
			file_id, duration_seconds, duration_ticks, has_tempo_variation,
			bpm, bpm_confidence,
			key_tonic, key_is_minor, key_confidence,
			time_sig_numerator, time_sig_denom,
			note_count, pitch_low, pitch_high, pitch_range_semitones,
			velocity_low, velocity_high, velocity_avg, polyphony_max,
			note_density, complexity_score,
			instruments, has_pitch_bend, has_cc_messages,
			chord_progression, chord_types, chord_change_rate, chord_complexity_score,
			genre, genre_confidence, mood, mood_confidence
		) VALUES (
			$1, $2, $3, $4,
			$5, $6,
			$7, $8, $9,
			$10, $11,
			$12, $13, $14, $15,
			$16, $17, $18, $19,
			$20, $21,
			$22, $23, $24,
			$25, $26, $27, $28,
			$29, $30, $31, $32
		)
		ON CONFLICT (file_id) DO UPDATE SET
			duration_seconds = EXCLUDED.duration_seconds,
			duration_ticks = EXCLUDED.duration_ticks,
			has_tempo_variation = EXCLUDED.has_tempo_variation,
			bpm = EXCLUDED.bpm,
			bpm_confidence = EXCLUDED.bpm_confidence,
			key_tonic = EXCLUDED.key_tonic,
			key_is_minor = EXCLUDED.key_is_minor,
			key_confidence = EXCLUDED.key_confidence,
			time_sig_numerator = EXCLUDED.time_sig_numerator,
			time_sig_denom = EXCLUDED.time_sig_denom,
			note_count = EXCLUDED.note_count,
			pitch_low = EXCLUDED.pitch_low,
			pitch_high = EXCLUDED.pitch_high,
			pitch_range_semitones = EXCLUDED.pitch_range_semitones,
			velocity_low = EXCLUDED.velocity_low,
			velocity_high = EXCLUDED.velocity_high,
			velocity_avg = EXCLUDED.velocity_avg,
			polyphony_max = EXCLUDED.polyphony_max,
			note_density = EXCLUDED.note_density,
			complexity_score = EXCLUDED.complexity_score,
			instruments = EXCLUDED.instruments,
			has_pitch_bend = EXCLUDED.has_pitch_bend,
			has_cc_messages = EXCLUDED.has_cc_messages,
			chord_progression = EXCLUDED.chord_progression,
			chord_types = EXCLUDED.chord_types,
			chord_change_rate = EXCLUDED.chord_change_rate,
			chord_complexity_score = EXCLUDED.chord_complexity_score,
			genre = EXCLUDED.genre,
			genre_confidence = EXCLUDED.genre_confidence,
			mood = EXCLUDED.mood,
			mood_confidence = EXCLUDED.mood_confidence
	`,
		fileID, m.DurationSeconds, m.DurationTicks, m.HasTempoVariation,
		m.BPM, m.BPMConfidence,
		keyTonic, keyMinor, m.KeyConfidence,
		m.TimeSigNumerator, m.TimeSigDenom,
		m.Stats.NoteCount, m.Stats.PitchLow, m.Stats.PitchHigh, m.PitchRangeSemitones,
		m.Stats.VelocityLow, m.Stats.VelocityHigh, m.Stats.VelocityAvg, m.Stats.PolyphonyMax,
		m.NoteDensity, m.ComplexityScore,
		m.Instruments, m.HasPitchBend, m.HasCCMessages,
		chordProgression, chordTypes, m.Harmony.ChangeRate, m.Harmony.ComplexityScore,
		m.Genre, m.GenreConfidence, m.Mood, m.MoodConfidence,
	)
	return err
}
