// Package split implements the track-splitting transformer (C3): it turns
// a multi-track MIDI file into one single-track file per musical part,
// preserving the tempo/meter/key context that lived in track 0 of a
// format-1 file.
package split

import "github.com/dojevou/midi-pipeline/internal/midi"

// Result is one single-track output of a split, along with the metadata
// extracted from it at split time (spec §4.3 step 3c).
type Result struct {
	TrackNumber   int
	TrackName     string
	Channel       uint8
	Instrument    string
	HasChannel    bool
	HasInstrument bool
	NoteCount     uint32
	Bytes         []byte
}

// Outcome is the tagged result of Split: exactly one of Splits,
// NoTracksToSplit or Corrupt is meaningful, matching spec §4.3's
// error/success variants. Repaired is only ever set alongside Splits, to
// mark a success that needed a byte-level repair first.
type Outcome struct {
	Splits           []Result
	NoTracksToSplit  bool
	Corrupt          bool
	CorruptReason    string
	Repaired         bool
	RepairDescription string
}

// isContextMeta reports whether k is one of the track-0 meta event kinds
// copied into every other split of a format-1 file, per spec §4.3 step 3b.
func isContextMeta(k midi.EventKind) bool {
	return k == midi.TempoChange || k == midi.TimeSignature || k == midi.KeySignature
}

// Split parses raw with C1 and runs C3 over the result. If parsing fails,
// raw is handed to the repair path, which re-derives a repaired variant
// from the original bytes.
func Split(raw []byte) Outcome {
	f, err := midi.Parse(raw)
	if err != nil {
		return attemptRepair(raw, err)
	}
	return splitParsed(f)
}

func splitParsed(f *midi.MidiFile) Outcome {
	if f.Format == 0 {
		if len(f.Tracks) != 1 || !trackHasNote(f.Tracks[0]) {
			return Outcome{NoTracksToSplit: true}
		}
		out, err := midi.Write(f)
		if err != nil {
			return Outcome{Corrupt: true, CorruptReason: err.Error()}
		}
		return Outcome{Splits: []Result{extractResult(0, f, f.Tracks[0], out)}}
	}

	var contextEvents []midi.TimedEvent
	if f.Format == 1 && len(f.Tracks) > 0 {
		for _, te := range f.Tracks[0].Events {
			if isContextMeta(te.Event.Kind) {
				contextEvents = append(contextEvents, te)
			}
		}
	}

	var results []Result
	for i, track := range f.Tracks {
		if isTempoOnlyTrack(track) {
			continue
		}
		if !trackHasNote(track) {
			continue
		}

		single := &midi.MidiFile{Format: 0, NumTracks: 1, TicksPerQuarter: f.TicksPerQuarter, Data: f.Data}
		var events []midi.TimedEvent
		if i != 0 {
			// Track 0's own split already carries its context events.
			events = append(events, contextEvents...)
		}
		events = append(events, track.Events...)
		if len(events) == 0 || events[len(events)-1].Event.Kind != midi.EndOfTrack {
			events = append(events, midi.TimedEvent{Delta: 0, Event: midi.Event{Kind: midi.EndOfTrack}})
		}
		single.Tracks = []midi.Track{{Events: events}}

		out, err := midi.Write(single)
		if err != nil {
			continue
		}
		results = append(results, extractResult(i, single, midi.Track{Events: events}, out))
	}

	if len(results) == 0 {
		return Outcome{NoTracksToSplit: true}
	}
	return Outcome{Splits: results}
}

// isTempoOnlyTrack reports whether every event in track is a meta event
// (no NoteOn/NoteOff), per spec §4.3 step 3a.
func isTempoOnlyTrack(track midi.Track) bool {
	for _, te := range track.Events {
		switch te.Event.Kind {
		case midi.NoteOn, midi.NoteOff:
			return false
		}
	}
	return true
}

func trackHasNote(track midi.Track) bool {
	for _, te := range track.Events {
		if te.Event.IsNoteOn() {
			return true
		}
	}
	return false
}

// extractResult computes the primary channel, instrument and track name
// metadata for one split output, per spec §4.3 step 3c.
func extractResult(trackNumber int, f *midi.MidiFile, track midi.Track, out []byte) Result {
	channelCounts := map[uint8]int{}
	var program uint8
	haveProgram := false
	var name string
	var noteCount uint32

	for _, te := range track.Events {
		e := te.Event
		switch e.Kind {
		case midi.NoteOn, midi.NoteOff, midi.ControlChange, midi.ProgramChange, midi.Aftertouch, midi.ChannelAftertouch, midi.PitchBend:
			channelCounts[e.Channel]++
		}
		if e.Kind == midi.NoteOn && e.Velocity > 0 {
			noteCount++
		}
		if e.Kind == midi.ProgramChange && !haveProgram {
			program = e.Program
			haveProgram = true
		}
		if e.Kind == midi.Text && name == "" && (e.MetaType == 0x03 || e.MetaType == 0x04) {
			name = trimText(f.Text(e))
		}
	}

	var primaryChannel uint8
	bestCount := -1
	for ch, count := range channelCounts {
		if count > bestCount || (count == bestCount && ch < primaryChannel) {
			primaryChannel = ch
			bestCount = count
		}
	}

	r := Result{
		TrackNumber: trackNumber,
		TrackName:   name,
		Channel:     primaryChannel,
		HasChannel:  bestCount >= 0,
		NoteCount:   noteCount,
		Bytes:       out,
	}
	if haveProgram {
		if instrument, ok := midi.GMInstrumentName(program); ok {
			r.Instrument = instrument
			r.HasInstrument = true
		}
	}
	return r
}

func trimText(s string) string {
	start, end := 0, len(s)
	for start < end && isSpace(s[start]) {
		start++
	}
	for end > start && isSpace(s[end-1]) {
		end--
	}
	return s[start:end]
}

func isSpace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r'
}
