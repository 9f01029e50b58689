package midi

// EventKind is the closed sum type over every event variant the codec
// understands (spec §3 Event). There is no inheritance: every Event value
// carries a Kind tag and only the fields relevant to that Kind are
// meaningful — callers switch on Kind, never on a dynamic type.
type EventKind uint8

const (
	NoteOff EventKind = iota
	NoteOn
	Aftertouch
	ControlChange
	ProgramChange
	ChannelAftertouch
	PitchBend
	TempoChange
	TimeSignature
	KeySignature
	Text
	EndOfTrack
	SysEx
	Unknown
)

// Event is one MIDI event. Only the fields relevant to Kind are populated;
// the rest hold their zero value. Variable-length payloads (SysEx data,
// text bytes) are not stored inline — they live in the owning MidiFile's
// byte arena and are addressed by DataOffset/DataLen, so an Event is a
// small fixed-size value even when its payload is large, and it must not
// outlive the MidiFile that owns the arena it points into.
type Event struct {
	Kind    EventKind
	Channel uint8 // 0..15, valid for channel-voice kinds only

	// Channel-voice payload.
	Note       uint8
	Velocity   uint8
	Pressure   uint8
	Controller uint8
	CCValue    uint8
	Program    uint8
	PitchValue int16 // centered at 0, range [-8192, 8191]

	// Meta payload.
	MetaType               uint8 // raw meta-event type byte (0x01..0x0F text family, 0x51, 0x58, 0x59, 0x2F)
	TempoMicrosPerQuarter  uint32
	TimeSigNumerator       uint8
	TimeSigDenomPow2       uint8
	TimeSigClocksPerClick  uint8
	TimeSig32ndsPerQuarter uint8
	KeySharpsFlats         int8 // -7..7
	KeyMinor               bool

	// Status byte as it appeared on the wire; populated for Unknown events
	// so a best-effort re-serialization can preserve it.
	Status uint8

	// Offsets into the owning MidiFile's byte arena. DataLen == 0 means no
	// payload. Used by Text (UTF-8 bytes), SysEx and Unknown (raw bytes).
	DataOffset int
	DataLen    int
}

// IsNoteOn reports whether the event is a NoteOn with velocity > 0 — the
// only case that counts as "a note" under spec §3's invariant that
// NoteOn-with-velocity-0 is semantically a NoteOff.
func (e Event) IsNoteOn() bool {
	return e.Kind == NoteOn && e.Velocity > 0
}

// IsNoteOff reports whether the event ends a note: an explicit NoteOff, or
// a NoteOn carrying velocity 0.
func (e Event) IsNoteOff() bool {
	return e.Kind == NoteOff || (e.Kind == NoteOn && e.Velocity == 0)
}

// TimedEvent pairs an Event with the number of ticks since the previous
// event in the same track (spec §3 Track).
type TimedEvent struct {
	Delta uint32
	Event Event
}

// Track is an ordered sequence of TimedEvent. Because Events is a plain Go
// slice, all events of one track already occupy one contiguous allocation
// — the arena-locality property spec §9 asks for falls out of using slices
// rather than individually-heap-allocated nodes.
type Track struct {
	Events []TimedEvent
}

// MidiFile is the parsed, in-memory representation of a Standard MIDI
// File. Data is the byte arena that Event.DataOffset/DataLen address into;
// Event values returned from Parse must not be retained past the
// MidiFile's lifetime.
type MidiFile struct {
	Format          uint16
	NumTracks       uint16
	TicksPerQuarter uint16
	Tracks          []Track
	Data            []byte
}

// Text returns the UTF-8 text or raw payload bytes for an event whose
// payload lives in the file's byte arena. An event with DataLen == 0
// (including every event kind that carries no payload) yields "".
func (f *MidiFile) Text(e Event) string {
	return string(f.Payload(e))
}

// Payload returns the raw bytes an event's DataOffset/DataLen addresses.
func (f *MidiFile) Payload(e Event) []byte {
	if e.DataLen == 0 {
		return nil
	}
	return f.Data[e.DataOffset : e.DataOffset+e.DataLen]
}

// appendPayload copies b into the file's byte arena and returns the
// offset/length an Event can use to reference it.
func (f *MidiFile) appendPayload(b []byte) (offset, length int) {
	offset = len(f.Data)
	f.Data = append(f.Data, b...)
	return offset, len(b)
}
