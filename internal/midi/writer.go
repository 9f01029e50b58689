package midi

import (
	"bytes"
	"encoding/binary"
)

// Write serializes a MidiFile back to Standard MIDI File bytes. Per spec
// §8 invariant 1, Parse(Write(m)) must reproduce the same event sequence,
// deltas and track count as m — Write never reorders events and always
// emits an explicit EndOfTrack at the end of every track, appending one
// (at delta 0) only when the track's last event is not already one.
func Write(f *MidiFile) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(headerMagic)
	binary.Write(&buf, binary.BigEndian, uint32(6))
	binary.Write(&buf, binary.BigEndian, f.Format)
	binary.Write(&buf, binary.BigEndian, uint16(len(f.Tracks)))
	binary.Write(&buf, binary.BigEndian, f.TicksPerQuarter)

	for _, track := range f.Tracks {
		trackBytes, err := writeTrack(f, track)
		if err != nil {
			return nil, err
		}
		buf.WriteString(trackMagic)
		binary.Write(&buf, binary.BigEndian, uint32(len(trackBytes)))
		buf.Write(trackBytes)
	}
	return buf.Bytes(), nil
}

func writeTrack(f *MidiFile, track Track) ([]byte, error) {
	var buf bytes.Buffer
	for _, te := range track.Events {
		buf.Write(encodeVarLen(te.Delta))
		if err := writeEvent(f, &buf, te.Event); err != nil {
			return nil, err
		}
	}
	if n := len(track.Events); n == 0 || track.Events[n-1].Event.Kind != EndOfTrack {
		buf.Write(encodeVarLen(0))
		if err := writeEvent(f, &buf, Event{Kind: EndOfTrack}); err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}

func writeEvent(f *MidiFile, buf *bytes.Buffer, e Event) error {
	switch e.Kind {
	case NoteOff:
		buf.WriteByte(0x80 | e.Channel)
		buf.WriteByte(e.Note)
		buf.WriteByte(e.Velocity)
	case NoteOn:
		buf.WriteByte(0x90 | e.Channel)
		buf.WriteByte(e.Note)
		buf.WriteByte(e.Velocity)
	case Aftertouch:
		buf.WriteByte(0xA0 | e.Channel)
		buf.WriteByte(e.Note)
		buf.WriteByte(e.Pressure)
	case ControlChange:
		buf.WriteByte(0xB0 | e.Channel)
		buf.WriteByte(e.Controller)
		buf.WriteByte(e.CCValue)
	case ProgramChange:
		buf.WriteByte(0xC0 | e.Channel)
		buf.WriteByte(e.Program)
	case ChannelAftertouch:
		buf.WriteByte(0xD0 | e.Channel)
		buf.WriteByte(e.Pressure)
	case PitchBend:
		buf.WriteByte(0xE0 | e.Channel)
		raw := uint16(int32(e.PitchValue) + 8192)
		buf.WriteByte(byte(raw & 0x7F))
		buf.WriteByte(byte((raw >> 7) & 0x7F))
	case TempoChange:
		buf.WriteByte(0xFF)
		buf.WriteByte(0x51)
		buf.WriteByte(0x03)
		us := e.TempoMicrosPerQuarter
		buf.WriteByte(byte(us >> 16))
		buf.WriteByte(byte(us >> 8))
		buf.WriteByte(byte(us))
	case TimeSignature:
		buf.WriteByte(0xFF)
		buf.WriteByte(0x58)
		buf.WriteByte(0x04)
		buf.WriteByte(e.TimeSigNumerator)
		buf.WriteByte(e.TimeSigDenomPow2)
		buf.WriteByte(e.TimeSigClocksPerClick)
		buf.WriteByte(e.TimeSig32ndsPerQuarter)
	case KeySignature:
		buf.WriteByte(0xFF)
		buf.WriteByte(0x59)
		buf.WriteByte(0x02)
		buf.WriteByte(byte(e.KeySharpsFlats))
		if e.KeyMinor {
			buf.WriteByte(1)
		} else {
			buf.WriteByte(0)
		}
	case Text:
		buf.WriteByte(0xFF)
		buf.WriteByte(e.MetaType)
		data := f.Payload(e)
		buf.Write(encodeVarLen(uint32(len(data))))
		buf.Write(data)
	case EndOfTrack:
		buf.WriteByte(0xFF)
		buf.WriteByte(0x2F)
		buf.WriteByte(0x00)
	case SysEx:
		buf.WriteByte(e.Status)
		data := f.Payload(e)
		buf.Write(encodeVarLen(uint32(len(data))))
		buf.Write(data)
	case Unknown:
		if e.Status == 0xFF {
			buf.WriteByte(0xFF)
			buf.WriteByte(e.MetaType)
			data := f.Payload(e)
			buf.Write(encodeVarLen(uint32(len(data))))
			buf.Write(data)
		} else {
			buf.WriteByte(e.Status)
		}
	default:
		return errEvent(0, "unknown event kind during write")
	}
	return nil
}
