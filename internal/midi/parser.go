package midi

import (
	"encoding/binary"
	"unicode/utf8"
)

const headerMagic = "MThd"
const trackMagic = "MTrk"

// Parse decodes a Standard MIDI File byte stream into a MidiFile. It
// implements the header and track algorithms of spec §4.1: big-endian
// fields throughout, running status carried across channel-voice events
// within a track, and a closed dispatch over meta/sysex/channel event
// bodies. Events whose payload is variable-length (text, sysex, unknown)
// are copied into the returned MidiFile's byte arena; the Event values
// reference that arena by offset and must not outlive it.
func Parse(b []byte) (*MidiFile, error) {
	if len(b) < 14 {
		return nil, errIncomplete(0, 14, len(b))
	}
	if string(b[0:4]) != headerMagic {
		return nil, errHeader("missing MThd magic")
	}
	headerLen := binary.BigEndian.Uint32(b[4:8])
	if headerLen != 6 {
		return nil, errHeader("header length field must be 6")
	}
	format := binary.BigEndian.Uint16(b[8:10])
	numTracks := binary.BigEndian.Uint16(b[10:12])
	tpq := binary.BigEndian.Uint16(b[12:14])
	if format > 2 {
		return nil, errUnsupportedFormat(int(format))
	}

	f := &MidiFile{
		Format:          format,
		NumTracks:       numTracks,
		TicksPerQuarter: tpq,
		Tracks:          make([]Track, 0, numTracks),
	}

	offset := 14
	for t := 0; t < int(numTracks); t++ {
		track, next, err := parseTrack(f, b, offset)
		if err != nil {
			return nil, err
		}
		f.Tracks = append(f.Tracks, track)
		offset = next
	}
	return f, nil
}

func parseTrack(f *MidiFile, b []byte, offset int) (Track, int, error) {
	if offset+8 > len(b) {
		return Track{}, 0, errIncomplete(offset, 8, len(b)-offset)
	}
	if string(b[offset:offset+4]) != trackMagic {
		return Track{}, 0, errTrack(offset, "missing MTrk magic")
	}
	length := int(binary.BigEndian.Uint32(b[offset+4 : offset+8]))
	payloadStart := offset + 8
	payloadEnd := payloadStart + length
	if payloadEnd > len(b) {
		return Track{}, 0, errIncomplete(payloadStart, length, len(b)-payloadStart)
	}

	track := Track{}
	pos := payloadStart
	var runningStatus byte
	haveRunning := false
	sawEndOfTrack := false

	for pos < payloadEnd {
		delta, n, err := decodeVarLen(b, pos)
		if err != nil {
			return Track{}, 0, err
		}
		pos += n
		if pos >= payloadEnd {
			return Track{}, 0, errTrack(offset, "truncated event after delta time")
		}

		var status byte
		statusByte := b[pos]
		if statusByte&0x80 != 0 {
			status = statusByte
			pos++
			if status < 0xF0 {
				runningStatus = status
				haveRunning = true
			}
		} else {
			if !haveRunning {
				return Track{}, 0, errEvent(pos, "no status byte and no running status")
			}
			status = runningStatus
			// data byte is not consumed here; event body parsing re-reads it.
		}

		ev, newPos, err := parseEventBody(f, b, pos, status)
		if err != nil {
			return Track{}, 0, err
		}
		pos = newPos

		track.Events = append(track.Events, TimedEvent{Delta: delta, Event: ev})
		if ev.Kind == EndOfTrack {
			sawEndOfTrack = true
			break
		}
	}

	if !sawEndOfTrack {
		return Track{}, 0, errTrack(offset, "track payload exhausted without EndOfTrack")
	}
	return track, payloadEnd, nil
}

// parseEventBody parses one event body at pos given its (possibly
// running-status-derived) status byte. pos points at the first data byte
// when running status supplied the status, or just past an explicit status
// byte otherwise.
func parseEventBody(f *MidiFile, b []byte, pos int, status byte) (Event, int, error) {
	hi := status & 0xF0
	channel := status & 0x0F

	need := func(n int) error {
		if pos+n > len(b) {
			return errIncomplete(pos, n, len(b)-pos)
		}
		return nil
	}

	switch {
	case status == 0xFF:
		return parseMeta(f, b, pos)
	case status == 0xF0 || status == 0xF7:
		return parseSysEx(f, b, pos, status)
	case hi == 0x80:
		if err := need(2); err != nil {
			return Event{}, 0, err
		}
		return Event{Kind: NoteOff, Channel: channel, Note: b[pos], Velocity: b[pos+1]}, pos + 2, nil
	case hi == 0x90:
		if err := need(2); err != nil {
			return Event{}, 0, err
		}
		return Event{Kind: NoteOn, Channel: channel, Note: b[pos], Velocity: b[pos+1]}, pos + 2, nil
	case hi == 0xA0:
		if err := need(2); err != nil {
			return Event{}, 0, err
		}
		return Event{Kind: Aftertouch, Channel: channel, Note: b[pos], Pressure: b[pos+1]}, pos + 2, nil
	case hi == 0xB0:
		if err := need(2); err != nil {
			return Event{}, 0, err
		}
		return Event{Kind: ControlChange, Channel: channel, Controller: b[pos], CCValue: b[pos+1]}, pos + 2, nil
	case hi == 0xC0:
		if err := need(1); err != nil {
			return Event{}, 0, err
		}
		return Event{Kind: ProgramChange, Channel: channel, Program: b[pos]}, pos + 1, nil
	case hi == 0xD0:
		if err := need(1); err != nil {
			return Event{}, 0, err
		}
		return Event{Kind: ChannelAftertouch, Channel: channel, Pressure: b[pos]}, pos + 1, nil
	case hi == 0xE0:
		if err := need(2); err != nil {
			return Event{}, 0, err
		}
		lsb, msb := b[pos], b[pos+1]
		value := int16((uint16(msb)<<7)|uint16(lsb)) - 8192
		return Event{Kind: PitchBend, Channel: channel, PitchValue: value}, pos + 2, nil
	default:
		return Event{Kind: Unknown, Status: status}, pos, nil
	}
}

func parseMeta(f *MidiFile, b []byte, pos int) (Event, int, error) {
	if pos+1 > len(b) {
		return Event{}, 0, errIncomplete(pos, 1, len(b)-pos)
	}
	metaType := b[pos]
	pos++
	length, n, err := decodeVarLen(b, pos)
	if err != nil {
		return Event{}, 0, err
	}
	pos += n
	if pos+int(length) > len(b) {
		return Event{}, 0, errIncomplete(pos, int(length), len(b)-pos)
	}
	data := b[pos : pos+int(length)]
	pos += int(length)

	switch metaType {
	case 0x2F:
		return Event{Kind: EndOfTrack, MetaType: metaType}, pos, nil
	case 0x51:
		if len(data) != 3 {
			return Event{}, 0, errEvent(pos, "tempo meta event must carry 3 bytes")
		}
		us := uint32(data[0])<<16 | uint32(data[1])<<8 | uint32(data[2])
		return Event{Kind: TempoChange, MetaType: metaType, TempoMicrosPerQuarter: us}, pos, nil
	case 0x58:
		if len(data) != 4 {
			return Event{}, 0, errEvent(pos, "time signature meta event must carry 4 bytes")
		}
		return Event{
			Kind:                   TimeSignature,
			MetaType:               metaType,
			TimeSigNumerator:       data[0],
			TimeSigDenomPow2:       data[1],
			TimeSigClocksPerClick:  data[2],
			TimeSig32ndsPerQuarter: data[3],
		}, pos, nil
	case 0x59:
		if len(data) != 2 {
			return Event{}, 0, errEvent(pos, "key signature meta event must carry 2 bytes")
		}
		return Event{
			Kind:           KeySignature,
			MetaType:       metaType,
			KeySharpsFlats: int8(data[0]),
			KeyMinor:       data[1] != 0,
		}, pos, nil
	case 0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0x08, 0x09, 0x0A, 0x0B, 0x0C, 0x0D, 0x0E, 0x0F:
		if !utf8.Valid(data) {
			return Event{}, 0, errUtf8(pos)
		}
		off, l := f.appendPayload(data)
		return Event{Kind: Text, MetaType: metaType, DataOffset: off, DataLen: l}, pos, nil
	default:
		off, l := f.appendPayload(data)
		return Event{Kind: Unknown, Status: 0xFF, MetaType: metaType, DataOffset: off, DataLen: l}, pos, nil
	}
}

func parseSysEx(f *MidiFile, b []byte, pos int, status byte) (Event, int, error) {
	length, n, err := decodeVarLen(b, pos)
	if err != nil {
		return Event{}, 0, err
	}
	pos += n
	if pos+int(length) > len(b) {
		return Event{}, 0, errIncomplete(pos, int(length), len(b)-pos)
	}
	data := b[pos : pos+int(length)]
	pos += int(length)
	off, l := f.appendPayload(data)
	return Event{Kind: SysEx, Status: status, DataOffset: off, DataLen: l}, pos, nil
}
