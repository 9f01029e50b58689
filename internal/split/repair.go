package split

import (
	"encoding/binary"

	"github.com/dojevou/midi-pipeline/internal/midi"
)

const (
	headerMagic = "MThd"
	trackMagic  = "MTrk"
	eotMeta     = "\xFF\x2F\x00"
)

// attemptRepair handles the two recognized corruption patterns from spec
// §4.3: a track missing its terminal EndOfTrack, and a track whose last
// event was truncated mid-write. Anything else is reported as Corrupt.
func attemptRepair(raw []byte, parseErr error) Outcome {
	pe, ok := parseErr.(*midi.ParseError)
	if !ok {
		return Outcome{Corrupt: true, CorruptReason: parseErr.Error()}
	}
	if pe.Kind != midi.ErrInvalidTrack && pe.Kind != midi.ErrIncompleteData {
		return Outcome{Corrupt: true, CorruptReason: parseErr.Error()}
	}

	repaired, description, ok := repairRawBytes(raw)
	if !ok {
		return Outcome{Corrupt: true, CorruptReason: parseErr.Error()}
	}

	f, err := midi.Parse(repaired)
	if err != nil {
		return Outcome{Corrupt: true, CorruptReason: parseErr.Error()}
	}

	outcome := splitParsed(f)
	if outcome.NoTracksToSplit || outcome.Corrupt {
		return outcome
	}
	outcome.Repaired = true
	outcome.RepairDescription = description
	return outcome
}

// repairRawBytes scans every MTrk chunk and, if its payload does not end
// with a terminal EndOfTrack meta event, truncates any dangling partial
// event and appends one, then rewrites the chunk's length prefix.
func repairRawBytes(raw []byte) (out []byte, description string, ok bool) {
	if len(raw) < 14 || string(raw[0:4]) != headerMagic {
		return nil, "", false
	}
	headerLen := int(binary.BigEndian.Uint32(raw[4:8]))
	pos := 8 + headerLen
	out = append(out, raw[:pos]...)

	repairedAny := false
	for pos+8 <= len(raw) {
		if string(raw[pos:pos+4]) != trackMagic {
			break
		}
		length := int(binary.BigEndian.Uint32(raw[pos+4 : pos+8]))
		payloadStart := pos + 8
		payloadEnd := payloadStart + length
		if payloadEnd > len(raw) {
			payloadEnd = len(raw)
		}
		payload := raw[payloadStart:payloadEnd]

		if hasTerminalEOT(payload) {
			out = append(out, raw[pos:payloadEnd]...)
		} else {
			fixed := truncateDanglingEvent(payload)
			fixed = append(fixed, 0x00)
			fixed = append(fixed, []byte(eotMeta)...)
			var lenBuf [4]byte
			binary.BigEndian.PutUint32(lenBuf[:], uint32(len(fixed)))
			out = append(out, []byte(trackMagic)...)
			out = append(out, lenBuf[:]...)
			out = append(out, fixed...)
			repairedAny = true
		}
		pos = payloadEnd
	}

	if !repairedAny {
		return nil, "", false
	}
	return out, "appended missing terminal EndOfTrack", true
}

func hasTerminalEOT(payload []byte) bool {
	return len(payload) >= 4 && string(payload[len(payload)-3:]) == eotMeta
}

// truncateDanglingEvent drops a trailing status byte (or meta/sysex
// prefix) that has no following data, which is the shape a write
// truncated mid-event takes. It is intentionally conservative: if it
// cannot identify a safe cut point it returns payload unchanged, relying
// on the appended EndOfTrack alone to make the track valid.
func truncateDanglingEvent(payload []byte) []byte {
	if len(payload) == 0 {
		return payload
	}
	last := payload[len(payload)-1]
	if last == 0xFF || last == 0xF0 || last&0x80 != 0 {
		return payload[:len(payload)-1]
	}
	return payload
}
