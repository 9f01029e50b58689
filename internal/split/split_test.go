package split

import (
	"bytes"
	"testing"

	"github.com/dojevou/midi-pipeline/internal/midi"
)

func buildFormat1(t *testing.T, tpq uint16, tracks [][]byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	buf.WriteString("MThd")
	buf.Write([]byte{0, 0, 0, 6})
	buf.Write([]byte{0, 1}) // format 1
	n := len(tracks)
	buf.Write([]byte{byte(n >> 8), byte(n)})
	buf.Write([]byte{byte(tpq >> 8), byte(tpq)})
	for _, data := range tracks {
		buf.WriteString("MTrk")
		l := len(data)
		buf.Write([]byte{byte(l >> 24), byte(l >> 16), byte(l >> 8), byte(l)})
		buf.Write(data)
	}
	return buf.Bytes()
}

func TestSplit_Format0SingleTrack(t *testing.T) {
	trackData := []byte{
		0x00, 0x90, 0x3C, 0x64,
		0x00, 0x80, 0x3C, 0x00,
		0x00, 0xFF, 0x2F, 0x00,
	}
	var buf bytes.Buffer
	buf.WriteString("MThd")
	buf.Write([]byte{0, 0, 0, 6, 0, 0, 0, 1, 0, 0x60})
	buf.WriteString("MTrk")
	l := len(trackData)
	buf.Write([]byte{byte(l >> 24), byte(l >> 16), byte(l >> 8), byte(l)})
	buf.Write(trackData)

	outcome := Split(buf.Bytes())
	if outcome.NoTracksToSplit || outcome.Corrupt {
		t.Fatalf("unexpected failure outcome: %+v", outcome)
	}
	if len(outcome.Splits) != 1 {
		t.Fatalf("expected 1 split, got %d", len(outcome.Splits))
	}
}

func TestSplit_Format0NoNotesFails(t *testing.T) {
	trackData := []byte{0x00, 0xFF, 0x2F, 0x00}
	var buf bytes.Buffer
	buf.WriteString("MThd")
	buf.Write([]byte{0, 0, 0, 6, 0, 0, 0, 1, 0, 0x60})
	buf.WriteString("MTrk")
	l := len(trackData)
	buf.Write([]byte{byte(l >> 24), byte(l >> 16), byte(l >> 8), byte(l)})
	buf.Write(trackData)

	outcome := Split(buf.Bytes())
	if !outcome.NoTracksToSplit {
		t.Fatal("expected NoTracksToSplit for a track with no sounded notes")
	}
}

// S2 style scenario (spec §8): a format-1 file with a tempo-only track 0
// and two music tracks splits into two single-track format-0 outputs,
// each carrying the tempo context.
func TestSplit_Format1TwoTracksCarryTempoContext(t *testing.T) {
	tempoTrack := []byte{
		0x00, 0xFF, 0x51, 0x03, 0x07, 0xA1, 0x20, // 500000us
		0x00, 0xFF, 0x2F, 0x00,
	}
	track1 := []byte{
		0x00, 0xC0, 0x00, // ProgramChange 0 (Acoustic Grand Piano)
		0x00, 0x90, 0x3C, 0x64,
		0x60, 0x80, 0x3C, 0x00,
		0x00, 0xFF, 0x2F, 0x00,
	}
	track2 := []byte{
		0x00, 0x91, 0x40, 0x50,
		0x60, 0x81, 0x40, 0x00,
		0x00, 0xFF, 0x2F, 0x00,
	}
	raw := buildFormat1(t, 96, [][]byte{tempoTrack, track1, track2})

	outcome := Split(raw)
	if outcome.NoTracksToSplit || outcome.Corrupt {
		t.Fatalf("unexpected failure outcome: %+v", outcome)
	}
	if len(outcome.Splits) != 2 {
		t.Fatalf("expected 2 splits, got %d: %+v", len(outcome.Splits), outcome.Splits)
	}

	for _, s := range outcome.Splits {
		f, err := midi.Parse(s.Bytes)
		if err != nil {
			t.Fatalf("split output does not parse: %v", err)
		}
		if f.Format != 0 || len(f.Tracks) != 1 {
			t.Fatalf("split output not single-track format 0: format=%d tracks=%d", f.Format, len(f.Tracks))
		}
		last := f.Tracks[0].Events[len(f.Tracks[0].Events)-1]
		if last.Event.Kind != midi.EndOfTrack {
			t.Fatal("split output missing terminal EndOfTrack")
		}
		foundTempo := false
		for _, te := range f.Tracks[0].Events {
			if te.Event.Kind == midi.TempoChange {
				foundTempo = true
			}
		}
		if !foundTempo {
			t.Fatal("split output missing tempo context from track 0")
		}
	}

	if outcome.Splits[0].Instrument != "Acoustic Grand Piano" {
		t.Fatalf("instrument = %q, want Acoustic Grand Piano", outcome.Splits[0].Instrument)
	}
}

func TestSplit_RepairsMissingEndOfTrack(t *testing.T) {
	trackData := []byte{
		0x00, 0x90, 0x3C, 0x64,
		0x00, 0x80, 0x3C, 0x00,
		// no terminal EndOfTrack
	}
	var buf bytes.Buffer
	buf.WriteString("MThd")
	buf.Write([]byte{0, 0, 0, 6, 0, 0, 0, 1, 0, 0x60})
	buf.WriteString("MTrk")
	l := len(trackData)
	buf.Write([]byte{byte(l >> 24), byte(l >> 16), byte(l >> 8), byte(l)})
	buf.Write(trackData)

	outcome := Split(buf.Bytes())
	if outcome.Corrupt {
		t.Fatalf("expected repair to succeed, got Corrupt: %s", outcome.CorruptReason)
	}
	if !outcome.Repaired {
		t.Fatal("expected Repaired=true")
	}
	if len(outcome.Splits) != 1 {
		t.Fatalf("expected 1 split after repair, got %d", len(outcome.Splits))
	}
}
