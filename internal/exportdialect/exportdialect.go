// Package exportdialect computes target-device filenames and bar counts
// for stage 6 (export), per spec §6's enumerated dialects.
package exportdialect

import (
	"fmt"
	"strings"

	"github.com/dojevou/midi-pipeline/internal/sanitize"
)

// Dialect is one of the enumerated target-device naming schemes.
type Dialect string

const (
	MPCOne    Dialect = "mpc-one"
	AkaiForce Dialect = "akai-force"
	Both      Dialect = "both"
)

// Dialects returns the concrete dialects Both expands to, or the single
// dialect itself otherwise.
func (d Dialect) Dialects() []Dialect {
	if d == Both {
		return []Dialect{MPCOne, AkaiForce}
	}
	return []Dialect{d}
}

// Bars computes the bar count for a clip of durationSeconds at bpm under
// timeSigNumerator beats per bar, clamped to [1,999] per spec §6.
func Bars(durationSeconds, bpm float64, timeSigNumerator uint8) int {
	if bpm <= 0 || timeSigNumerator == 0 {
		return 1
	}
	secondsPerBar := (60 / bpm) * float64(timeSigNumerator)
	bars := int(roundHalfAwayFromZero(durationSeconds / secondsPerBar))
	if bars < 1 {
		return 1
	}
	if bars > 999 {
		return 999
	}
	return bars
}

func roundHalfAwayFromZero(v float64) float64 {
	if v < 0 {
		return -roundHalfAwayFromZero(-v)
	}
	i := float64(int(v))
	if v-i >= 0.5 {
		return i + 1
	}
	return i
}

// keyToken renders a tonic/mode pair in the MPC/Force filename dialect:
// lower-case note name, '#'/'b' mapped to 's', and a '+'/'-' suffix for
// major/minor.
func keyToken(tonic string, isMinor bool) string {
	token := strings.ReplaceAll(tonic, "#", "s")
	token = strings.ReplaceAll(token, "b", "s")
	token = strings.ToLower(token)
	if isMinor {
		return token + "-"
	}
	return token + "+"
}

// Params is the metadata a Filename call needs, independent of dialect.
type Params struct {
	DurationSeconds  float64
	BPM              float64
	TimeSigNumerator uint8
	KeyTonic         string
	KeyIsMinor       bool
	Folder           string
	OriginalFilename string
}

// Filename renders the target filename for one dialect. "mpc-one" uses the
// template `{BARS}{KEY}{BPM}{FOLDER}{FILENAME}.mid`; "akai-force" is
// rendered with the same fields in a more conventional hyphenated form
// (Force has no published fixed-width naming convention comparable to the
// classic MPC pad-name limit, so it is not truncated the way MPCName is).
func Filename(d Dialect, p Params) (string, error) {
	bars := Bars(p.DurationSeconds, p.BPM, p.TimeSigNumerator)
	key := keyToken(p.KeyTonic, p.KeyIsMinor)
	bpmInt := int(p.BPM + 0.5)
	base := sanitize.Filename(strings.TrimSuffix(p.OriginalFilename, ".mid"))
	folder := sanitize.Filename(p.Folder)

	switch d {
	case MPCOne:
		// The 16-character MPC pad-name limit applies to the sample-name
		// token alone, not the whole filename: truncating the assembled
		// string would silently collide distinct files sharing the same
		// leading bars/key/bpm/folder prefix.
		padName := sanitize.MPCName(strings.TrimSuffix(p.OriginalFilename, ".mid"))
		name := fmt.Sprintf("%d%s%d%s%s", bars, key, bpmInt, folder, padName)
		return name + ".mid", nil
	case AkaiForce:
		return fmt.Sprintf("%03d-%s-%dbpm-%s-%s.mid", bars, key, bpmInt, folder, base), nil
	default:
		return "", fmt.Errorf("exportdialect: unknown dialect %q", d)
	}
}
