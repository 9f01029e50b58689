// Package sanitize normalizes filenames for two different consumers: the
// general on-disk filename rule used by stage 2 (§4.5.2), and the
// stricter dialect-specific rule target MPC/Force devices expect when a
// file is exported to them (§6).
package sanitize

import "strings"

// Filename replaces every character outside [A-Za-z0-9_-+.] per spec
// §4.5.2: spaces become underscores, the reserved characters /\:*?"<>|
// become underscores, and runs of repeated underscores collapse to one.
func Filename(name string) string {
	var b strings.Builder
	b.Grow(len(name))
	for _, r := range name {
		switch {
		case r == ' ':
			b.WriteByte('_')
		case strings.ContainsRune(`/\:*?"<>|`, r):
			b.WriteByte('_')
		case isAllowed(r):
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	return collapseUnderscores(b.String())
}

func isAllowed(r rune) bool {
	switch {
	case r >= 'A' && r <= 'Z', r >= 'a' && r <= 'z', r >= '0' && r <= '9':
		return true
	case r == '_', r == '-', r == '+', r == '.':
		return true
	}
	return false
}

func collapseUnderscores(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	lastUnderscore := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c == '_' {
			if lastUnderscore {
				continue
			}
			lastUnderscore = true
		} else {
			lastUnderscore = false
		}
		b.WriteByte(c)
	}
	return b.String()
}

// MPCName applies the target-device dialect naming rule (§6): it starts
// from the same character-class normalization as Filename, then lowercases
// the result and caps its length at 16 characters (a constraint several
// Akai/MPC-family devices impose on sample/preset names), trimming any
// trailing separator left by the cut.
func MPCName(name string) string {
	normalized := strings.ToLower(Filename(name))
	const maxLen = 16
	if len(normalized) > maxLen {
		normalized = normalized[:maxLen]
	}
	return strings.TrimRight(normalized, "_-.")
}
