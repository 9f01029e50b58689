package sanitize

import (
	"strings"
	"testing"
)

func TestFilename_ReplacesReservedCharacters(t *testing.T) {
	got := Filename(`My Song: Take 2/Final*.mid`)
	want := "My_Song_Take_2_Final_.mid"
	if got != want {
		t.Fatalf("Filename() = %q, want %q", got, want)
	}
}

func TestFilename_CollapsesRepeatedUnderscores(t *testing.T) {
	got := Filename("a   b")
	if got != "a_b" {
		t.Fatalf("Filename() = %q, want a_b", got)
	}
}

func TestMPCName_LowercaseAndTruncated(t *testing.T) {
	got := MPCName("Super Long Drum Loop Name.mid")
	if len(got) > 16 {
		t.Fatalf("MPCName() length = %d, want <= 16", len(got))
	}
	if got != strings.ToLower(got) {
		t.Fatalf("MPCName() not lowercased: %q", got)
	}
}
