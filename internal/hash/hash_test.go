package hash

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// S4 / testable property 4: identical bytes hash identically, different
// bytes hash (almost certainly) differently.
func TestBytes_Deterministic(t *testing.T) {
	a := Bytes([]byte("hello midi"))
	b := Bytes([]byte("hello midi"))
	if a != b {
		t.Fatal("identical inputs produced different hashes")
	}
	c := Bytes([]byte("hello midj"))
	if a == c {
		t.Fatal("different inputs produced the same hash")
	}
}

func TestFile_MatchesBytes(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.mid")
	content := []byte{0x4D, 0x54, 0x68, 0x64, 0, 0, 0, 6, 0, 0, 0, 1, 0, 96}
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatal(err)
	}
	want := Bytes(content)
	got, err := File(path)
	if err != nil {
		t.Fatal(err)
	}
	if got != want {
		t.Fatalf("File hash %x != Bytes hash %x", got, want)
	}
}

func TestProperty_EqualBytesEqualHash(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("b1 == b2 implies hash(b1) == hash(b2)", prop.ForAll(
		func(b []byte) bool {
			return Bytes(b) == Bytes(append([]byte(nil), b...))
		},
		gen.SliceOf(gen.UInt8()),
	))
	properties.TestingRun(t)
}
