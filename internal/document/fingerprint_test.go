package document

import (
	"os"
	"path/filepath"
	"testing"
)

func TestFingerprintDeterministic(t *testing.T) {
	a := Fingerprint([]byte("hello world"))
	b := Fingerprint([]byte("hello world"))
	if a != b {
		t.Fatalf("same bytes produced different fingerprints: %s vs %s", a, b)
	}
	if len(a) != 64 {
		t.Fatalf("fingerprint length = %d, want 64 hex chars", len(a))
	}
	if c := Fingerprint([]byte("hello world!")); c == a {
		t.Fatal("different bytes produced the same fingerprint")
	}
}

func TestFingerprintKnownVector(t *testing.T) {
	// sha256("") is a fixed constant; guards against digest swaps.
	const empty = "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855"
	if got := Fingerprint(nil); got != empty {
		t.Fatalf("Fingerprint(nil) = %s, want %s", got, empty)
	}
	if got := FingerprintText(""); got != empty {
		t.Fatalf("FingerprintText(\"\") = %s, want %s", got, empty)
	}
}

func TestFingerprintFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "doc.txt")
	content := []byte("file content under test")
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatal(err)
	}

	got, err := FingerprintFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if want := Fingerprint(content); got != want {
		t.Fatalf("FingerprintFile = %s, want %s", got, want)
	}

	if _, err := FingerprintFile(filepath.Join(dir, "missing.txt")); err == nil {
		t.Fatal("expected error for missing file")
	}
}
