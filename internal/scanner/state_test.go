package scanner

import (
	"sort"
	"testing"
)

func sorted(s []string) []string {
	out := append([]string(nil), s...)
	sort.Strings(out)
	return out
}

func TestDiffSnapshotsClassification(t *testing.T) {
	prev := Snapshot{"a": "h1", "b": "h2"}
	curr := Snapshot{"a": "h1", "c": "h3"}

	d := DiffSnapshots(prev, curr)

	if got := sorted(d.New); len(got) != 1 || got[0] != "c" {
		t.Errorf("New = %v, want [c]", got)
	}
	if len(d.Modified) != 0 {
		t.Errorf("Modified = %v, want empty", d.Modified)
	}
	if got := sorted(d.Deleted); len(got) != 1 || got[0] != "b" {
		t.Errorf("Deleted = %v, want [b]", got)
	}
}

func TestDiffSnapshotsModified(t *testing.T) {
	prev := Snapshot{"a": "h1"}
	curr := Snapshot{"a": "h1-changed"}

	d := DiffSnapshots(prev, curr)
	if len(d.Modified) != 1 || d.Modified[0] != "a" {
		t.Errorf("Modified = %v, want [a]", d.Modified)
	}
	if len(d.New) != 0 || len(d.Deleted) != 0 {
		t.Errorf("unexpected new/deleted: %v / %v", d.New, d.Deleted)
	}
}

func TestDiffSnapshotsEmptyCases(t *testing.T) {
	if d := DiffSnapshots(Snapshot{}, Snapshot{}); !d.Empty() {
		t.Errorf("diff of empty snapshots = %+v", d)
	}
	same := Snapshot{"a": "h1", "b": "h2"}
	if d := DiffSnapshots(same, same); !d.Empty() {
		t.Errorf("diff of identical snapshots = %+v", d)
	}
}

func TestDiffSnapshotsFromEmpty(t *testing.T) {
	d := DiffSnapshots(Snapshot{}, Snapshot{"a": "h1", "b": "h2"})
	if len(d.New) != 2 {
		t.Errorf("New = %v, want both paths", d.New)
	}
	d = DiffSnapshots(Snapshot{"a": "h1", "b": "h2"}, Snapshot{})
	if len(d.Deleted) != 2 {
		t.Errorf("Deleted = %v, want both paths", d.Deleted)
	}
}
