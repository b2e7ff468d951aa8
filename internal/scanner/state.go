package scanner

// Snapshot maps absolute file paths to their content fingerprints, as
// observed in one scan pass.
type Snapshot map[string]string

// Diff is the classified difference between two snapshots.
type Diff struct {
	New      []string // paths absent from the previous snapshot
	Modified []string // paths present in both with a different fingerprint
	Deleted  []string // paths absent from the current snapshot
}

// Empty reports whether the diff contains no changes.
func (d Diff) Empty() bool {
	return len(d.New) == 0 && len(d.Modified) == 0 && len(d.Deleted) == 0
}

// DiffSnapshots classifies the change from prev to curr. Pure function;
// the scanner's dispatching is layered on top.
func DiffSnapshots(prev, curr Snapshot) Diff {
	var d Diff
	for path, hash := range curr {
		oldHash, ok := prev[path]
		switch {
		case !ok:
			d.New = append(d.New, path)
		case oldHash != hash:
			d.Modified = append(d.Modified, path)
		}
	}
	for path := range prev {
		if _, ok := curr[path]; !ok {
			d.Deleted = append(d.Deleted, path)
		}
	}
	return d
}
