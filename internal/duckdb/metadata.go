package duckdb

import (
	"fmt"
	"os"
	"sort"
	"time"
)

// FileFingerprint holds stat-based identity for a file.
type FileFingerprint struct {
	Path    string
	Size    int64
	ModTime time.Time
}

// StatFile creates a FileFingerprint from an on-disk file.
func StatFile(path string) (FileFingerprint, error) {
	info, err := os.Stat(path)
	if err != nil {
		return FileFingerprint{}, err
	}
	return FileFingerprint{
		Path:    path,
		Size:    info.Size(),
		ModTime: info.ModTime(),
	}, nil
}

// Input records which file played which role in a run (e.g. "annotation",
// "genome", "transcriptome").
type Input struct {
	Role string
	FileFingerprint
}

// StatInputs fingerprints every non-empty path in paths, keyed by role.
// The result is sorted by role.
func StatInputs(paths map[string]string) ([]Input, error) {
	inputs := make([]Input, 0, len(paths))
	for role, path := range paths {
		if path == "" {
			continue
		}
		fp, err := StatFile(path)
		if err != nil {
			return nil, fmt.Errorf("stat %s file: %w", role, err)
		}
		inputs = append(inputs, Input{Role: role, FileFingerprint: fp})
	}
	sort.Slice(inputs, func(i, j int) bool { return inputs[i].Role < inputs[j].Role })
	return inputs, nil
}
