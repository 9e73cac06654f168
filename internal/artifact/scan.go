package artifact

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"time"

	"articast/internal/fileutil"
)

// Artifact is one audio file in the output directory.
type Artifact struct {
	Name     Name
	FileName string
	Path     string
	Size     int64
	ModTime  time.Time
}

// OrderTime is the instant used to place the artifact in the feed: the
// filename timestamp when present, otherwise the modification time.
func (a Artifact) OrderTime() time.Time {
	if a.Name.HasStamp() {
		return a.Name.Stamp
	}
	return a.ModTime
}

// Scan lists the accepted audio files directly inside dir. Dotfiles and
// in-flight temporary files are skipped. The result is unordered.
func Scan(dir string) ([]Artifact, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read output directory: %w", err)
	}
	artifacts := make([]Artifact, 0, len(entries))
	for _, entry := range entries {
		name := entry.Name()
		if fileutil.IsTempName(name) || !Accepted(filepath.Ext(name)) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return nil, fmt.Errorf("stat %s: %w", name, err)
		}
		if !info.Mode().IsRegular() {
			continue
		}
		artifacts = append(artifacts, Artifact{
			Name:     Parse(name),
			FileName: name,
			Path:     filepath.Join(dir, name),
			Size:     info.Size(),
			ModTime:  info.ModTime(),
		})
	}
	return artifacts, nil
}

// SortNewestFirst orders artifacts by OrderTime descending, breaking ties by
// filename descending so the order is stable across regenerations.
func SortNewestFirst(artifacts []Artifact) {
	sort.SliceStable(artifacts, func(i, j int) bool {
		ti, tj := artifacts[i].OrderTime(), artifacts[j].OrderTime()
		if !ti.Equal(tj) {
			return ti.After(tj)
		}
		return artifacts[i].FileName > artifacts[j].FileName
	})
}

// Available returns n, or n with the smallest sequence number that does not
// collide with an existing file in dir. Names without a timestamp cannot be
// disambiguated and fail when taken.
func Available(dir string, n Name) (Name, error) {
	for seq := n.Seq; seq < n.Seq+1000; seq++ {
		candidate := n
		candidate.Seq = seq
		_, err := os.Lstat(filepath.Join(dir, Format(candidate)))
		if errors.Is(err, fs.ErrNotExist) {
			return candidate, nil
		}
		if err != nil {
			return Name{}, fmt.Errorf("check artifact name: %w", err)
		}
		if !candidate.HasStamp() {
			break
		}
	}
	return Name{}, fmt.Errorf("no free artifact name for %q", Format(n))
}
