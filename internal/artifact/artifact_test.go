package artifact

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestParseGrammar(t *testing.T) {
	tests := []struct {
		name     string
		filename string
		tag      string
		title    string
		stamp    string
		seq      int
		ext      string
		display  string
	}{
		{
			name:     "tag and timestamp",
			filename: "[Tecnología] How to Brew Coffee_20240105_070000.mp3",
			tag:      "Tecnología",
			title:    "How to Brew Coffee",
			stamp:    "2024-01-05 07:00:00",
			ext:      "mp3",
			display:  "How to Brew Coffee",
		},
		{
			name:     "short clock",
			filename: "A_20240101_0700.mp3",
			title:    "A",
			stamp:    "2024-01-01 07:00:00",
			ext:      "mp3",
			display:  "A",
		},
		{
			name:     "no tag",
			filename: "Plain title_20240102_081530.wav",
			title:    "Plain title",
			stamp:    "2024-01-02 08:15:30",
			ext:      "wav",
			display:  "Plain title",
		},
		{
			name:     "no timestamp",
			filename: "[News] Morning briefing.MP3",
			tag:      "News",
			title:    "Morning briefing",
			ext:      "mp3",
			display:  "Morning briefing",
		},
		{
			name:     "neither",
			filename: "episode one.mp3",
			title:    "episode one",
			ext:      "mp3",
			display:  "episode one",
		},
		{
			name:     "sequence suffix",
			filename: "[News] Same_20240105_070000-2.mp3",
			tag:      "News",
			title:    "Same",
			stamp:    "2024-01-05 07:00:00",
			seq:      2,
			ext:      "mp3",
			display:  "Same",
		},
		{
			name:     "underscores in title",
			filename: "snake_case_title_20240105_070000.mp3",
			title:    "snake_case_title",
			stamp:    "2024-01-05 07:00:00",
			ext:      "mp3",
			display:  "snake_case_title",
		},
		{
			name:     "empty title falls back to stem",
			filename: "[News] _20240105_070000.mp3",
			tag:      "News",
			stamp:    "2024-01-05 07:00:00",
			ext:      "mp3",
			display:  "[News] _20240105_070000",
		},
		{
			name:     "invalid date kept in title",
			filename: "Report_20241399_070000.mp3",
			title:    "Report_20241399_070000",
			ext:      "mp3",
			display:  "Report_20241399_070000",
		},
		{
			name:     "unclosed bracket",
			filename: "[Broken title.mp3",
			title:    "[Broken title",
			ext:      "mp3",
			display:  "[Broken title",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Parse(tt.filename)
			if got.Tag != tt.tag {
				t.Fatalf("tag = %q, want %q", got.Tag, tt.tag)
			}
			if got.Title != tt.title {
				t.Fatalf("title = %q, want %q", got.Title, tt.title)
			}
			if tt.stamp == "" {
				if got.HasStamp() {
					t.Fatalf("unexpected stamp %v", got.Stamp)
				}
			} else if stamp := got.Stamp.Format("2006-01-02 15:04:05"); stamp != tt.stamp {
				t.Fatalf("stamp = %q, want %q", stamp, tt.stamp)
			}
			if got.Seq != tt.seq {
				t.Fatalf("seq = %d, want %d", got.Seq, tt.seq)
			}
			if got.Ext != tt.ext {
				t.Fatalf("ext = %q, want %q", got.Ext, tt.ext)
			}
			if got.DisplayTitle() != tt.display {
				t.Fatalf("display = %q, want %q", got.DisplayTitle(), tt.display)
			}
		})
	}
}

func TestFormatRoundTrip(t *testing.T) {
	names := []string{
		"[Tecnología] How to Brew Coffee_20240105_070000.mp3",
		"[News] Same_20240105_070000-3.wav",
		"Untagged_20231231_235959.mp3",
		"[News] No stamp.mp3",
	}
	for _, name := range names {
		if got := Format(Parse(name)); got != name {
			t.Fatalf("Format(Parse(%q)) = %q", name, got)
		}
	}
}

func TestScanFiltersAndSorts(t *testing.T) {
	dir := t.TempDir()
	base := time.Date(2024, 2, 1, 12, 0, 0, 0, time.Local)
	files := map[string]time.Time{
		"A_20240101_0700.mp3": base,
		"B_20240103_0700.mp3": base,
		"C_20240102_0700.mp3": base,
		"notes.txt":           base,
		".podcast.xml.tmp-1":  base,
		".hidden.mp3":         base,
		"manual episode.wav":  base.AddDate(-1, 0, 0),
	}
	for name, mtime := range files {
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, []byte("data"), 0o644); err != nil {
			t.Fatal(err)
		}
		if err := os.Chtimes(path, mtime, mtime); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.Mkdir(filepath.Join(dir, "folder.mp3"), 0o755); err != nil {
		t.Fatal(err)
	}

	artifacts, err := Scan(dir)
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	SortNewestFirst(artifacts)

	var got []string
	for _, a := range artifacts {
		got = append(got, a.FileName)
	}
	want := []string{"B_20240103_0700.mp3", "C_20240102_0700.mp3", "A_20240101_0700.mp3", "manual episode.wav"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("order mismatch: got %v, want %v", got, want)
		}
	}
	if artifacts[0].Size != 4 {
		t.Fatalf("expected size 4, got %d", artifacts[0].Size)
	}
}

func TestSortTieBreaksByFilenameDescending(t *testing.T) {
	stamp := time.Date(2024, 1, 5, 7, 0, 0, 0, time.Local)
	artifacts := []Artifact{
		{FileName: "a.mp3", ModTime: stamp},
		{FileName: "c.mp3", ModTime: stamp},
		{FileName: "b.mp3", ModTime: stamp},
	}
	SortNewestFirst(artifacts)
	if artifacts[0].FileName != "c.mp3" || artifacts[1].FileName != "b.mp3" || artifacts[2].FileName != "a.mp3" {
		t.Fatalf("unexpected tie-break order: %+v", artifacts)
	}
}

func TestAvailableAddsSequence(t *testing.T) {
	dir := t.TempDir()
	n := Name{Tag: "News", Title: "Same", Stamp: time.Date(2024, 1, 5, 7, 0, 0, 0, time.Local), Ext: ExtMP3}
	first, err := Available(dir, n)
	if err != nil {
		t.Fatal(err)
	}
	if first.Seq != 0 {
		t.Fatalf("expected no sequence for free name, got %d", first.Seq)
	}
	if err := os.WriteFile(filepath.Join(dir, Format(first)), nil, 0o644); err != nil {
		t.Fatal(err)
	}
	second, err := Available(dir, n)
	if err != nil {
		t.Fatal(err)
	}
	if Format(second) != "[News] Same_20240105_070000-1.mp3" {
		t.Fatalf("unexpected disambiguated name %q", Format(second))
	}
}
