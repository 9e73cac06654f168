package artifact

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"
)

const (
	dateLayout      = "20060102"
	timeLayout      = "150405"
	shortTimeLayout = "1504"
)

// Accepted container extensions, lowercase without the dot.
const (
	ExtMP3 = "mp3"
	ExtWAV = "wav"
)

var stampSuffix = regexp.MustCompile(`_(\d{8})_(\d{6}|\d{4})(?:-(\d+))?$`)

// Name is the parsed form of an artifact filename.
type Name struct {
	Tag   string
	Title string
	// Stamp is zero when the filename carries no timestamp suffix.
	Stamp time.Time
	Seq   int
	Ext   string
	// Stem is the filename without its extension.
	Stem string
}

// HasStamp reports whether the filename carried a timestamp suffix.
func (n Name) HasStamp() bool { return !n.Stamp.IsZero() }

// DisplayTitle returns the episode title shown in the feed.
func (n Name) DisplayTitle() string {
	if title := strings.TrimSpace(n.Title); title != "" {
		return title
	}
	return n.Stem
}

// Accepted reports whether ext (with or without dot, any case) is a supported
// audio container.
func Accepted(ext string) bool {
	switch strings.ToLower(strings.TrimPrefix(ext, ".")) {
	case ExtMP3, ExtWAV:
		return true
	default:
		return false
	}
}

// Parse splits filename into its grammar parts. Missing parts stay empty.
func Parse(filename string) Name {
	base := filepath.Base(filename)
	ext := filepath.Ext(base)
	n := Name{
		Ext:  strings.ToLower(strings.TrimPrefix(ext, ".")),
		Stem: strings.TrimSuffix(base, ext),
	}
	rest := n.Stem

	if strings.HasPrefix(rest, "[") {
		if end := strings.IndexByte(rest, ']'); end > 0 {
			n.Tag = strings.TrimSpace(rest[1:end])
			rest = strings.TrimLeft(rest[end+1:], " ")
		}
	}

	if m := stampSuffix.FindStringSubmatchIndex(rest); m != nil {
		date := rest[m[2]:m[3]]
		clock := rest[m[4]:m[5]]
		layout := dateLayout + timeLayout
		if len(clock) == 4 {
			layout = dateLayout + shortTimeLayout
		}
		if stamp, err := time.ParseInLocation(layout, date+clock, time.Local); err == nil {
			n.Stamp = stamp
			if m[6] >= 0 {
				n.Seq, _ = strconv.Atoi(rest[m[6]:m[7]])
			}
			rest = rest[:m[0]]
		}
	}

	n.Title = strings.TrimSpace(rest)
	return n
}

// Format renders n back into a filename. Titles and tags are emitted as is;
// callers sanitise them first.
func Format(n Name) string {
	var b strings.Builder
	if n.Tag != "" {
		b.WriteString("[")
		b.WriteString(n.Tag)
		b.WriteString("] ")
	}
	b.WriteString(n.Title)
	if n.HasStamp() {
		b.WriteString("_")
		b.WriteString(n.Stamp.Format(dateLayout))
		b.WriteString("_")
		b.WriteString(n.Stamp.Format(timeLayout))
		if n.Seq > 0 {
			fmt.Fprintf(&b, "-%d", n.Seq)
		}
	}
	if n.Ext != "" {
		b.WriteString(".")
		b.WriteString(n.Ext)
	}
	return b.String()
}
