package feed

import "encoding/xml"

const (
	rssVersion = "2.0"
	itunesNS   = "http://www.itunes.com/dtds/podcast-1.0.dtd"
	generator  = "articast"
)

// Document is an RSS 2.0 feed with the iTunes podcast extensions.
type Document struct {
	XMLName  xml.Name `xml:"rss"`
	Version  string   `xml:"version,attr"`
	ITunesNS string   `xml:"xmlns:itunes,attr"`
	Channel  Channel  `xml:"channel"`
}

// Channel carries the podcast metadata and its episodes, newest first.
type Channel struct {
	Title          string          `xml:"title"`
	Description    string          `xml:"description"`
	Link           string          `xml:"link"`
	Language       string          `xml:"language"`
	LastBuildDate  string          `xml:"lastBuildDate"`
	Generator      string          `xml:"generator"`
	Author         string          `xml:"itunes:author,omitempty"`
	ManagingEditor string          `xml:"managingEditor,omitempty"`
	Owner          *Owner          `xml:"itunes:owner,omitempty"`
	ITunesImage    *ITunesImage    `xml:"itunes:image,omitempty"`
	Image          *Image          `xml:"image,omitempty"`
	Explicit       string          `xml:"itunes:explicit"`
	Category       *ITunesCategory `xml:"itunes:category,omitempty"`
	Items          []Item          `xml:"item"`
}

// Owner is the itunes:owner block.
type Owner struct {
	Name  string `xml:"itunes:name,omitempty"`
	Email string `xml:"itunes:email,omitempty"`
}

// ITunesImage is the channel artwork reference.
type ITunesImage struct {
	Href string `xml:"href,attr"`
}

// Image is the plain RSS image block.
type Image struct {
	URL   string `xml:"url"`
	Title string `xml:"title"`
	Link  string `xml:"link"`
}

// ITunesCategory is a top-level podcast directory category.
type ITunesCategory struct {
	Text string `xml:"text,attr"`
}

// Item is one episode.
type Item struct {
	Title       string    `xml:"title"`
	Description string    `xml:"description"`
	PubDate     string    `xml:"pubDate"`
	Enclosure   Enclosure `xml:"enclosure"`
	GUID        GUID      `xml:"guid"`
	Duration    string    `xml:"itunes:duration"`
	Explicit    string    `xml:"itunes:explicit"`
	Category    string    `xml:"category,omitempty"`
}

// Enclosure points at the audio file.
type Enclosure struct {
	URL    string `xml:"url,attr"`
	Length int64  `xml:"length,attr"`
	Type   string `xml:"type,attr"`
}

// GUID is the episode identifier. IsPermaLink is "false" for hashed values.
type GUID struct {
	IsPermaLink string `xml:"isPermaLink,attr,omitempty"`
	Value       string `xml:",chardata"`
}

func explicitValue(explicit bool) string {
	if explicit {
		return "true"
	}
	return "false"
}
