package source

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"articast/internal/config"
)

const (
	readingListStream = "user/-/state/com.google/reading-list"
	readStateStream   = "user/-/state/com.google/read"
	labelPrefix       = "user/-/label/"
)

// FreshRSS talks to the Google Reader compatible API of a FreshRSS instance.
type FreshRSS struct {
	apiBase    string
	username   string
	password   string
	unreadOnly bool
	client     *http.Client

	mu    sync.Mutex
	token string
}

// NewFreshRSS builds a client for cfg. A nil client uses a 30 second timeout.
func NewFreshRSS(cfg config.FreshRSS, client *http.Client) *FreshRSS {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &FreshRSS{
		apiBase:    strings.TrimRight(cfg.URL, "/") + "/api/greader.php",
		username:   cfg.Username,
		password:   cfg.Password,
		unreadOnly: cfg.UnreadOnly,
		client:     client,
	}
}

func (f *FreshRSS) Name() string { return config.SourceFreshRSS }

type greaderStream struct {
	Items []greaderItem `json:"items"`
}

type greaderItem struct {
	ID        string        `json:"id"`
	Title     string        `json:"title"`
	Published int64         `json:"published"`
	Content   *greaderText  `json:"content"`
	Summary   *greaderText  `json:"summary"`
	Canonical []greaderLink `json:"canonical"`
	Alternate []greaderLink `json:"alternate"`
}

type greaderText struct {
	Content string `json:"content"`
}

type greaderLink struct {
	Href string `json:"href"`
}

type greaderTags struct {
	Tags []struct {
		ID string `json:"id"`
	} `json:"tags"`
}

type greaderSubscriptions struct {
	Subscriptions []struct {
		ID         string `json:"id"`
		Title      string `json:"title"`
		URL        string `json:"url"`
		HTMLURL    string `json:"htmlUrl"`
		Categories []struct {
			Label string `json:"label"`
		} `json:"categories"`
	} `json:"subscriptions"`
}

// ListItems fetches up to limit items from category.Stream, honouring the
// unread_only setting.
func (f *FreshRSS) ListItems(ctx context.Context, category Category, limit int) ([]Item, error) {
	stream := normalizeStream(category.Stream)
	params := url.Values{}
	params.Set("output", "json")
	if limit > 0 {
		params.Set("n", strconv.Itoa(limit))
	}
	if f.unreadOnly {
		params.Set("xt", readStateStream)
	}

	var payload greaderStream
	if err := f.get(ctx, "reader/api/0/stream/contents/"+escapeStream(stream), params, &payload); err != nil {
		return nil, err
	}

	items := make([]Item, 0, len(payload.Items))
	for _, raw := range payload.Items {
		if strings.TrimSpace(raw.ID) == "" {
			continue
		}
		item := Item{
			Source:   config.SourceFreshRSS,
			ID:       raw.ID,
			Title:    strings.TrimSpace(raw.Title),
			Category: category.Name,
		}
		if raw.Published > 0 {
			item.Published = time.Unix(raw.Published, 0)
		}
		switch {
		case raw.Content != nil && strings.TrimSpace(raw.Content.Content) != "":
			item.Body = raw.Content.Content
		case raw.Summary != nil:
			item.Body = raw.Summary.Content
		}
		for _, links := range [][]greaderLink{raw.Canonical, raw.Alternate} {
			if len(links) > 0 && item.URL == "" {
				item.URL = links[0].Href
			}
		}
		items = append(items, item)
		if limit > 0 && len(items) == limit {
			break
		}
	}
	return items, nil
}

// Categories lists labels and feed subscriptions.
func (f *FreshRSS) Categories(ctx context.Context) ([]Listing, error) {
	params := url.Values{"output": {"json"}}

	var tags greaderTags
	if err := f.get(ctx, "reader/api/0/tag/list", params, &tags); err != nil {
		return nil, err
	}
	var listings []Listing
	for _, tag := range tags.Tags {
		if _, label, ok := strings.Cut(tag.ID, "/label/"); ok {
			listings = append(listings, Listing{Kind: "label", ID: tag.ID, Label: label})
		}
	}

	var subs greaderSubscriptions
	if err := f.get(ctx, "reader/api/0/subscription/list", params, &subs); err != nil {
		return nil, err
	}
	for _, sub := range subs.Subscriptions {
		labels := make([]string, 0, len(sub.Categories))
		for _, cat := range sub.Categories {
			labels = append(labels, cat.Label)
		}
		title := sub.Title
		if len(labels) > 0 {
			title += " (" + strings.Join(labels, ", ") + ")"
		}
		link := sub.URL
		if link == "" {
			link = sub.HTMLURL
		}
		listings = append(listings, Listing{Kind: "feed", ID: sub.ID, Label: title, URL: link})
	}
	return listings, nil
}

func (f *FreshRSS) get(ctx context.Context, path string, params url.Values, out any) error {
	for attempt := 0; attempt < 2; attempt++ {
		token, err := f.login(ctx)
		if err != nil {
			return err
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.apiBase+"/"+path+"?"+params.Encode(), nil)
		if err != nil {
			return unavailable(f.Name(), path, "build request", err)
		}
		req.Header.Set("Authorization", "GoogleLogin auth="+token)

		resp, err := f.client.Do(req)
		if err != nil {
			return unavailable(f.Name(), path, "request failed", err)
		}
		if resp.StatusCode == http.StatusUnauthorized && attempt == 0 {
			drain(resp)
			f.resetToken()
			continue
		}
		err = decodeJSON(resp, out)
		if err != nil {
			return unavailable(f.Name(), path, "", err)
		}
		return nil
	}
	return unavailable(f.Name(), path, "unauthorized after re-login", nil)
}

func (f *FreshRSS) login(ctx context.Context) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.token != "" {
		return f.token, nil
	}

	form := url.Values{"Email": {f.username}, "Passwd": {f.password}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, f.apiBase+"/accounts/ClientLogin", strings.NewReader(form.Encode()))
	if err != nil {
		return "", unavailable(f.Name(), "login", "build request", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := f.client.Do(req)
	if err != nil {
		return "", unavailable(f.Name(), "login", "request failed", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	if err != nil {
		return "", unavailable(f.Name(), "login", "read response", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", unavailable(f.Name(), "login", fmt.Sprintf("status %d", resp.StatusCode), nil)
	}
	for _, line := range strings.Split(string(body), "\n") {
		if token, ok := strings.CutPrefix(strings.TrimSpace(line), "Auth="); ok && token != "" {
			f.token = token
			return token, nil
		}
	}
	return "", unavailable(f.Name(), "login", "no Auth token in response", nil)
}

func (f *FreshRSS) resetToken() {
	f.mu.Lock()
	f.token = ""
	f.mu.Unlock()
}

func normalizeStream(stream string) string {
	stream = strings.TrimSpace(stream)
	switch stream {
	case "", "reading-list":
		return readingListStream
	}
	return stream
}

// escapeStream path-escapes each segment of a stream id while keeping the
// separators that the Google Reader API routes on.
func escapeStream(stream string) string {
	parts := strings.Split(stream, "/")
	for i, part := range parts {
		parts[i] = url.PathEscape(part)
	}
	return strings.Join(parts, "/")
}
