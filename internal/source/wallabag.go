package source

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/oauth2"

	"articast/internal/config"
)

// Wallabag reads unread entries through the Wallabag REST API.
type Wallabag struct {
	baseURL  string
	username string
	password string
	oauth    *oauth2.Config
	client   *http.Client

	mu     sync.Mutex
	authed *http.Client
}

// NewWallabag builds a client for cfg. A nil client uses a 30 second timeout.
func NewWallabag(cfg config.Wallabag, client *http.Client) *Wallabag {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	base := strings.TrimRight(cfg.URL, "/")
	return &Wallabag{
		baseURL:  base,
		username: cfg.Username,
		password: cfg.Password,
		client:   client,
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			Endpoint: oauth2.Endpoint{
				TokenURL:  base + "/oauth/v2/token",
				AuthStyle: oauth2.AuthStyleInParams,
			},
		},
	}
}

func (w *Wallabag) Name() string { return config.SourceWallabag }

type wallabagEntries struct {
	Embedded struct {
		Items []wallabagEntry `json:"items"`
	} `json:"_embedded"`
}

type wallabagEntry struct {
	ID          int64  `json:"id"`
	Title       string `json:"title"`
	Content     string `json:"content"`
	URL         string `json:"url"`
	CreatedAt   string `json:"created_at"`
	PublishedAt string `json:"published_at"`
}

type wallabagTag struct {
	ID    int64  `json:"id"`
	Label string `json:"label"`
	Slug  string `json:"slug"`
}

var wallabagTimeLayouts = []string{
	"2006-01-02T15:04:05-0700",
	time.RFC3339,
	"2006-01-02 15:04:05",
}

// ListItems returns up to limit unread entries, newest first as the API
// delivers them. The category only labels the items.
func (w *Wallabag) ListItems(ctx context.Context, category Category, limit int) ([]Item, error) {
	params := url.Values{
		"archive": {"0"},
		"sort":    {"created"},
		"order":   {"desc"},
	}
	if limit > 0 {
		params.Set("perPage", strconv.Itoa(limit))
	}

	var payload wallabagEntries
	if err := w.get(ctx, "/api/entries.json", params, &payload); err != nil {
		return nil, err
	}

	items := make([]Item, 0, len(payload.Embedded.Items))
	for _, entry := range payload.Embedded.Items {
		if entry.ID == 0 {
			continue
		}
		published := parseWallabagTime(entry.PublishedAt)
		if published.IsZero() {
			published = parseWallabagTime(entry.CreatedAt)
		}
		items = append(items, Item{
			Source:    config.SourceWallabag,
			ID:        strconv.FormatInt(entry.ID, 10),
			Title:     strings.TrimSpace(entry.Title),
			Body:      entry.Content,
			URL:       entry.URL,
			Category:  category.Name,
			Published: published,
		})
		if limit > 0 && len(items) == limit {
			break
		}
	}
	return items, nil
}

// Categories lists the Wallabag tags.
func (w *Wallabag) Categories(ctx context.Context) ([]Listing, error) {
	var tags []wallabagTag
	if err := w.get(ctx, "/api/tags.json", nil, &tags); err != nil {
		return nil, err
	}
	listings := make([]Listing, 0, len(tags))
	for _, tag := range tags {
		listings = append(listings, Listing{Kind: "tag", ID: strconv.FormatInt(tag.ID, 10), Label: tag.Label})
	}
	return listings, nil
}

func (w *Wallabag) get(ctx context.Context, path string, params url.Values, out any) error {
	client, err := w.authorizedClient(ctx)
	if err != nil {
		return err
	}
	target := w.baseURL + path
	if len(params) > 0 {
		target += "?" + params.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return unavailable(w.Name(), path, "build request", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return unavailable(w.Name(), path, "request failed", err)
	}
	if resp.StatusCode == http.StatusUnauthorized {
		drain(resp)
		w.mu.Lock()
		w.authed = nil
		w.mu.Unlock()
		return unavailable(w.Name(), path, "token rejected", nil)
	}
	if err := decodeJSON(resp, out); err != nil {
		return unavailable(w.Name(), path, "", err)
	}
	return nil
}

// authorizedClient performs the password grant once and returns a client
// whose token source refreshes as needed.
func (w *Wallabag) authorizedClient(ctx context.Context) (*http.Client, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.authed != nil {
		return w.authed, nil
	}
	token, err := w.oauth.PasswordCredentialsToken(context.WithValue(ctx, oauth2.HTTPClient, w.client), w.username, w.password)
	if err != nil {
		return nil, unavailable(w.Name(), "authenticate", "password grant failed", err)
	}
	refreshCtx := context.WithValue(context.Background(), oauth2.HTTPClient, w.client)
	w.authed = w.oauth.Client(refreshCtx, token)
	w.authed.Timeout = w.client.Timeout
	return w.authed, nil
}

func parseWallabagTime(value string) time.Time {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}
	}
	for _, layout := range wallabagTimeLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t
		}
	}
	return time.Time{}
}
