package source

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"articast/internal/config"
	"articast/internal/services"
)

func newFreshRSSServer(t *testing.T, logins *int32, rejectFirst bool) *httptest.Server {
	t.Helper()
	var rejected atomic.Bool
	mux := http.NewServeMux()
	mux.HandleFunc("/api/greader.php/accounts/ClientLogin", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(logins, 1)
		if err := r.ParseForm(); err != nil {
			t.Errorf("parse form: %v", err)
		}
		if r.PostForm.Get("Email") != "alice" || r.PostForm.Get("Passwd") != "secret" {
			http.Error(w, "bad credentials", http.StatusForbidden)
			return
		}
		fmt.Fprintf(w, "SID=x\nLSID=y\nAuth=alice/token%d\n", atomic.LoadInt32(logins))
	})
	mux.HandleFunc("/api/greader.php/reader/api/0/stream/contents/", func(w http.ResponseWriter, r *http.Request) {
		if rejectFirst && !rejected.Swap(true) {
			http.Error(w, "expired", http.StatusUnauthorized)
			return
		}
		if r.Header.Get("Authorization") == "" {
			http.Error(w, "missing auth", http.StatusUnauthorized)
			return
		}
		if r.URL.EscapedPath() != "/api/greader.php/reader/api/0/stream/contents/user/-/label/Tecnolog%C3%ADa" {
			t.Errorf("unexpected stream path %q", r.URL.EscapedPath())
		}
		q := r.URL.Query()
		if q.Get("n") != "2" || q.Get("xt") != "user/-/state/com.google/read" || q.Get("output") != "json" {
			t.Errorf("unexpected query %v", q)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"items": []map[string]any{
				{
					"id":        "tag:google.com,2005:reader/item/2",
					"title":     " Second ",
					"published": 1704438000,
					"content":   map[string]string{"content": "<p>Body two</p>"},
					"alternate": []map[string]string{{"href": "https://example.com/2"}},
				},
				{
					"id":        "tag:google.com,2005:reader/item/1",
					"title":     "First",
					"published": 1704351600,
					"summary":   map[string]string{"content": "Summary one"},
				},
			},
		})
	})
	mux.HandleFunc("/api/greader.php/reader/api/0/tag/list", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"tags":[{"id":"user/-/state/com.google/starred"},{"id":"user/-/label/Tecnología"}]}`))
	})
	mux.HandleFunc("/api/greader.php/reader/api/0/subscription/list", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"subscriptions":[{"id":"feed/7","title":"Xataka","url":"https://xataka.com/feed","categories":[{"label":"Tecnología"}]}]}`))
	})
	return httptest.NewServer(mux)
}

func TestFreshRSSListItems(t *testing.T) {
	var logins int32
	srv := newFreshRSSServer(t, &logins, false)
	defer srv.Close()

	client := NewFreshRSS(config.FreshRSS{URL: srv.URL + "/", Username: "alice", Password: "secret", UnreadOnly: true}, srv.Client())
	items, err := client.ListItems(context.Background(), Category{Name: "Tecnología", Stream: "user/-/label/Tecnología"}, 2)
	if err != nil {
		t.Fatalf("ListItems: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(items))
	}
	second := items[0]
	if second.Title != "Second" || second.Body != "<p>Body two</p>" || second.URL != "https://example.com/2" || second.Category != "Tecnología" {
		t.Fatalf("unexpected first item %+v", second)
	}
	if second.Key() != (Key{Source: "freshrss", ID: "tag:google.com,2005:reader/item/2"}) {
		t.Fatalf("unexpected key %v", second.Key())
	}
	if items[1].Body != "Summary one" || !items[1].Published.Equal(time.Unix(1704351600, 0)) {
		t.Fatalf("unexpected second item %+v", items[1])
	}

	OldestFirst(items)
	if items[0].Title != "First" {
		t.Fatalf("expected oldest first, got %q", items[0].Title)
	}

	if _, err := client.ListItems(context.Background(), Category{Name: "Tecnología", Stream: "user/-/label/Tecnología"}, 2); err != nil {
		t.Fatal(err)
	}
	if atomic.LoadInt32(&logins) != 1 {
		t.Fatalf("expected token reuse, got %d logins", logins)
	}
}

func TestFreshRSSRelogsOnUnauthorized(t *testing.T) {
	var logins int32
	srv := newFreshRSSServer(t, &logins, true)
	defer srv.Close()

	client := NewFreshRSS(config.FreshRSS{URL: srv.URL, Username: "alice", Password: "secret", UnreadOnly: true}, srv.Client())
	if _, err := client.ListItems(context.Background(), Category{Name: "Tecnología", Stream: "user/-/label/Tecnología"}, 2); err != nil {
		t.Fatalf("ListItems: %v", err)
	}
	if atomic.LoadInt32(&logins) != 2 {
		t.Fatalf("expected a second login after 401, got %d", logins)
	}
}

func TestFreshRSSBadCredentials(t *testing.T) {
	var logins int32
	srv := newFreshRSSServer(t, &logins, false)
	defer srv.Close()

	client := NewFreshRSS(config.FreshRSS{URL: srv.URL, Username: "alice", Password: "wrong"}, srv.Client())
	_, err := client.ListItems(context.Background(), Category{Name: "General"}, 5)
	if !errors.Is(err, services.ErrSourceUnavailable) {
		t.Fatalf("expected source unavailable, got %v", err)
	}
}

func TestFreshRSSCategories(t *testing.T) {
	var logins int32
	srv := newFreshRSSServer(t, &logins, false)
	defer srv.Close()

	client := NewFreshRSS(config.FreshRSS{URL: srv.URL, Username: "alice", Password: "secret"}, srv.Client())
	listings, err := client.Categories(context.Background())
	if err != nil {
		t.Fatalf("Categories: %v", err)
	}
	if len(listings) != 2 {
		t.Fatalf("expected label + feed, got %+v", listings)
	}
	if listings[0].Kind != "label" || listings[0].Label != "Tecnología" {
		t.Fatalf("unexpected label %+v", listings[0])
	}
	if listings[1].Kind != "feed" || listings[1].ID != "feed/7" || listings[1].Label != "Xataka (Tecnología)" {
		t.Fatalf("unexpected feed %+v", listings[1])
	}
}

func TestNormalizeStream(t *testing.T) {
	if got := normalizeStream(""); got != readingListStream {
		t.Fatalf("empty stream = %q", got)
	}
	if got := normalizeStream("reading-list"); got != readingListStream {
		t.Fatalf("reading-list = %q", got)
	}
	if got := escapeStream("user/-/label/Mi Lista"); got != "user/-/label/Mi%20Lista" {
		t.Fatalf("escapeStream = %q", got)
	}
}

func newWallabagServer(t *testing.T, tokens *int32) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/oauth/v2/token", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(tokens, 1)
		if err := r.ParseForm(); err != nil {
			t.Errorf("parse form: %v", err)
		}
		if r.PostForm.Get("grant_type") != "password" || r.PostForm.Get("client_id") != "cid" ||
			r.PostForm.Get("client_secret") != "csecret" || r.PostForm.Get("username") != "bob" {
			http.Error(w, `{"error":"invalid_grant"}`, http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"wb-token","token_type":"bearer","expires_in":3600,"refresh_token":"r"}`))
	})
	mux.HandleFunc("/api/entries.json", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer wb-token" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		q := r.URL.Query()
		if q.Get("archive") != "0" || q.Get("perPage") != "3" || q.Get("sort") != "created" || q.Get("order") != "desc" {
			t.Errorf("unexpected query %v", q)
		}
		_, _ = w.Write([]byte(`{"_embedded":{"items":[
			{"id":12,"title":"Newer","content":"<p>Newer body</p>","url":"https://a.example/12","created_at":"2024-01-05T07:00:00+0100"},
			{"id":11,"title":"Older","content":"<p>Older body</p>","url":"https://a.example/11","created_at":"2024-01-04T07:00:00+0100","published_at":"2024-01-03T07:00:00+0100"}
		]}}`))
	})
	mux.HandleFunc("/api/tags.json", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[{"id":3,"label":"podcast","slug":"podcast"}]`))
	})
	return httptest.NewServer(mux)
}

func TestWallabagListItems(t *testing.T) {
	var tokens int32
	srv := newWallabagServer(t, &tokens)
	defer srv.Close()

	client := NewWallabag(config.Wallabag{
		URL: srv.URL, ClientID: "cid", ClientSecret: "csecret", Username: "bob", Password: "pw",
	}, srv.Client())
	items, err := client.ListItems(context.Background(), Category{Name: "Wallabag"}, 3)
	if err != nil {
		t.Fatalf("ListItems: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(items))
	}
	if items[0].Key() != (Key{Source: "wallabag", ID: "12"}) || items[0].Category != "Wallabag" || items[0].Body != "<p>Newer body</p>" {
		t.Fatalf("unexpected item %+v", items[0])
	}
	want := time.Date(2024, 1, 3, 6, 0, 0, 0, time.UTC)
	if !items[1].Published.Equal(want) {
		t.Fatalf("expected published_at preferred, got %v", items[1].Published)
	}

	if _, err := client.Categories(context.Background()); err != nil {
		t.Fatalf("Categories: %v", err)
	}
	if atomic.LoadInt32(&tokens) != 1 {
		t.Fatalf("expected a single password grant, got %d", tokens)
	}
}

func TestWallabagAuthFailure(t *testing.T) {
	var tokens int32
	srv := newWallabagServer(t, &tokens)
	defer srv.Close()

	client := NewWallabag(config.Wallabag{URL: srv.URL, ClientID: "other", ClientSecret: "csecret", Username: "bob"}, srv.Client())
	_, err := client.ListItems(context.Background(), Category{Name: "Wallabag"}, 3)
	if !errors.Is(err, services.ErrSourceUnavailable) {
		t.Fatalf("expected source unavailable, got %v", err)
	}
}

func TestFromConfig(t *testing.T) {
	cfg := config.Default()
	cfg.FreshRSS.Enabled = true
	sources := FromConfig(&cfg)
	if _, ok := sources[config.SourceFreshRSS]; !ok || len(sources) != 1 {
		t.Fatalf("unexpected sources %v", sources)
	}
}
