package preview

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractURL(t *testing.T) {
	tests := []struct {
		text   string
		want   string
		wantOK bool
	}{
		{"see https://example.com/x?y=1 now", "https://example.com/x?y=1", true},
		{"http://a.io and https://b.io", "http://a.io", true},
		{"no links here", "", false},
		{"ftp://files.example.com", "", false},
		{"https://", "", false},
	}
	for _, tt := range tests {
		got, ok := ExtractURL(tt.text)
		assert.Equal(t, tt.wantOK, ok, tt.text)
		assert.Equal(t, tt.want, got, tt.text)
	}
}

func TestLookup(t *testing.T) {
	var gotURL string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotURL = r.URL.Query().Get("url")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"title":"<b>Example</b> &amp; co","description":"A <script>x()</script>site","image":"https://example.com/i.png","domain":"example.com"}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, time.Second, nil)
	p := c.Lookup(context.Background(), "https://example.com/a b")
	require.NotNil(t, p)
	assert.Equal(t, "https://example.com/a b", gotURL)
	assert.Equal(t, "Example & co", p.Title)
	assert.Equal(t, "A site", p.Description)
	assert.Equal(t, "https://example.com/i.png", p.ImageRef)
	assert.Equal(t, "example.com", p.Domain)
}

func TestLookupDomainFallback(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"title":"T"}`))
	}))
	defer srv.Close()

	p := NewClient(srv.URL, time.Second, nil).Lookup(context.Background(), "https://news.example.org:8443/story")
	require.NotNil(t, p)
	assert.Equal(t, "news.example.org", p.Domain)
	assert.Empty(t, p.Description)
}

func TestLookupFailuresYieldNil(t *testing.T) {
	tests := map[string]http.HandlerFunc{
		"server error": func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "boom", http.StatusInternalServerError)
		},
		"not found": func(w http.ResponseWriter, r *http.Request) {
			http.NotFound(w, r)
		},
		"bad json": func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte("<html>"))
		},
		"slow": func(w http.ResponseWriter, r *http.Request) {
			select {
			case <-time.After(2 * time.Second):
			case <-r.Context().Done():
			}
		},
	}
	for name, h := range tests {
		t.Run(name, func(t *testing.T) {
			srv := httptest.NewServer(h)
			defer srv.Close()

			c := NewClient(srv.URL, 100*time.Millisecond, nil)
			assert.Nil(t, c.Lookup(context.Background(), "https://example.com"))
		})
	}
}

func TestLookupUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	endpoint := srv.URL
	srv.Close()

	assert.Nil(t, NewClient(endpoint, time.Second, nil).Lookup(context.Background(), "https://example.com"))
}

func TestDisabledClient(t *testing.T) {
	c := NewClient("", time.Second, nil)
	assert.False(t, c.Enabled())
	assert.Nil(t, c.Lookup(context.Background(), "https://example.com"))

	var nilClient *Client
	assert.False(t, nilClient.Enabled())
	assert.Nil(t, nilClient.Lookup(context.Background(), "https://example.com"))
}

func TestEndpointWithQuery(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "k", r.URL.Query().Get("key"))
		assert.Equal(t, "https://example.com", r.URL.Query().Get("url"))
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	assert.NotNil(t, NewClient(srv.URL+"?key=k", time.Second, nil).Lookup(context.Background(), "https://example.com"))
}
