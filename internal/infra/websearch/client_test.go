package websearch_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/wildfireranch/commandcenter/internal/infra/websearch"
)

func TestClient_FetchConvertsHTMLToMarkdown(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/robots.txt" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte("<html><head><title>Battery FAQ</title></head><body><h1>Hello</h1></body></html>"))
	}))
	defer srv.Close()

	client := websearch.NewClient(5 * time.Second)
	page, err := client.Fetch(context.Background(), srv.URL+"/page")
	require.NoError(t, err)
	require.Equal(t, "Battery FAQ", page.Title)
	require.Contains(t, page.Content, "Hello")
}

func TestClient_RobotsDisallowBlocksFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/robots.txt" {
			w.Write([]byte("User-agent: *\nDisallow: /private\n"))
			return
		}
		w.Write([]byte("should not be reached"))
	}))
	defer srv.Close()

	client := websearch.NewClient(5 * time.Second)
	_, err := client.Fetch(context.Background(), srv.URL+"/private/page")
	require.Error(t, err)
}

func TestClient_RejectsNonHTTPScheme(t *testing.T) {
	client := websearch.NewClient(time.Second)
	_, err := client.Fetch(context.Background(), "ftp://example.com/file")
	require.Error(t, err)
}

func TestClient_UpstreamErrorStatusIsWrapped(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/robots.txt" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := websearch.NewClient(5 * time.Second)
	_, err := client.Fetch(context.Background(), srv.URL+"/page")
	require.Error(t, err)
}
