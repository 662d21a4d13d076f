package scrape

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestOpenLibraryScrapeBooks(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/search.json", func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "professional wrestling", r.URL.Query().Get("q"))
		_, _ = w.Write([]byte(`{"docs":[{
			"key": "/works/OL123W",
			"title": "Have a Nice Day",
			"author_name": ["Mick Foley"],
			"first_publish_year": 1999,
			"isbn": ["9780061031019"],
			"publisher": ["HarperCollins"]
		}]}`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	client, _ := testFetchClient(t, "openlibrary")
	o := NewOpenLibrary(srv.URL, client, zap.NewNop())

	books, err := o.ScrapeBooks(context.Background(), 5)
	require.NoError(t, err)
	require.Len(t, books, 1)

	book := books[0]
	assert.Equal(t, "Have a Nice Day", book.Title)
	assert.Equal(t, "Mick Foley", book.Author)
	assert.Equal(t, "1999", book.PublicationYear)
	assert.Equal(t, "9780061031019", book.ISBN)
	assert.Equal(t, "HarperCollins", book.Publisher)
	assert.Equal(t, "/works/OL123W", book.SourceID)
}

func TestGoogleBooksPrefersISBN13(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/books/v1/volumes", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"items":[{
			"id": "abc123",
			"volumeInfo": {
				"title": "Hitman",
				"authors": ["Bret Hart"],
				"publisher": "Grand Central",
				"publishedDate": "2007-10-16",
				"description": "My real life in the cartoon world of wrestling.",
				"industryIdentifiers": [
					{"type": "ISBN_10", "identifier": "0446539724"},
					{"type": "ISBN_13", "identifier": "9780446539722"}
				],
				"infoLink": "https://books.google.com/books?id=abc123"
			}
		}]}`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	client, _ := testFetchClient(t, "googlebooks")
	g := NewGoogleBooks(srv.URL, "", client, zap.NewNop())

	books, err := g.ScrapeBooks(context.Background(), 5)
	require.NoError(t, err)
	require.Len(t, books, 1)

	book := books[0]
	assert.Equal(t, "Hitman", book.Title)
	assert.Equal(t, "9780446539722", book.ISBN)
	assert.Equal(t, "2007", book.PublicationYear)
}
