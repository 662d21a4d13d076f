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

func TestTMDBScrapeSpecials(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/3/search/movie", func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "k", r.URL.Query().Get("api_key"))
		_, _ = w.Write([]byte(`{"results":[
			{"id": 1, "title": "Beyond the Mat", "release_date": "1999-10-22",
			 "overview": "A documentary about professional wrestlers.", "genre_ids": [19]},
			{"id": 2, "title": "The Wrestler", "release_date": "2008-12-17",
			 "overview": "An aging wrestler.", "genre_ids": [18]}
		]}`))
	})
	mux.HandleFunc("/3/search/tv", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"results":[
			{"id": 3, "name": "Dark Side of the Ring", "first_air_date": "2019-04-10",
			 "overview": "Wrestling's most controversial stories."}
		]}`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	client, _ := testFetchClient(t, "tmdb")
	tm := NewTMDB(srv.URL, "k", client, zap.NewNop())

	specials, err := tm.ScrapeSpecials(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, specials, 3)

	assert.Equal(t, "documentary", specials[0].Type)
	assert.Equal(t, "1999", specials[0].ReleaseYear)
	assert.Equal(t, "movie", specials[1].Type)
	assert.Equal(t, "series", specials[2].Type)
	assert.Equal(t, "2019", specials[2].ReleaseYear)
}

func TestTMDBRequiresKey(t *testing.T) {
	client, _ := testFetchClient(t, "tmdb")
	tm := NewTMDB("https://api.themoviedb.org", "", client, zap.NewNop())

	_, err := tm.ScrapeSpecials(context.Background(), 10)
	assert.Error(t, err)
}
