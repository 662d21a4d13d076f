package scrape

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestRAWGScrapeGames(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/games", func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "test-key", r.URL.Query().Get("key"))
		_, _ = w.Write([]byte(`{"results":[{
			"id": 311,
			"name": "WWF No Mercy",
			"released": "2000-11-17",
			"platforms": [{"platform":{"name":"Nintendo 64"}}]
		}]}`))
	})
	mux.HandleFunc("/api/games/311", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{
			"description_raw": "The sequel to WrestleMania 2000.",
			"developers": [{"name":"AKI Corporation"},{"name":"Asmik Ace"}],
			"publishers": [{"name":"THQ"}]
		}`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	client, _ := testFetchClient(t, "rawg")
	r := NewRAWG(srv.URL, "test-key", client, zap.NewNop())

	games, err := r.ScrapeGames(context.Background(), 5)
	require.NoError(t, err)
	require.Len(t, games, 1)

	game := games[0]
	assert.Equal(t, "WWF No Mercy", game.Name)
	assert.Equal(t, "2000", game.ReleaseYear)
	assert.Equal(t, "Nintendo 64", game.Systems)
	assert.Equal(t, "AKI Corporation, Asmik Ace", game.Developer)
	assert.Equal(t, "THQ", game.Publisher)
	assert.Equal(t, "rawg", game.Source)
}

func TestRAWGRequiresKey(t *testing.T) {
	client, _ := testFetchClient(t, "rawg")
	r := NewRAWG("https://api.rawg.io", "", client, zap.NewNop())

	_, err := r.ScrapeGames(context.Background(), 5)
	assert.Error(t, err)
}

func TestIGDBScrapeGames(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/v4/games", func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "client-123", r.Header.Get("Client-ID"))
		require.Equal(t, "Bearer token-456", r.Header.Get("Authorization"))
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		require.Contains(t, string(body), `search "wrestling"`)

		_, _ = w.Write([]byte(`[{
			"id": 1208,
			"name": "WWF WrestleMania 2000",
			"first_release_date": 939859200,
			"summary": "Wrestling game for the Nintendo 64.",
			"platforms": [{"name":"Nintendo 64"}],
			"involved_companies": [
				{"developer": true, "publisher": false, "company": {"name": "AKI Corporation"}},
				{"developer": false, "publisher": true, "company": {"name": "THQ"}}
			]
		}]`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	client, _ := testFetchClient(t, "igdb")
	i := NewIGDB(srv.URL, "client-123", "token-456", client, zap.NewNop())

	games, err := i.ScrapeGames(context.Background(), 5)
	require.NoError(t, err)
	require.Len(t, games, 1)

	game := games[0]
	assert.Equal(t, "WWF WrestleMania 2000", game.Name)
	assert.Equal(t, "1999", game.ReleaseYear)
	assert.Equal(t, "AKI Corporation", game.Developer)
	assert.Equal(t, "THQ", game.Publisher)
}
