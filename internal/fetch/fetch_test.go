package fetch

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPFetcher_FetchBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/asset.bin":
			_, _ = w.Write([]byte("payload"))
		case "/gone":
			w.WriteHeader(http.StatusGone)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	f := NewHTTPFetcher(HTTPOptions{})

	body, err := f.Fetch(context.Background(), server.URL+"/asset.bin")
	require.NoError(t, err)
	data, err := io.ReadAll(body)
	require.NoError(t, err)
	require.NoError(t, body.Close())
	assert.Equal(t, "payload", string(data))

	_, err = f.Fetch(context.Background(), server.URL+"/missing")
	assert.True(t, IsNotFound(err), err)

	_, err = f.Fetch(context.Background(), server.URL+"/gone")
	assert.True(t, IsNotFound(err), err)
}

func TestDispatcher_RoutesByScheme(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "grid.asc")
	require.NoError(t, os.WriteFile(path, []byte("local"), 0o644))

	d := NewDispatcher(NewHTTPFetcher(HTTPOptions{}), NewFTPFetcher(FTPOptions{}))

	body, err := d.Fetch(context.Background(), path)
	require.NoError(t, err)
	data, err := io.ReadAll(body)
	require.NoError(t, err)
	require.NoError(t, body.Close())
	assert.Equal(t, "local", string(data))

	_, err = d.Fetch(context.Background(), filepath.Join(dir, "absent.asc"))
	assert.True(t, IsNotFound(err))

	_, err = d.Fetch(context.Background(), "gopher://example.com/x")
	require.Error(t, err)
}
