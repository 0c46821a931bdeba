package fetch

import (
	"context"
	"errors"
	"io"
	"net/url"
	"os"

	"github.com/rotisserie/eris"
)

// Fetcher retrieves one remote or local asset. Implementations never
// retry; a failed fetch surfaces to the query that triggered it.
type Fetcher interface {
	Fetch(ctx context.Context, location string) (io.ReadCloser, error)
}

// NotFoundError reports an asset that does not exist at its location.
// Sources translate it into no-data tiles when the load instruction allows
// that.
type NotFoundError struct {
	Location string
}

func (e *NotFoundError) Error() string {
	return "asset not found: " + e.Location
}

// IsNotFound reports whether the error marks a missing asset.
func IsNotFound(err error) bool {
	var notFound *NotFoundError
	return errors.As(err, &notFound)
}

// Dispatcher routes fetches by URL scheme. Plain paths and file:// URLs
// read from the local filesystem.
type Dispatcher struct {
	HTTP *HTTPFetcher
	FTP  *FTPFetcher
}

// NewDispatcher wires the scheme-specific fetchers.
func NewDispatcher(httpFetcher *HTTPFetcher, ftpFetcher *FTPFetcher) *Dispatcher {
	return &Dispatcher{HTTP: httpFetcher, FTP: ftpFetcher}
}

// Fetch dispatches on the location's scheme.
func (d *Dispatcher) Fetch(ctx context.Context, location string) (io.ReadCloser, error) {
	u, err := url.Parse(location)
	if err != nil {
		return nil, eris.Wrapf(err, "parse asset location %q", location)
	}
	switch u.Scheme {
	case "http", "https":
		return d.HTTP.Fetch(ctx, location)
	case "ftp":
		return d.FTP.Fetch(ctx, location)
	case "", "file":
		return fetchFile(u.Path)
	default:
		return nil, eris.Errorf("unsupported asset scheme %q in %q", u.Scheme, location)
	}
}

func fetchFile(path string) (io.ReadCloser, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, &NotFoundError{Location: path}
		}
		return nil, eris.Wrapf(err, "open asset file %s", path)
	}
	return f, nil
}
