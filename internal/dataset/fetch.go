package dataset

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
)

// DefaultPhoibleURL is the canonical location of the phoible inventory table.
const DefaultPhoibleURL = "https://raw.githubusercontent.com/phoible/dev/master/data/phoible.csv"

// IsRemote reports whether source is fetched over HTTP.
func IsRemote(source string) bool {
	return strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://")
}

// Open returns a reader for a local path or an http(s) URL.
// A nil client means http.DefaultClient. The caller closes the reader.
func Open(ctx context.Context, source string, client *http.Client) (io.ReadCloser, error) {
	if !IsRemote(source) {
		f, err := os.Open(source) //nolint:gosec // G304: path comes from user config
		if err != nil {
			return nil, fmt.Errorf("failed to open %s: %w", source, err)
		}
		return f, nil
	}

	if client == nil {
		client = http.DefaultClient
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, source, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request for %s: %w", source, err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", source, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_ = resp.Body.Close()
		return nil, &FetchError{URL: source, Status: resp.Status}
	}
	return resp.Body, nil
}

// Load opens source and decodes it. Files ending in .tsv are tab separated
// unless opts.Comma is set.
func Load(ctx context.Context, source string, client *http.Client, opts ReadOptions) (*Dataset, error) {
	rc, err := Open(ctx, source, client)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rc.Close() }()

	if opts.Comma == 0 && strings.HasSuffix(strings.ToLower(source), ".tsv") {
		opts.Comma = '\t'
	}
	ds, err := Read(rc, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", source, err)
	}
	return ds, nil
}
