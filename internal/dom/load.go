package dom

import (
	"compress/flate"
	"compress/gzip"
	"compress/zlib"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/andybalholm/brotli"
	"golang.org/x/net/html/charset"
)

// Load reads a page into an in-memory document. src is "-" for stdin, an
// http(s) URL, or a file path. client may be nil.
func Load(ctx context.Context, src string, client *http.Client) (*Memory, error) {
	switch {
	case src == "-":
		return Parse(os.Stdin)
	case strings.HasPrefix(src, "http://"), strings.HasPrefix(src, "https://"):
		return fetch(ctx, src, client)
	default:
		f, err := os.Open(src)
		if err != nil {
			return nil, fmt.Errorf("could not open page: %w", err)
		}
		defer f.Close()
		return Parse(f)
	}
}

func fetch(ctx context.Context, url string, client *http.Client) (*Memory, error) {
	if client == nil {
		client = &http.Client{}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	// Setting Accept-Encoding ourselves turns off the transport's
	// transparent gzip, so every encoding is decoded below.
	req.Header.Set("Accept-Encoding", "br, gzip, deflate")
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("failed to fetch page: status %d", resp.StatusCode)
	}

	body, err := decodeBody(resp)
	if err != nil {
		return nil, err
	}
	defer body.Close()

	utf8Body, err := charset.NewReader(body, resp.Header.Get("Content-Type"))
	if err != nil {
		return nil, fmt.Errorf("failed to detect page charset: %w", err)
	}
	return Parse(utf8Body)
}

// decodeBody unwraps the Content-Encoding layers of resp in reverse order
// of application.
func decodeBody(resp *http.Response) (io.ReadCloser, error) {
	var body io.ReadCloser = io.NopCloser(resp.Body)
	encodings := resp.Header.Values("Content-Encoding")
	for i := len(encodings) - 1; i >= 0; i-- {
		for _, enc := range reverse(strings.Split(encodings[i], ",")) {
			var err error
			switch strings.ToLower(strings.TrimSpace(enc)) {
			case "", "identity":
			case "gzip", "x-gzip":
				body, err = gzip.NewReader(body)
			case "br":
				body = io.NopCloser(brotli.NewReader(body))
			case "deflate":
				body, err = newDeflateReader(body)
			default:
				err = fmt.Errorf("unsupported content encoding %q", enc)
			}
			if err != nil {
				return nil, fmt.Errorf("failed to decode response body: %w", err)
			}
		}
	}
	return body, nil
}

// newDeflateReader accepts both zlib-wrapped and raw deflate streams; servers
// disagree on which one "deflate" means.
func newDeflateReader(r io.Reader) (io.ReadCloser, error) {
	buffered := &peekReader{r: r}
	zr, err := zlib.NewReader(buffered)
	if err == nil {
		return zr, nil
	}
	if !errors.Is(err, zlib.ErrHeader) {
		return nil, err
	}
	return flate.NewReader(io.MultiReader(strings.NewReader(string(buffered.seen)), r)), nil
}

// peekReader remembers what it has read so a failed header probe can be replayed.
type peekReader struct {
	r    io.Reader
	seen []byte
}

func (p *peekReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	p.seen = append(p.seen, b[:n]...)
	return n, err
}

func reverse(s []string) []string {
	out := make([]string, len(s))
	for i, v := range s {
		out[len(s)-1-i] = v
	}
	return out
}
