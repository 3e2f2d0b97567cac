package fetcher

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/flibusta-apps/batch-downloader/internal/spool"
)

// Client streams book files from the content cache service.
type Client struct {
	httpClient     *http.Client
	baseURL        string
	apiKey         string
	spoolThreshold int
}

// New builds a content fetcher.
func New(baseURL, apiKey string, spoolThreshold int, timeout time.Duration) *Client {
	if timeout == 0 {
		timeout = 2 * time.Minute
	}
	return &Client{
		httpClient:     &http.Client{Timeout: timeout},
		baseURL:        baseURL,
		apiKey:         apiKey,
		spoolThreshold: spoolThreshold,
	}
}

// Fetch streams the file for (bookID, format) into a spool buffer and
// returns it rewound, together with the delivered filename. ok is false when
// the cache has no file for the pair; that is an absence, not an error.
// The caller owns the buffer and must Close it.
func (c *Client) Fetch(ctx context.Context, bookID int, format string) (buf *spool.Buffer, filename string, ok bool, err error) {
	url := fmt.Sprintf("%s/api/v1/download/%d/%s", c.baseURL, bookID, format)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, "", false, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, "", false, fmt.Errorf("fetch book %d: %w", bookID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, "", false, nil
	}

	nameB64 := resp.Header.Get("X-Filename-B64")
	nameBytes, err := base64.StdEncoding.DecodeString(nameB64)
	if err != nil || len(nameBytes) == 0 {
		return nil, "", false, fmt.Errorf("fetch book %d: bad filename header %q", bookID, nameB64)
	}

	buf = spool.New(c.spoolThreshold)
	if _, err := io.Copy(buf, resp.Body); err != nil {
		buf.Close()
		return nil, "", false, fmt.Errorf("stream book %d: %w", bookID, err)
	}
	if err := buf.Rewind(); err != nil {
		buf.Close()
		return nil, "", false, fmt.Errorf("rewind spool: %w", err)
	}
	return buf, string(nameBytes), true, nil
}
