package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/flibusta-apps/batch-downloader/internal/models"
)

// Book is one catalog item on a page; only the fields the pipeline needs.
type Book struct {
	ID             int      `json:"id"`
	AvailableTypes []string `json:"available_types"`
}

// Page is one page of a paginated book listing.
type Page struct {
	Items []Book `json:"items"`
	Total int    `json:"total"`
	Page  int    `json:"page"`
	Size  int    `json:"size"`
	Pages int    `json:"pages"`
}

// Sequence is the display metadata of a book series.
type Sequence struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// Author carries the name parts of an author or translator.
type Author struct {
	ID         int    `json:"id"`
	FirstName  string `json:"first_name"`
	LastName   string `json:"last_name"`
	MiddleName string `json:"middle_name"`
}

// Client talks to the library catalog service.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	pageSize   int
}

// New builds a catalog client.
func New(baseURL, apiKey string, pageSize int, timeout time.Duration) *Client {
	if pageSize <= 0 {
		pageSize = 50
	}
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    baseURL,
		apiKey:     apiKey,
		pageSize:   pageSize,
	}
}

func booksPath(kind models.EntityKind, entityID int) (string, error) {
	switch kind {
	case models.KindSequence:
		return fmt.Sprintf("/api/v1/sequences/%d/books", entityID), nil
	case models.KindAuthor:
		return fmt.Sprintf("/api/v1/authors/%d/books", entityID), nil
	case models.KindTranslator:
		return fmt.Sprintf("/api/v1/translators/%d/books", entityID), nil
	}
	return "", fmt.Errorf("unknown entity kind %q", kind)
}

// BooksPage fetches one page of books for the entity, restricted to the
// allowed languages.
func (c *Client) BooksPage(ctx context.Context, kind models.EntityKind, entityID int, allowedLangs []string, page int) (Page, error) {
	path, err := booksPath(kind, entityID)
	if err != nil {
		return Page{}, err
	}

	params := url.Values{}
	params.Set("page", strconv.Itoa(page))
	params.Set("size", strconv.Itoa(c.pageSize))
	for _, lang := range allowedLangs {
		params.Add("allowed_langs", lang)
	}

	var result Page
	if err := c.getJSON(ctx, path+"?"+params.Encode(), &result); err != nil {
		return Page{}, err
	}
	return result, nil
}

// Sequence fetches series display metadata.
func (c *Client) Sequence(ctx context.Context, sequenceID int) (Sequence, error) {
	var result Sequence
	if err := c.getJSON(ctx, fmt.Sprintf("/api/v1/sequences/%d", sequenceID), &result); err != nil {
		return Sequence{}, err
	}
	return result, nil
}

// Author fetches name parts for an author. Translators resolve through the
// same endpoint; the catalog has no separate translator metadata.
func (c *Client) Author(ctx context.Context, authorID int) (Author, error) {
	var result Author
	if err := c.getJSON(ctx, fmt.Sprintf("/api/v1/authors/%d", authorID), &result); err != nil {
		return Author{}, err
	}
	return result, nil
}

func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("catalog request %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("catalog request %s: status %d", path, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode catalog response %s: %w", path, err)
	}
	return nil
}
