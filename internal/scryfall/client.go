// Package scryfall — клиент bulk-data API Scryfall.
package scryfall

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// DefaultBulkDataURL — адрес списка bulk-выгрузок.
const DefaultBulkDataURL = "https://api.scryfall.com/bulk-data"

// DefaultCardsType — тип выгрузки с полным набором карт по умолчанию.
const DefaultCardsType = "default_cards"

const userAgent = "CardVault/1.0"

// ErrDatasetNotFound — в списке выгрузок нет записи нужного типа.
var ErrDatasetNotFound = errors.New("bulk dataset not found")

// BulkData — описание одной bulk-выгрузки.
type BulkData struct {
	ID              string    `json:"id"`
	Type            string    `json:"type"`
	Name            string    `json:"name"`
	DownloadURI     string    `json:"download_uri"`
	UpdatedAt       time.Time `json:"updated_at"`
	Size            int64     `json:"size"`
	ContentType     string    `json:"content_type"`
	ContentEncoding string    `json:"content_encoding"`
}

type bulkDataList struct {
	Object string     `json:"object"`
	Data   []BulkData `json:"data"`
}

// StatusError — ответ API с неожиданным HTTP-статусом.
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("GET %s: unexpected status %d", e.URL, e.StatusCode)
}

// Client обращается к bulk-data API.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient создаёт клиента. Если hc == nil, используется клиент без таймаута:
// выгрузка весит сотни мегабайт, время скачивания ограничивается контекстом.
func NewClient(baseURL string, hc *http.Client) *Client {
	if baseURL == "" {
		baseURL = DefaultBulkDataURL
	}
	if hc == nil {
		hc = &http.Client{}
	}
	return &Client{baseURL: baseURL, http: hc}
}

// ListBulkData возвращает описания всех доступных выгрузок.
func (c *Client) ListBulkData(ctx context.Context) ([]BulkData, error) {
	resp, err := c.get(ctx, c.baseURL, "application/json")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var list bulkDataList
	if err := json.NewDecoder(resp.Body).Decode(&list); err != nil {
		return nil, fmt.Errorf("decode bulk-data list: %w", err)
	}
	return list.Data, nil
}

// FindBulkData ищет выгрузку по типу (например, default_cards).
func (c *Client) FindBulkData(ctx context.Context, typ string) (*BulkData, error) {
	list, err := c.ListBulkData(ctx)
	if err != nil {
		return nil, err
	}
	for i := range list {
		if list[i].Type == typ {
			if list[i].DownloadURI == "" {
				return nil, fmt.Errorf("%w: %q has no download_uri", ErrDatasetNotFound, typ)
			}
			return &list[i], nil
		}
	}
	return nil, fmt.Errorf("%w: %q", ErrDatasetNotFound, typ)
}

// Download потоково копирует выгрузку в dst и возвращает количество байт.
func (c *Client) Download(ctx context.Context, uri string, dst io.Writer) (int64, error) {
	resp, err := c.get(ctx, uri, "")
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	n, err := io.Copy(dst, resp.Body)
	if err != nil {
		return n, fmt.Errorf("download %s: %w", uri, err)
	}
	return n, nil
}

func (c *Client) get(ctx context.Context, url, accept string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", userAgent)
	if accept != "" {
		req.Header.Set("Accept", accept)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		resp.Body.Close()
		return nil, &StatusError{URL: url, StatusCode: resp.StatusCode}
	}
	return resp, nil
}
