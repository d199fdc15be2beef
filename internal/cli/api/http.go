package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"CardVault/internal/cli/repo"
)

// CookieName — имя cookie сессии на сервере.
const CookieName = "auth_token"

// APIError — ответ сервера с кодом вне 2xx.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("server status %d", e.StatusCode)
	}
	return fmt.Sprintf("server status %d: %s", e.StatusCode, e.Message)
}

// Client — HTTP-клиент CardVault. Авторизуется cookie сессии, если токен
// сохранён, и заголовком password, если пароль задан.
type Client struct {
	BaseURL  string
	Password string
	Tokens   repo.TokenStore
	HTTP     *http.Client
}

// NewClient создаёт клиента для сервера baseURL.
func NewClient(baseURL, password string, tokens repo.TokenStore) *Client {
	return &Client{
		BaseURL:  strings.TrimRight(baseURL, "/"),
		Password: password,
		Tokens:   tokens,
		HTTP:     http.DefaultClient,
	}
}

// Do выполняет запрос и возвращает ответ с прочитанным телом.
func (c *Client) Do(ctx context.Context, method, path string, body io.Reader, contentType string) (*http.Response, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, body)
	if err != nil {
		return nil, nil, err
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if c.Tokens != nil {
		if tok, err := c.Tokens.Load(); err == nil && tok != "" {
			req.AddCookie(&http.Cookie{Name: CookieName, Value: tok})
		}
	}
	if c.Password != "" {
		req.Header.Set("password", c.Password)
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, nil, err
	}
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp, nil, err
	}
	return resp, b, nil
}

// GetJSON выполняет GET и декодирует ответ в out.
func (c *Client) GetJSON(ctx context.Context, path string, out any) error {
	return c.call(ctx, http.MethodGet, path, nil, "", out)
}

// PostJSON отправляет payload как JSON и декодирует ответ в out.
func (c *Client) PostJSON(ctx context.Context, path string, payload, out any) error {
	var body io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		body = bytes.NewReader(b)
	}
	return c.call(ctx, http.MethodPost, path, body, "application/json", out)
}

// Delete выполняет DELETE и декодирует ответ в out.
func (c *Client) Delete(ctx context.Context, path string, out any) error {
	return c.call(ctx, http.MethodDelete, path, nil, "", out)
}

// Upload отправляет файл path как multipart-форму с полями file и username.
// Тело формируется потоково через pipe.
func (c *Client) Upload(ctx context.Context, username, path string, out any) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)
	go func() {
		err := writeUploadForm(mw, username, filepath.Base(path), f)
		if err == nil {
			err = mw.Close()
		}
		pw.CloseWithError(err)
	}()
	return c.call(ctx, http.MethodPost, "/upload", pr, mw.FormDataContentType(), out)
}

func writeUploadForm(mw *multipart.Writer, username, name string, src io.Reader) error {
	if err := mw.WriteField("username", username); err != nil {
		return err
	}
	fw, err := mw.CreateFormFile("file", name)
	if err != nil {
		return err
	}
	_, err = io.Copy(fw, src)
	return err
}

// Login открывает сессию по паролю и сохраняет cookie.
func (c *Client) Login(ctx context.Context) error {
	resp, body, err := c.Do(ctx, http.MethodPost, "/api/session", nil, "")
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		return apiError(resp.StatusCode, body)
	}
	return PersistAuthFromResponse(resp, c.Tokens)
}

func (c *Client) call(ctx context.Context, method, path string, body io.Reader, contentType string, out any) error {
	resp, b, err := c.Do(ctx, method, path, body, contentType)
	if err != nil {
		return err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return apiError(resp.StatusCode, b)
	}
	if out == nil || len(bytes.TrimSpace(b)) == 0 {
		return nil
	}
	if err := json.Unmarshal(b, out); err != nil {
		return fmt.Errorf("decode: %w", err)
	}
	return nil
}

func apiError(status int, body []byte) error {
	var m struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &m); err != nil || m.Message == "" {
		m.Message = strings.TrimSpace(string(body))
	}
	return &APIError{StatusCode: status, Message: m.Message}
}

// PersistAuthFromResponse извлекает cookie сессии из ответа и сохраняет её.
func PersistAuthFromResponse(resp *http.Response, store repo.TokenStore) error {
	for _, c := range resp.Cookies() {
		if c.Name == CookieName && c.Value != "" {
			return store.Save(c.Value)
		}
	}
	return fmt.Errorf("no auth cookie in response")
}
