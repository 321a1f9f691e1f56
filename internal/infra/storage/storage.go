package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path"
	"time"
)

var (
	ErrTooLarge = errors.New("storage: file too large")
	ErrEmpty    = errors.New("storage: empty file")
	ErrNoURL    = errors.New("storage: upload response without url")
)

// Client — клиент сервиса загрузки файлов: multipart POST, в ответ {"url": "..."}.
type Client struct {
	uploadURL string
	maxBytes  int64
	http      *http.Client
}

func New(uploadURL string, maxBytes int64, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		uploadURL: uploadURL,
		maxBytes:  maxBytes,
		http:      &http.Client{Timeout: timeout},
	}
}

type uploadResponse struct {
	URL   string `json:"url"`
	Error string `json:"error,omitempty"`
}

// Upload отправляет файл и возвращает его публичную ссылку.
func (c *Client) Upload(ctx context.Context, filename string, r io.Reader) (string, error) {
	data, err := c.readLimited(r)
	if err != nil {
		return "", err
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("file", path.Base(filename))
	if err != nil {
		return "", err
	}
	if _, err := fw.Write(data); err != nil {
		return "", err
	}
	if err := mw.Close(); err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.uploadURL, &body)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("upload %s: %w", filename, err)
	}
	defer func() { _ = resp.Body.Close() }()

	var out uploadResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&out); err != nil && resp.StatusCode < 300 {
		return "", fmt.Errorf("decode upload response: %w", err)
	}
	if resp.StatusCode >= 300 {
		if out.Error != "" {
			return "", fmt.Errorf("upload %s: %s: %s", filename, resp.Status, out.Error)
		}
		return "", fmt.Errorf("upload %s: %s", filename, resp.Status)
	}
	if out.URL == "" {
		return "", ErrNoURL
	}
	return out.URL, nil
}

func (c *Client) readLimited(r io.Reader) ([]byte, error) {
	if c.maxBytes <= 0 {
		data, err := io.ReadAll(r)
		if err == nil && len(data) == 0 {
			return nil, ErrEmpty
		}
		return data, err
	}
	data, err := io.ReadAll(io.LimitReader(r, c.maxBytes+1))
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, ErrEmpty
	}
	if int64(len(data)) > c.maxBytes {
		return nil, fmt.Errorf("%w: limit %d bytes", ErrTooLarge, c.maxBytes)
	}
	return data, nil
}

// MaxBytes — лимит размера файла (0 — без лимита).
func (c *Client) MaxBytes() int64 { return c.maxBytes }
