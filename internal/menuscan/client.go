// Package menuscan talks to the menu digitization service, which reads a
// photographed menu and returns the dishes it found.
package menuscan

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/Skotchmaster/restaurant_orders/internal/service"
)

const maxUpload = 10 << 20

type Client struct {
	baseURL    string
	httpClient *http.Client
}

func NewClient(scanServiceURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(scanServiceURL, "/"),
		httpClient: &http.Client{
			// OCR of a full menu page is slow.
			Timeout: 60 * time.Second,
			Transport: &http.Transport{
				MaxIdleConns:        10,
				MaxIdleConnsPerHost: 2,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
}

// Candidate is one dish read off the menu. Price is in the major currency
// unit, as printed.
type Candidate struct {
	Name        string `json:"name"`
	Price       Price  `json:"price"`
	Description string `json:"description"`
	Category    string `json:"category"`
}

// Price accepts the number or the printed text ("S/ 12.50") the scanner
// returns. Unreadable prices decode as 0 for the admin to fix.
type Price float64

func (p *Price) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		s = string(b)
	}
	s = strings.ReplaceAll(s, ",", ".")
	s = strings.TrimLeftFunc(s, func(r rune) bool { return r < '0' || r > '9' })
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || f < 0 || math.IsInf(f, 0) {
		f = 0
	}
	*p = Price(f)
	return nil
}

// Minor returns the price in cents.
func (p Price) Minor() int64 { return int64(math.Round(float64(p) * 100)) }

type scanResponse struct {
	Items []Candidate `json:"items"`
	Error string      `json:"error"`
}

func (c *Client) Scan(ctx context.Context, filename string, content io.Reader) ([]Candidate, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return nil, fmt.Errorf("create form: %w", err)
	}
	n, err := io.Copy(fw, io.LimitReader(content, maxUpload+1))
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	if n > maxUpload {
		return nil, fmt.Errorf("%w: menu image larger than %d bytes", service.ErrValidation, maxUpload)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("close form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/scan-menu", &body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: menu scan: %v", service.ErrExternalService, err)
	}
	defer resp.Body.Close()

	var result scanResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("%w: menu scan returned %d with unreadable body: %v", service.ErrExternalService, resp.StatusCode, err)
	}
	if resp.StatusCode != http.StatusOK || result.Error != "" {
		return nil, fmt.Errorf("%w: menu scan failed with status %d: %s", service.ErrExternalService, resp.StatusCode, result.Error)
	}
	return result.Items, nil
}
