package landcover

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	"image/png"
	"io"
	"log/slog"
	"math"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"
)

// Client talks to a Sentinel-Hub-style process API: OAuth client
// credentials for the token, one process request per chip. Tokens are
// reused until shortly before expiry.
type Client struct {
	clientID     string
	clientSecret string
	tokenURL     string
	processURL   string
	collectionID string
	retries      int
	httpClient   *http.Client

	mu          sync.Mutex
	token       string
	tokenExpiry time.Time
}

func NewClient(clientID, clientSecret, tokenURL, processURL, collectionID string, retries int, timeout time.Duration) *Client {
	return &Client{
		clientID:     clientID,
		clientSecret: clientSecret,
		tokenURL:     tokenURL,
		processURL:   processURL,
		collectionID: collectionID,
		retries:      retries,
		httpClient:   &http.Client{Timeout: timeout},
	}
}

// Chip is one fetched land-cover raster: raw codes row-major from the
// north-west corner, plus the geographic bounding box it covers.
type Chip struct {
	Codes  []uint8
	Width  int
	Height int
	// Bounding box in degrees.
	West, South, East, North float64
}

// BBoxAround returns the lon/lat bounding box of a square buffer around a
// point, using the small-angle meters-per-degree approximation the chip
// request is defined in.
func BBoxAround(lat, lon, bufferM float64) (west, south, east, north float64) {
	dLat := bufferM / 111320.0
	dLon := bufferM / (111320.0 * math.Cos(lat*math.Pi/180))
	return lon - dLon, lat - dLat, lon + dLon, lat + dLat
}

func (c *Client) getToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.token != "" && time.Now().Before(c.tokenExpiry) {
		return c.token, nil
	}

	form := url.Values{
		"grant_type":    {"client_credentials"},
		"client_id":     {c.clientID},
		"client_secret": {c.clientSecret},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("error creating token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("error requesting token: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected token status code: %d - status: %s", resp.StatusCode, resp.Status)
	}

	var body struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("error decoding token response: %w", err)
	}
	if body.ExpiresIn == 0 {
		body.ExpiresIn = 3600
	}

	c.token = body.AccessToken
	// Refresh a minute before the server-side expiry.
	c.tokenExpiry = time.Now().Add(time.Duration(body.ExpiresIn)*time.Second - time.Minute)
	return c.token, nil
}

// FetchChip requests the land-cover chip covering a buffer around the
// given point. Transient failures (5xx, network errors) are retried with
// exponential backoff up to the configured attempt budget.
func (c *Client) FetchChip(ctx context.Context, lat, lon float64, year int, bufferM float64, chipPx int) (*Chip, error) {
	var lastErr error
	for attempt := 0; attempt <= c.retries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(1<<(attempt-1)) * time.Second
			slog.Warn("retrying land cover fetch", "attempt", attempt, "backoff", backoff, "error", lastErr)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
		}

		chip, retryable, err := c.fetchOnce(ctx, lat, lon, year, bufferM, chipPx)
		if err == nil {
			return chip, nil
		}
		lastErr = err
		if !retryable {
			return nil, err
		}
	}
	return nil, fmt.Errorf("land cover fetch failed after %d attempts: %w", c.retries+1, lastErr)
}

func (c *Client) fetchOnce(ctx context.Context, lat, lon float64, year int, bufferM float64, chipPx int) (chip *Chip, retryable bool, err error) {
	token, err := c.getToken(ctx)
	if err != nil {
		return nil, true, err
	}

	west, south, east, north := BBoxAround(lat, lon, bufferM)

	body := map[string]any{
		"input": map[string]any{
			"bounds": map[string]any{
				"bbox": []float64{west, south, east, north},
				"properties": map[string]any{
					"crs": "http://www.opengis.net/def/crs/EPSG/0/4326",
				},
			},
			"data": []map[string]any{{
				"type": "byoc-" + c.collectionID,
				"dataFilter": map[string]any{
					"timeRange": map[string]any{
						"from": fmt.Sprintf("%d-01-01T00:00:00Z", year),
						"to":   fmt.Sprintf("%d-12-31T23:59:59Z", year),
					},
				},
			}},
		},
		"output": map[string]any{
			"width":  chipPx,
			"height": chipPx,
			"responses": []map[string]any{{
				"identifier": "default",
				"format":     map[string]any{"type": "image/png"},
			}},
		},
		"evalscript": evalScript,
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, false, fmt.Errorf("error encoding process request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.processURL, bytes.NewReader(payload))
	if err != nil {
		return nil, false, fmt.Errorf("error creating process request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "image/png")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, true, fmt.Errorf("error while doing process request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		err := fmt.Errorf("unexpected process status code: %d - %s", resp.StatusCode, strings.TrimSpace(string(msg)))
		return nil, resp.StatusCode >= 500, err
	}

	img, err := png.Decode(resp.Body)
	if err != nil {
		return nil, false, fmt.Errorf("error decoding chip image: %w", err)
	}

	codes, w, h := grayCodes(img)
	return &Chip{
		Codes: codes, Width: w, Height: h,
		West: west, South: south, East: east, North: north,
	}, false, nil
}

// grayCodes flattens any decoded image into 8-bit codes.
func grayCodes(img image.Image) (codes []uint8, w, h int) {
	b := img.Bounds()
	w, h = b.Dx(), b.Dy()
	codes = make([]uint8, w*h)

	if g, ok := img.(*image.Gray); ok {
		for row := 0; row < h; row++ {
			copy(codes[row*w:(row+1)*w], g.Pix[row*g.Stride:row*g.Stride+w])
		}
		return codes, w, h
	}

	for row := 0; row < h; row++ {
		for col := 0; col < w; col++ {
			r, _, _, _ := img.At(b.Min.X+col, b.Min.Y+row).RGBA()
			codes[row*w+col] = uint8(r >> 8)
		}
	}
	return codes, w, h
}

const evalScript = `//VERSION=3
function setup() {
  return {
    input: ["LCM10"],
    output: { bands: 1, sampleType: "UINT8" }
  };
}
function evaluatePixel(s) {
  return [s.LCM10];
}`
