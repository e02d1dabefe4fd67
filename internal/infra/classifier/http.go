package classifier

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
)

// ErrNotConfigured はCLASSIFIER_URL未設定
var ErrNotConfigured = errors.New("classifier not configured")

// 画像→{ラベル: 確率}
type Classifier interface {
	Classify(ctx context.Context, filename string, image []byte) (map[string]float64, error)
}

// 推論サービスに multipart "image" を POST {base}/classify する
type HTTPClassifier struct {
	http    *http.Client
	baseURL string
}

func NewHTTPClassifier(httpClient *http.Client, baseURL string) *HTTPClassifier {
	return &HTTPClassifier{http: httpClient, baseURL: strings.TrimRight(baseURL, "/")}
}

func (c *HTTPClassifier) Classify(ctx context.Context, filename string, image []byte) (map[string]float64, error) {
	if c.baseURL == "" {
		return nil, ErrNotConfigured
	}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("image", filename)
	if err != nil {
		return nil, err
	}
	if _, err := part.Write(image); err != nil {
		return nil, err
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/classify", &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("classifier: status %d", resp.StatusCode)
	}

	var out map[string]float64
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&out); err != nil {
		return nil, fmt.Errorf("classifier: decode: %w", err)
	}
	if len(out) == 0 {
		return nil, errors.New("classifier: empty predictions")
	}
	return out, nil
}
