package httpclient

import (
	"net/http"
	"time"

	"go.uber.org/zap"
)

// 外部呼び出しを1行ずつログに残すRoundTripper。ボディは出さない
type LoggingTransport struct {
	Transport http.RoundTripper
	Log       *zap.Logger
}

func (t *LoggingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	transport := t.Transport
	if transport == nil {
		transport = http.DefaultTransport
	}

	start := time.Now()
	resp, err := transport.RoundTrip(req)
	fields := []zap.Field{
		zap.String("method", req.Method),
		zap.String("host", req.URL.Host),
		zap.String("path", req.URL.Path),
		zap.Duration("latency", time.Since(start)),
	}
	if err != nil {
		t.Log.Warn("external_request_failed", append(fields, zap.Error(err))...)
		return nil, err
	}

	fields = append(fields, zap.Int("status", resp.StatusCode))
	if resp.StatusCode >= 400 {
		t.Log.Warn("external_request", fields...)
	} else {
		t.Log.Debug("external_request", fields...)
	}
	return resp, nil
}

// New はタイムアウトとログ付きのクライアントを返す
func New(timeout time.Duration, log *zap.Logger) *http.Client {
	return &http.Client{
		Timeout:   timeout,
		Transport: &LoggingTransport{Transport: http.DefaultTransport, Log: log},
	}
}
