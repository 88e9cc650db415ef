package logger

import (
	"bytes"
	"io"
	log "log/slog"
	"net/http"
	"time"
)

// ESTransport 包装 ES HTTP 传输层，记录慢查询与错误
type ESTransport struct {
	Transport http.RoundTripper
}

func (t *ESTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	start := time.Now()

	var reqBody []byte
	if req.Body != nil {
		reqBody, _ = io.ReadAll(req.Body)
		req.Body = io.NopCloser(bytes.NewBuffer(reqBody))
	}

	resp, err := t.Transport.RoundTrip(req)
	elapsed := time.Since(start)

	fields := []any{
		log.String("method", req.Method),
		log.String("url", req.URL.String()),
		log.Duration("latency", elapsed),
	}

	if err != nil {
		reqStr := string(reqBody)
		if len(reqStr) > 1000 {
			reqStr = reqStr[:1000] + "...[truncated]"
		}
		log.ErrorContext(req.Context(), "ES_QUERY_ERROR",
			append(fields, log.String("req_body", reqStr), log.Any("err", err))...)
		return nil, err
	}

	if elapsed > 500*time.Millisecond {
		log.WarnContext(req.Context(), "ES_QUERY_SLOW",
			append(fields, log.Int("status", resp.StatusCode))...)
	}

	return resp, nil
}
