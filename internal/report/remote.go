package report

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/smallbiznis/insight/pkg/telemetry/correlation"
	"go.uber.org/zap"
)

// RemoteClient submits an uploaded file to an external analyzer that
// speaks the same report schema.
type RemoteClient struct {
	url    string
	client *http.Client
	log    *zap.Logger
}

func NewRemoteClient(url string, timeout time.Duration, log *zap.Logger) *RemoteClient {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &RemoteClient{
		url:    url,
		client: &http.Client{Timeout: timeout},
		log:    log.Named("report.remote"),
	}
}

func (c *RemoteClient) Enabled() bool {
	return c != nil && c.url != ""
}

// Analyze posts the raw upload as multipart form data and decodes the
// returned report. Any transport or decode failure is returned so the
// caller can fall back to the local pipeline.
func (c *RemoteClient) Analyze(ctx context.Context, filename string, content []byte) (Report, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		return Report{}, fmt.Errorf("create form file: %w", err)
	}
	if _, err := part.Write(content); err != nil {
		return Report{}, fmt.Errorf("write form file: %w", err)
	}
	if err := writer.Close(); err != nil {
		return Report{}, fmt.Errorf("close multipart writer: %w", err)
	}

	ctx, cid := correlation.EnsureCorrelationID(ctx)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, &body)
	if err != nil {
		return Report{}, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("X-Correlation-Id", cid)

	resp, err := c.client.Do(req)
	if err != nil {
		return Report{}, fmt.Errorf("remote analyze: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return Report{}, fmt.Errorf("remote analyze: unexpected status %d", resp.StatusCode)
	}

	var report Report
	if err := json.NewDecoder(resp.Body).Decode(&report); err != nil {
		return Report{}, fmt.Errorf("decode remote report: %w", err)
	}
	return report, nil
}
