package export

import (
	"bytes"
	"compress/gzip"
	"encoding/json"
	"fmt"
	"time"

	"github.com/valyala/fasthttp"

	"searchvolume-go/pkg/logger"
)

// Client submits normalized volume records to a downstream ingest endpoint.
// Submission is best-effort and sequential; a failed batch fails the run,
// retry policy lives with the operator rerunning the job.
type Client struct {
	config Config
	client *fasthttp.Client
	log    *logger.Logger
}

func NewClient(config Config, log *logger.Logger) (*Client, error) {
	if config.BaseURL == "" {
		return nil, fmt.Errorf("export: base URL is required")
	}
	if config.APIKey == "" {
		return nil, fmt.Errorf("export: API key is required")
	}
	if config.BatchSize == 0 {
		config.BatchSize = 300
	}
	if config.Timeout == 0 {
		config.Timeout = 60 * time.Second
	}
	if log == nil {
		log = logger.Nop()
	}

	client := &fasthttp.Client{
		ReadTimeout:         config.Timeout,
		WriteTimeout:        config.Timeout,
		MaxConnsPerHost:     100,
		MaxIdleConnDuration: 90 * time.Second,
	}

	return &Client{
		config: config,
		client: client,
		log:    log.WithField("component", "export_client"),
	}, nil
}

// SubmitBatch sends one batch, gzip-compressed when configured.
func (c *Client) SubmitBatch(batch VolumeBatch) (*IngestResponse, error) {
	jsonData, err := json.Marshal(batch)
	if err != nil {
		return nil, fmt.Errorf("export: failed to marshal batch: %w", err)
	}

	requestBody := jsonData
	contentEncoding := ""
	if c.config.EnableGzip {
		var buf bytes.Buffer
		gz := gzip.NewWriter(&buf)
		if _, err := gz.Write(jsonData); err != nil {
			gz.Close()
			return nil, fmt.Errorf("export: gzip write failed: %w", err)
		}
		if err := gz.Close(); err != nil {
			return nil, fmt.Errorf("export: gzip close failed: %w", err)
		}
		requestBody = buf.Bytes()
		contentEncoding = "gzip"
	}

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(c.config.BaseURL + "/api/v1/keyword-volumes/batch")
	req.Header.SetMethod(fasthttp.MethodPost)
	req.Header.SetContentType("application/json")
	req.Header.Set("X-API-Key", c.config.APIKey)
	if contentEncoding != "" {
		req.Header.Set("Content-Encoding", contentEncoding)
	}
	req.SetBody(requestBody)

	c.log.WithFields(map[string]interface{}{
		"batch_size":       len(batch),
		"request_bytes":    len(requestBody),
		"content_encoding": contentEncoding,
	}).Debug("Submitting volume batch")

	if err := c.client.DoTimeout(req, resp, c.config.Timeout); err != nil {
		return nil, fmt.Errorf("export: request failed: %w", err)
	}

	if resp.StatusCode() != fasthttp.StatusOK {
		return nil, fmt.Errorf("export: API returned status %d: %s", resp.StatusCode(), string(resp.Body()))
	}

	var ingestResp IngestResponse
	if err := json.Unmarshal(resp.Body(), &ingestResp); err != nil {
		return nil, fmt.Errorf("export: failed to decode response: %w", err)
	}

	c.log.WithFields(map[string]interface{}{
		"response_code": ingestResp.Code,
		"batch_size":    len(batch),
	}).Info("Batch submitted")

	return &ingestResp, nil
}

// SubmitAll splits records into batches and submits them in order.
func (c *Client) SubmitAll(records []VolumeRecord) error {
	if len(records) == 0 {
		c.log.Debug("No records to submit")
		return nil
	}

	totalBatches := (len(records) + c.config.BatchSize - 1) / c.config.BatchSize
	for i := 0; i < len(records); i += c.config.BatchSize {
		end := i + c.config.BatchSize
		if end > len(records) {
			end = len(records)
		}

		batchNum := i/c.config.BatchSize + 1
		if _, err := c.SubmitBatch(VolumeBatch(records[i:end])); err != nil {
			return fmt.Errorf("export: batch %d/%d failed: %w", batchNum, totalBatches, err)
		}
	}

	c.log.WithFields(map[string]interface{}{
		"total_records": len(records),
		"total_batches": totalBatches,
	}).Info("All batches submitted")
	return nil
}
