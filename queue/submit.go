package queue

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strconv"
	"time"
)

// HTTPSubmitter replays queued reports against the report ingestion endpoint
// using the same multipart contract a live browser submission uses
type HTTPSubmitter struct {
	BaseURL string
	Client  *http.Client
}

// NewHTTPSubmitter builds a submitter for the given API base URL
func NewHTTPSubmitter(baseURL string) *HTTPSubmitter {
	return &HTTPSubmitter{
		BaseURL: baseURL,
		Client:  &http.Client{Timeout: 60 * time.Second},
	}
}

// Submit posts one queued report. 2xx means accepted; any other 4xx is a
// TerminalError the engine parks immediately; everything else is transient
// and retried.
func (h *HTTPSubmitter) Submit(ctx context.Context, report QueuedReport, images []QueuedImage) error {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	writer.WriteField("qrToken", report.QRToken)
	if report.Latitude != nil {
		writer.WriteField("latitude", strconv.FormatFloat(*report.Latitude, 'f', -1, 64))
	}
	if report.Longitude != nil {
		writer.WriteField("longitude", strconv.FormatFloat(*report.Longitude, 'f', -1, 64))
	}
	if report.ManualLocation != "" {
		writer.WriteField("manualLocation", report.ManualLocation)
	}
	if report.HelperNote != "" {
		writer.WriteField("helperNote", report.HelperNote)
	}
	for _, img := range images {
		header := make(textproto.MIMEHeader)
		header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="images"; filename=%q`, img.Filename))
		header.Set("Content-Type", img.MimeType)
		part, err := writer.CreatePart(header)
		if err != nil {
			return err
		}
		if _, err := part.Write(img.Body); err != nil {
			return err
		}
	}
	if err := writer.Close(); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.BaseURL+"/api/v1/report?sync=true", &body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := h.Client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	if resp.StatusCode >= 400 && resp.StatusCode < 500 {
		return &TerminalError{Status: resp.StatusCode, Reason: string(msg)}
	}
	return fmt.Errorf("server returned status %d: %s", resp.StatusCode, msg)
}

// OnlineProbe returns a connectivity check against the server health route
func OnlineProbe(baseURL string) func(ctx context.Context) bool {
	client := &http.Client{Timeout: 5 * time.Second}
	return func(ctx context.Context) bool {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+"/health", nil)
		if err != nil {
			return false
		}
		resp, err := client.Do(req)
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}
}
