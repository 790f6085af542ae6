// Package forward transmits validated files to the downstream third-party
// endpoint with bounded exponential-backoff retries.
package forward

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
)

// Sender uploads files to the configured endpoint. It implements
// intake.Forwarder.
type Sender struct {
	url        string
	apiKey     string
	maxRetries int
	client     *http.Client
	logger     *zap.Logger
}

func NewSender(url, apiKey string, maxRetries int, logger *zap.Logger) *Sender {
	return &Sender{
		url:        url,
		apiKey:     apiKey,
		maxRetries: maxRetries,
		client:     &http.Client{Timeout: 30 * time.Second},
		logger:     logger.With(zap.String("component", "forward")),
	}
}

// Send uploads path, retrying up to maxRetries times with exponential backoff
// starting at one second. With no endpoint configured the call is a logged
// no-op: the file stays in the validated folder either way.
func (s *Sender) Send(ctx context.Context, path string) error {
	if s.url == "" {
		s.logger.Debug("no forward endpoint configured, skipping", zap.String("path", path))
		return nil
	}

	fileName := filepath.Base(path)
	s.logger.Info("sending file to third party", zap.String("file", fileName))

	var lastErr error
	for attempt := 1; attempt <= s.maxRetries; attempt++ {
		if attempt > 1 {
			backoff := time.Duration(1<<(attempt-2)) * time.Second
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
		}

		if err := s.upload(ctx, path, fileName); err != nil {
			lastErr = err
			s.logger.Error("transmission attempt failed",
				zap.String("file", fileName),
				zap.Int("attempt", attempt),
				zap.Int("max_retries", s.maxRetries),
				zap.Error(err))
			continue
		}

		s.logger.Info("file sent to third party", zap.String("file", fileName))
		return nil
	}

	return fmt.Errorf("send %s after %d attempts: %w", fileName, s.maxRetries, lastErr)
}

func (s *Sender) upload(ctx context.Context, path, fileName string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open file: %w", err)
	}
	defer f.Close()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", fileName)
	if err != nil {
		return fmt.Errorf("create form file: %w", err)
	}
	if _, err := io.Copy(part, f); err != nil {
		return fmt.Errorf("read file: %w", err)
	}
	if err := mw.Close(); err != nil {
		return fmt.Errorf("finalize form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, &body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	if s.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+s.apiKey)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("post file: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("third party returned HTTP %d", resp.StatusCode)
	}
	return nil
}
