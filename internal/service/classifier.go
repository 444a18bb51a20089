package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"photoquest_backend/internal/config"
	"photoquest_backend/internal/model"
)

// ClassifierResult 远程分类器对单张照片的输出
type ClassifierResult struct {
	IsAppropriate bool                 `json:"isAppropriate"`
	Confidence    float64              `json:"confidence"`
	Categories    model.RiskCategories `json:"categories"`
	Labels        []string             `json:"labels"`
	Lighting      float64              `json:"lighting"`
	Blur          float64              `json:"blur"`
	Composition   float64              `json:"composition"`
	Reason        string               `json:"reason,omitempty"`
}

// VisionClassifier is the port for the remote image moderation function.
// Implementations must treat the remote side as potentially unavailable.
type VisionClassifier interface {
	Classify(ctx context.Context, artifactURL string) (*ClassifierResult, error)
}

// HTTPClassifier 通过HTTP调用远程视觉模型
type HTTPClassifier struct {
	config config.ModerationConfig
	client *http.Client
}

func NewHTTPClassifier(cfg config.ModerationConfig) *HTTPClassifier {
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTPClassifier{
		config: cfg,
		client: &http.Client{Timeout: timeout},
	}
}

type classifyRequest struct {
	Model    string `json:"model"`
	ImageURL string `json:"image_url"`
}

// Classify calls the remote classifier, retrying once on transient failures
// (network errors and 5xx). Non-transient errors surface immediately.
func (c *HTTPClassifier) Classify(ctx context.Context, artifactURL string) (*ClassifierResult, error) {
	result, err := c.classifyOnce(ctx, artifactURL)
	if err != nil && isTransient(err) {
		result, err = c.classifyOnce(ctx, artifactURL)
	}
	return result, err
}

func (c *HTTPClassifier) classifyOnce(ctx context.Context, artifactURL string) (*ClassifierResult, error) {
	jsonData, _ := json.Marshal(classifyRequest{
		Model:    c.config.Model,
		ImageURL: artifactURL,
	})

	req, err := http.NewRequestWithContext(ctx, "POST", c.config.BaseURL+"/v1/moderate", bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.config.APIKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, &classifierHTTPError{status: resp.StatusCode, body: string(body)}
	}

	var result ClassifierResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, err
	}
	return &result, nil
}

type classifierHTTPError struct {
	status int
	body   string
}

func (e *classifierHTTPError) Error() string {
	return fmt.Sprintf("classifier error (status %d): %s", e.status, e.body)
}

func isTransient(err error) bool {
	var httpErr *classifierHTTPError
	if errors.As(err, &httpErr) {
		return httpErr.status >= 500
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return netErr.Timeout()
	}
	// 连接级错误一律视为瞬时
	var opErr *net.OpError
	return errors.As(err, &opErr)
}
