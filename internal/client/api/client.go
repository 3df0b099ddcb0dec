package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/Jaffar451/site-justice-mobile-sub001/internal/models"
	"github.com/Jaffar451/site-justice-mobile-sub001/pkg/api"
)

// ErrNotFound is matched by 404 responses
var ErrNotFound = models.ErrNotFound

// HTTPError is a non-2xx response from the server
type HTTPError struct {
	Message    string
	StatusCode int
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("server error (%d): %s", e.StatusCode, e.Message)
}

// Is matches ErrNotFound for 404 responses
func (e *HTTPError) Is(target error) bool {
	return target == ErrNotFound && e.StatusCode == http.StatusNotFound
}

// Client представляет HTTP клиент для взаимодействия с сервером
type Client struct {
	httpClient *http.Client
	baseURL    string
	token      string
}

// Option configures a Client
type Option func(*Client)

// WithToken sets the opaque bearer token forwarded on every request
func WithToken(token string) Option {
	return func(c *Client) {
		c.token = token
	}
}

// WithTimeout overrides the overall request timeout. Non-positive values keep the default.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.httpClient.Timeout = timeout
		}
	}
}

// NewClient создает новый API клиент
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
			// Настройка обработки редиректов
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				// Ограничиваем количество редиректов
				if len(via) >= 10 {
					return fmt.Errorf("stopped after 10 redirects")
				}
				// Копируем заголовки Authorization при редиректе
				if len(via) > 0 && via[0].Header.Get(api.HeaderAuthorization) != "" {
					req.Header.Set(api.HeaderAuthorization, via[0].Header.Get(api.HeaderAuthorization))
				}
				return nil
			},
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Health проверяет доступность сервера
func (c *Client) Health(ctx context.Context) error {
	var resp api.HealthResponse
	if err := c.doRequest(ctx, http.MethodGet, "/api/v1/health", nil, nil, &resp); err != nil {
		return fmt.Errorf("health request failed: %w", err)
	}
	return nil
}

// ListComplaints получает список жалоб
func (c *Client) ListComplaints(ctx context.Context) ([]models.Complaint, error) {
	var resp api.ListComplaintsResponse
	if err := c.doRequest(ctx, http.MethodGet, "/api/v1/complaints", nil, nil, &resp); err != nil {
		return nil, fmt.Errorf("list complaints request failed: %w", err)
	}

	complaints := make([]models.Complaint, 0, len(resp.Complaints))
	for _, item := range resp.Complaints {
		complaints = append(complaints, toModel(item))
	}
	return complaints, nil
}

// GetComplaint получает жалобу по серверному id
func (c *Client) GetComplaint(ctx context.Context, id string) (*models.Complaint, error) {
	var resp api.Complaint
	path := "/api/v1/complaints/" + url.PathEscape(id)
	if err := c.doRequest(ctx, http.MethodGet, path, nil, nil, &resp); err != nil {
		return nil, fmt.Errorf("get complaint request failed: %w", err)
	}

	complaint := toModel(resp)
	return &complaint, nil
}

// CreateComplaint подает жалобу. Повтор с тем же ключом возвращает исходную запись.
func (c *Client) CreateComplaint(ctx context.Context, idempotencyKey string, req api.CreateComplaintRequest) (*models.Complaint, error) {
	var resp api.Complaint
	headers := map[string]string{api.HeaderIdempotencyKey: idempotencyKey}
	if err := c.doRequest(ctx, http.MethodPost, "/api/v1/complaints", headers, req, &resp); err != nil {
		return nil, fmt.Errorf("create complaint request failed: %w", err)
	}

	complaint := toModel(resp)
	return &complaint, nil
}

// UpdateComplaint применяет частичное обновление
func (c *Client) UpdateComplaint(ctx context.Context, idempotencyKey, id string, req api.UpdateComplaintRequest) (*models.Complaint, error) {
	var resp api.Complaint
	headers := map[string]string{api.HeaderIdempotencyKey: idempotencyKey}
	path := "/api/v1/complaints/" + url.PathEscape(id)
	if err := c.doRequest(ctx, http.MethodPatch, path, headers, req, &resp); err != nil {
		return nil, fmt.Errorf("update complaint request failed: %w", err)
	}

	complaint := toModel(resp)
	return &complaint, nil
}

// DeleteComplaint отзывает жалобу
func (c *Client) DeleteComplaint(ctx context.Context, idempotencyKey, id, reason string) error {
	headers := map[string]string{api.HeaderIdempotencyKey: idempotencyKey}
	path := "/api/v1/complaints/" + url.PathEscape(id)
	if reason != "" {
		path += "?reason=" + url.QueryEscape(reason)
	}
	if err := c.doRequest(ctx, http.MethodDelete, path, headers, nil, nil); err != nil {
		return fmt.Errorf("delete complaint request failed: %w", err)
	}
	return nil
}

// doRequest выполняет HTTP запрос
func (c *Client) doRequest(ctx context.Context, method, path string, headers map[string]string, body, result interface{}) error {
	reqURL := c.baseURL + path

	var bodyReader io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		bodyReader = bytes.NewReader(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL, bodyReader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set(api.HeaderAuthorization, "Bearer "+c.token)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	// Читаем тело ответа
	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	// Проверяем статус код
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var errResp api.ErrorResponse
		if err := json.Unmarshal(respBody, &errResp); err == nil && errResp.Message != "" {
			return &HTTPError{StatusCode: resp.StatusCode, Message: errResp.Message}
		}
		return &HTTPError{StatusCode: resp.StatusCode, Message: string(respBody)}
	}

	// Декодируем успешный ответ
	if result != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}

	return nil
}

func toModel(c api.Complaint) models.Complaint {
	return models.Complaint{
		CreatedAt:   c.CreatedAt,
		UpdatedAt:   c.UpdatedAt,
		ID:          c.ID,
		Title:       c.Title,
		Description: c.Description,
		Category:    c.Category,
		Location:    c.Location,
		Status:      c.Status,
		ClientRef:   c.ClientRef,
	}
}
