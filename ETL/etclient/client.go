// Package etclient реализует клиент Ender Turing API:
// авторизацию по токену или паролю и GET-запросы с ограниченными повторами
package etclient

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/LilVoxy/et_dwh_sync/ETL/config"
	"github.com/LilVoxy/et_dwh_sync/ETL/utils"
)

// apiPrefix префикс всех эндпоинтов ET API
const apiPrefix = "/api/v1"

// Client представляет авторизованное подключение к ET API
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	retry      config.RetryConfig
	logger     *utils.ETLLogger
}

// NewClient создает клиент с готовым базовым URL без префикса по умолчанию
func NewClient(baseURL, token string, retry config.RetryConfig, logger *utils.ETLLogger) *Client {
	return &Client{
		baseURL:    baseURL,
		token:      token,
		httpClient: &http.Client{Timeout: 60 * time.Second},
		retry:      retry,
		logger:     logger,
	}
}

// NewClientByToken создает клиент с авторизацией по персональному токену
func NewClientByToken(domain, token string, retry config.RetryConfig, logger *utils.ETLLogger) (*Client, error) {
	if domain == "" {
		return nil, fmt.Errorf("не задан домен ET API (ET_DOMAIN)")
	}
	if token == "" {
		return nil, fmt.Errorf("не задан токен ET API (ET_TOKEN)")
	}
	return NewClient("https://"+domain+apiPrefix, token, retry, logger), nil
}

// NewClientByPassword создает клиент с авторизацией по логину и паролю:
// пароль обменивается на токен доступа через /login/access-token
func NewClientByPassword(ctx context.Context, domain, user, password string, retry config.RetryConfig, logger *utils.ETLLogger) (*Client, error) {
	if domain == "" {
		return nil, fmt.Errorf("не задан домен ET API (ET_DOMAIN)")
	}
	if user == "" || password == "" {
		return nil, fmt.Errorf("не заданы логин или пароль ET API (ET_USER/ET_PASSWORD)")
	}

	c := &Client{
		baseURL:    "https://" + domain + apiPrefix,
		httpClient: &http.Client{Timeout: 60 * time.Second},
		retry:      retry,
		logger:     logger,
	}

	form := url.Values{}
	form.Set("username", user)
	form.Set("password", password)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/login/access-token", strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("ошибка формирования запроса авторизации: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("ошибка запроса авторизации: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return nil, &AuthError{StatusCode: resp.StatusCode, URL: req.URL.Path}
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, &APIError{StatusCode: resp.StatusCode, URL: req.URL.Path, Body: string(body)}
	}

	var tokenResp struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&tokenResp); err != nil {
		return nil, fmt.Errorf("ошибка разбора ответа авторизации: %w", err)
	}
	if tokenResp.AccessToken == "" {
		return nil, fmt.Errorf("пустой токен доступа в ответе авторизации")
	}

	c.token = tokenResp.AccessToken
	return c, nil
}

// Get выполняет GET-запрос к ET API и разбирает JSON-ответ в out.
// Временные ошибки (сеть, 5xx) повторяются согласно политике повторов,
// 401/403 возвращает AuthError сразу, прочие 4xx — APIError сразу
func (c *Client) Get(ctx context.Context, path string, params url.Values, out interface{}) error {
	fullURL := c.baseURL + path
	if len(params) > 0 {
		fullURL += "?" + params.Encode()
	}

	var lastErr error
	for attempt := 1; attempt <= c.retry.MaxAttempts; attempt++ {
		if attempt > 1 {
			delay := c.backoffDelay(attempt - 1)
			c.logger.Warn("Повтор запроса %s (попытка %d из %d) через %v: %v",
				path, attempt, c.retry.MaxAttempts, delay, lastErr)
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		err := c.doGet(ctx, fullURL, out)
		if err == nil {
			return nil
		}
		lastErr = err

		// Повторяем только временные ошибки
		if _, transient := err.(*TransientError); !transient {
			return err
		}
	}

	return fmt.Errorf("исчерпаны попытки запроса %s: %w", path, lastErr)
}

// doGet выполняет одну попытку запроса
func (c *Client) doGet(ctx context.Context, fullURL string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return fmt.Errorf("ошибка формирования запроса: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/json")

	c.logger.Debug("Запрос к ET API: GET %s", fullURL)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return &TransientError{URL: fullURL, Err: err}
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return &AuthError{StatusCode: resp.StatusCode, URL: fullURL}
	case resp.StatusCode >= 500:
		return &TransientError{URL: fullURL, Err: fmt.Errorf("статус %d", resp.StatusCode)}
	case resp.StatusCode >= 400:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &APIError{StatusCode: resp.StatusCode, URL: fullURL, Body: string(body)}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("ошибка разбора JSON-ответа %s: %w", fullURL, err)
	}
	return nil
}

// backoffDelay возвращает задержку перед указанным по счету повтором
func (c *Client) backoffDelay(retryNumber int) time.Duration {
	delay := time.Duration(float64(c.retry.BaseDelay) * math.Pow(c.retry.Multiplier, float64(retryNumber-1)))
	if delay > c.retry.MaxDelay {
		delay = c.retry.MaxDelay
	}
	if delay < 0 {
		delay = c.retry.MaxDelay
	}
	return delay
}
