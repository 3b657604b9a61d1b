package etclient

import "fmt"

// AuthError означает отказ в авторизации (401/403).
// Учетные данные общие для всего запуска, поэтому ошибка фатальна
// для запуска целиком, а не для отдельного окна
type AuthError struct {
	StatusCode int
	URL        string
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("отказ в авторизации ET API (%d) на %s", e.StatusCode, e.URL)
}

// TransientError означает временную ошибку (сеть, 5xx),
// запрос повторяется с экспоненциальной задержкой
type TransientError struct {
	URL string
	Err error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("временная ошибка запроса %s: %v", e.URL, e.Err)
}

func (e *TransientError) Unwrap() error { return e.Err }

// APIError означает постоянную ошибку API (4xx кроме авторизации),
// повтор не имеет смысла, окно завершается с ошибкой
type APIError struct {
	StatusCode int
	URL        string
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("ошибка ET API (%d) на %s: %s", e.StatusCode, e.URL, e.Body)
}
