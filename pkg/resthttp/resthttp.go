package resthttp

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
)

// New resty client for endpoint
func New(endpoint string, timeout time.Duration) *resty.Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return resty.New().
		SetHostURL(endpoint).
		SetHeader("Content-Type", "application/json").
		SetHeader("Charset", "utf-8").
		SetTimeout(timeout)
}

// ParseResponse decode a successful response body into obj
func ParseResponse(r *resty.Response, obj interface{}) error {
	if !r.IsSuccess() {
		return fmt.Errorf("%s %s: %s", r.Request.Method, r.Request.URL, r.Status())
	}

	if obj == nil {
		return nil
	}

	return json.Unmarshal(r.Body(), obj)
}
