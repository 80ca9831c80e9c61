package http

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// RequestIDHeader 每个请求携带的追踪 ID
const RequestIDHeader = "X-Request-Id"

// Options 传输层参数
type Options struct {
	Timeout          time.Duration
	RetryCount       int
	RetryWaitTime    time.Duration
	RetryMaxWaitTime time.Duration
}

// DefaultOptions 默认传输参数
func DefaultOptions() Options {
	return Options{
		Timeout:          10 * time.Second,
		RetryCount:       2,
		RetryWaitTime:    500 * time.Millisecond,
		RetryMaxWaitTime: 5 * time.Second,
	}
}

type Client struct {
	client *resty.Client
}

func NewClient(host string, opts Options) *Client {
	host = strings.TrimSuffix(host, "/")

	// resty 只在网络错误时重试；429 额外按 Retry-After 等待
	client := resty.New().
		SetBaseURL(host).
		SetTimeout(opts.Timeout).
		SetRetryCount(opts.RetryCount).
		SetRetryWaitTime(opts.RetryWaitTime).
		SetRetryMaxWaitTime(opts.RetryMaxWaitTime).
		AddRetryCondition(func(resp *resty.Response, err error) bool {
			return resp != nil && resp.StatusCode() == http.StatusTooManyRequests
		}).
		SetRetryAfter(func(client *resty.Client, resp *resty.Response) (time.Duration, error) {
			if resp != nil && resp.StatusCode() == http.StatusTooManyRequests {
				if retryAfter := resp.Header().Get("Retry-After"); retryAfter != "" {
					if seconds, err := time.ParseDuration(retryAfter + "s"); err == nil {
						return seconds, nil
					}
				}
				return opts.RetryMaxWaitTime, nil
			}
			return 0, nil
		})

	return &Client{client: client}
}

type RequestOptions struct {
	Headers map[string]string
	Data    any
	Params  map[string]any
}

// 仅设置本次请求的 Header（不改 client 级 Header）
func (c *Client) newRequest(ctx context.Context) *resty.Request {
	r := c.client.R()
	if ctx != nil {
		r.SetContext(ctx)
	}
	r.SetHeader("Accept", "application/json")
	r.SetHeader("User-Agent", "gridhedge-client")
	r.SetHeader(RequestIDHeader, uuid.NewString())
	return r
}

// Do 发送请求；2xx 时把响应体解码进 out，非 2xx 返回 *Error
func (c *Client) Do(ctx context.Context, method, endpoint string, opt *RequestOptions, out any) error {
	rc := c.newRequest(ctx)
	if opt != nil {
		for k, v := range opt.Headers {
			rc.SetHeader(k, v)
		}
		if opt.Params != nil {
			rc.SetQueryParamsFromValues(toValues(opt.Params))
		}
		if opt.Data != nil {
			rc.SetHeader("Content-Type", "application/json")
			rc.SetBody(opt.Data)
		}
	}
	if out != nil {
		rc.SetResult(out)
	}

	switch m := strings.ToUpper(method); m {
	case http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		resp, err := rc.Execute(m, endpoint)
		return ParseHTTPError(resp, err)
	default:
		return fmt.Errorf("unsupported method: %s", method)
	}
}

func toValues(m map[string]any) map[string][]string {
	v := make(map[string][]string, len(m))
	for k, val := range m {
		switch t := val.(type) {
		case []string:
			v[k] = t
		default:
			v[k] = []string{fmt.Sprint(val)}
		}
	}
	return v
}

// Error 后端返回的非 2xx 响应
type Error struct {
	Status  int
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("http %d: %s", e.Status, e.Message)
}

// DefaultErrorMessage 响应体中没有可用 detail 时的提示
const DefaultErrorMessage = "request to backend failed"

// ParseHTTPError 把传输错误与非 2xx 响应统一成 error。
// 后端错误体形如 {"detail": "..."} 或 {"detail": [{"msg": "..."}]}。
func ParseHTTPError(resp *resty.Response, err error) error {
	if err != nil {
		return errors.Wrap(err, "http request")
	}
	if resp == nil {
		return errors.New("http request: empty response")
	}
	if resp.IsSuccess() {
		return nil
	}
	return &Error{Status: resp.StatusCode(), Message: detailMessage(resp.Body())}
}

func detailMessage(body []byte) string {
	var payload struct {
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(body, &payload); err != nil || len(payload.Detail) == 0 {
		return DefaultErrorMessage
	}
	var s string
	if err := json.Unmarshal(payload.Detail, &s); err == nil && s != "" {
		return s
	}
	var items []struct {
		Msg string `json:"msg"`
	}
	if err := json.Unmarshal(payload.Detail, &items); err == nil && len(items) > 0 && items[0].Msg != "" {
		return items[0].Msg
	}
	return DefaultErrorMessage
}
