package api

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/betbot/gridhedge/internal/domain"
	sdkhttp "github.com/betbot/gridhedge/pkg/sdk/http"
)

var log = logrus.WithField("module", "sdk.api")

// DefaultBaseURL 本地后端默认地址
const DefaultBaseURL = "http://127.0.0.1:8000/api"

// Client 品种配置后端的类型化客户端
type Client struct {
	http *sdkhttp.Client
}

// NewClient creates a backend client rooted at baseURL (".../api").
func NewClient(baseURL string, opts sdkhttp.Options) *Client {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{http: sdkhttp.NewClient(baseURL, opts)}
}

func trimmed(s string) string { return strings.TrimSpace(s) }

func instrumentPath(symbol string) string {
	return "/instruments/" + url.PathEscape(symbol)
}

// GetSpecs 拉取全部交易对步长并换算小数位
func (c *Client) GetSpecs(ctx context.Context) ([]domain.SymbolSpec, error) {
	var raw []SymbolSpec
	if err := c.http.Do(ctx, http.MethodGet, "/specs/", nil, &raw); err != nil {
		return nil, errors.Wrap(err, "get specs")
	}
	specs := make([]domain.SymbolSpec, 0, len(raw))
	for _, s := range raw {
		specs = append(specs, s.ToDomain())
	}
	log.Debugf("loaded %d symbol specs", len(specs))
	return specs, nil
}

// ListInstruments 拉取已配置品种（按后端顺序）
func (c *Client) ListInstruments(ctx context.Context) ([]domain.Instrument, error) {
	var raw []Instrument
	if err := c.http.Do(ctx, http.MethodGet, "/instruments/", nil, &raw); err != nil {
		return nil, errors.Wrap(err, "list instruments")
	}
	out := make([]domain.Instrument, 0, len(raw))
	for _, inst := range raw {
		out = append(out, inst.ToDomain())
	}
	return out, nil
}

// CreateInstrument 以默认参数创建品种
func (c *Client) CreateInstrument(ctx context.Context, symbol string) (domain.Instrument, error) {
	var raw Instrument
	opt := &sdkhttp.RequestOptions{Data: map[string]string{"symbol": symbol}}
	if err := c.http.Do(ctx, http.MethodPost, "/instruments/", opt, &raw); err != nil {
		return domain.Instrument{}, errors.Wrapf(err, "create instrument %s", symbol)
	}
	return raw.ToDomain(), nil
}

// UpdateInstrument 提交部分字段，返回后端确认后的完整品种
func (c *Client) UpdateInstrument(ctx context.Context, symbol string, patch domain.InstrumentPatch) (domain.Instrument, error) {
	var raw Instrument
	opt := &sdkhttp.RequestOptions{Data: PatchFromDomain(patch)}
	if err := c.http.Do(ctx, http.MethodPatch, instrumentPath(symbol), opt, &raw); err != nil {
		return domain.Instrument{}, errors.Wrapf(err, "update instrument %s", symbol)
	}
	return raw.ToDomain(), nil
}

// DeleteInstrument 删除品种；后端对不存在的品种同样返回 204
func (c *Client) DeleteInstrument(ctx context.Context, symbol string) error {
	if err := c.http.Do(ctx, http.MethodDelete, instrumentPath(symbol), nil, nil); err != nil {
		return errors.Wrapf(err, "delete instrument %s", symbol)
	}
	return nil
}

// SettingsConfigured reports whether exchange credentials are stored on the backend.
func (c *Client) SettingsConfigured(ctx context.Context) (bool, error) {
	var status SettingsStatus
	if err := c.http.Do(ctx, http.MethodGet, "/settings/status", nil, &status); err != nil {
		return false, errors.Wrap(err, "settings status")
	}
	return status.Configured, nil
}

// AuthorizeSettings 用管理密码读取当前凭证
func (c *Client) AuthorizeSettings(ctx context.Context, password string) (Settings, error) {
	var s Settings
	opt := &sdkhttp.RequestOptions{Data: PasswordRequest{Password: password}}
	if err := c.http.Do(ctx, http.MethodPost, "/settings/authorize", opt, &s); err != nil {
		return Settings{}, errors.Wrap(err, "authorize settings")
	}
	return s, nil
}

// UpdateSettings 更新凭证；需要管理密码
func (c *Client) UpdateSettings(ctx context.Context, req SettingsUpdate) (Settings, error) {
	var s Settings
	if err := c.http.Do(ctx, http.MethodPut, "/settings/", &sdkhttp.RequestOptions{Data: req}, &s); err != nil {
		return Settings{}, errors.Wrap(err, "update settings")
	}
	return s, nil
}

// ErrorMessage 提取可展示给用户的错误文本：后端 detail 优先，其次是原始错误
func ErrorMessage(err error) string {
	if err == nil {
		return ""
	}
	var he *sdkhttp.Error
	if errors.As(err, &he) {
		return he.Message
	}
	return errors.Cause(err).Error()
}

// StatusCode returns the backend HTTP status carried by err, or 0.
func StatusCode(err error) int {
	var he *sdkhttp.Error
	if errors.As(err, &he) {
		return he.Status
	}
	return 0
}
