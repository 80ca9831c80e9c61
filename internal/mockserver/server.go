package mockserver

import (
	"crypto/hmac"
	"crypto/sha256"
	"errors"
	"net/http"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/betbot/gridhedge/internal/domain"
	"github.com/betbot/gridhedge/pkg/sdk/api"
	sdkhttp "github.com/betbot/gridhedge/pkg/sdk/http"
)

var log = logrus.WithField("module", "mockserver")

// DefaultAdminPassword 本地调试用的管理密码
const DefaultAdminPassword = "admin"

type Config struct {
	Specs         []api.SymbolSpec
	AdminPassword string
	Settings      api.Settings
	// RateLimit 每秒允许的请求数，0 表示不限流；超出时返回 429
	RateLimit float64
	RateBurst int
}

// Server 内存版品种配置后端，接口与桌面端使用的后端一致
type Server struct {
	specs        []api.SymbolSpec
	passwordHash [sha256.Size]byte
	limiter      *rate.Limiter

	mu          sync.RWMutex
	order       []string
	instruments map[string]domain.Instrument
	settings    api.Settings
}

func New(cfg Config) (*Server, error) {
	if len(cfg.Specs) == 0 {
		cfg.Specs = DefaultSpecs()
	}
	if cfg.AdminPassword == "" {
		return nil, errors.New("admin password is required")
	}
	specs := make([]api.SymbolSpec, 0, len(cfg.Specs))
	for _, s := range cfg.Specs {
		s.Symbol = strings.ToUpper(strings.TrimSpace(s.Symbol))
		if s.Symbol == "" {
			continue
		}
		specs = append(specs, s)
	}
	var limiter *rate.Limiter
	if cfg.RateLimit > 0 {
		burst := cfg.RateBurst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)
	}
	return &Server{
		specs:        specs,
		limiter:      limiter,
		passwordHash: sha256.Sum256([]byte(cfg.AdminPassword)),
		instruments:  make(map[string]domain.Instrument),
		settings:     cfg.Settings,
	}, nil
}

func (s *Server) Router() http.Handler {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery(), requestID(), s.rateLimit())

	r.GET("/healthz", func(c *gin.Context) { c.Status(http.StatusOK) })

	apiGroup := r.Group("/api")

	apiGroup.GET("/specs/", s.handleSpecsList)

	instruments := apiGroup.Group("/instruments")
	instruments.GET("/", s.handleInstrumentsList)
	instruments.POST("/", s.handleInstrumentCreate)
	instruments.PATCH("/:symbol", s.handleInstrumentUpdate)
	instruments.DELETE("/:symbol", s.handleInstrumentDelete)

	settings := apiGroup.Group("/settings")
	settings.GET("/status", s.handleSettingsStatus)
	settings.POST("/authorize", s.handleSettingsAuthorize)
	settings.PUT("/", s.handleSettingsUpdate)

	return r
}

// requestID 回显客户端的 X-Request-Id，缺失时生成一个
func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(sdkhttp.RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Header(sdkhttp.RequestIDHeader, id)
		c.Next()
		log.WithField("request_id", id).Debugf("%s %s -> %d", c.Request.Method, c.Request.URL.Path, c.Writer.Status())
	}
}

// rateLimit 超出速率时返回 429 并带 Retry-After
func (s *Server) rateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		if s.limiter == nil || s.limiter.Allow() {
			c.Next()
			return
		}
		c.Header("Retry-After", "1")
		writeError(c, http.StatusTooManyRequests, "Too many requests")
	}
}

func writeJSON(c *gin.Context, status int, v any) {
	c.JSON(status, v)
}

func writeError(c *gin.Context, status int, detail string) {
	c.AbortWithStatusJSON(status, api.ErrorBody{Detail: detail})
}

// writeValidationError 请求体无法解析时按列表形式返回 detail
func writeValidationError(c *gin.Context, err error) {
	c.AbortWithStatusJSON(http.StatusUnprocessableEntity, gin.H{
		"detail": []gin.H{{"msg": err.Error(), "type": "value_error"}},
	})
}

func (s *Server) verifyPassword(password string) bool {
	candidate := sha256.Sum256([]byte(password))
	return hmac.Equal(candidate[:], s.passwordHash[:])
}

func (s *Server) specFor(symbol string) (api.SymbolSpec, bool) {
	for _, spec := range s.specs {
		if spec.Symbol == symbol {
			return spec, true
		}
	}
	return api.SymbolSpec{}, false
}
