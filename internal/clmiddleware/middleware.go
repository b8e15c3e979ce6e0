package clmiddleware

import (
	"net/http"
	"time"

	"biostore/internal/models/clmetrics"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/ulule/limiter/v3"
	ginlimiter "github.com/ulule/limiter/v3/drivers/middleware/gin"
	"github.com/ulule/limiter/v3/drivers/store/memory"
	sredis "github.com/ulule/limiter/v3/drivers/store/redis"
)

const (
	RequestIDHeader = "X-Request-Id"

	requestIDKey = "request_id"
	authIDKey    = "auth_id"
)

func InitMiddleware(r *gin.Engine, identityHeader string, metrics *clmetrics.Metrics) {
	// logger
	r.Use(RequestID())
	r.Use(Logger())
	r.Use(Recovery())

	// use Compression, with gzip
	r.Use(gzip.Gzip(gzip.BestSpeed))

	// durée des requêtes
	r.Use(Metrics(metrics))

	// CORS
	r.Use(CORS(identityHeader))

	r.Use(Identity(identityHeader))
}

func CORS(identityHeader string) gin.HandlerFunc {
	allowed := "Content-Type, Authorization, " + identityHeader
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PATCH, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", allowed)

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}

// NewLimiter limite par IP. Le store Redis est partagé entre instances,
// le store mémoire est local au processus.
func NewLimiter(perMinute int64, rdb *redis.Client) (gin.HandlerFunc, error) {
	rate := limiter.Rate{
		Period: 1 * time.Minute,
		Limit:  perMinute,
	}

	var store limiter.Store
	if rdb != nil {
		var err error
		store, err = sredis.NewStoreWithOptions(rdb, limiter.StoreOptions{
			Prefix: "biostore_limiter",
		})
		if err != nil {
			return nil, err
		}
	} else {
		store = memory.NewStore()
	}

	instance := limiter.New(store, rate)
	return ginlimiter.NewMiddleware(instance,
		ginlimiter.WithLimitReachedHandler(func(c *gin.Context) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "Too many requests"})
		}),
	), nil
}

// RequestID reprend l'en-tête X-Request-Id ou en génère un, et place un
// logger portant request_id dans le contexte de la requête
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if id == "" || len(id) > 128 {
			id = uuid.NewString()
		}
		c.Set(requestIDKey, id)
		c.Header(RequestIDHeader, id)

		reqLogger := log.With().Str("request_id", id).Logger()
		c.Request = c.Request.WithContext(reqLogger.WithContext(c.Request.Context()))
		c.Next()
	}
}

// GetRequestID retourne l'identifiant posé par RequestID
func GetRequestID(c *gin.Context) string {
	return c.GetString(requestIDKey)
}

// Identity lit le sujet transmis par le fournisseur d'identité
func Identity(header string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if v := c.GetHeader(header); v != "" {
			c.Set(authIDKey, v)
		}
		c.Next()
	}
}

// AuthID retourne l'identité de l'appelant, vide si absente
func AuthID(c *gin.Context) string {
	return c.GetString(authIDKey)
}

func Metrics(m *clmetrics.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.ObserveRequest(c.Request.Method, route, c.Writer.Status(), time.Since(start))
	}
}

// statusLevel: 404 en debug, 4xx en warn, 5xx en error
func statusLevel(status int) zerolog.Level {
	switch {
	case status == http.StatusNotFound:
		return zerolog.DebugLevel
	case status >= http.StatusInternalServerError:
		return zerolog.ErrorLevel
	case status >= http.StatusBadRequest:
		return zerolog.WarnLevel
	default:
		return zerolog.InfoLevel
	}
}

// Logger trace chaque requête avec le logger du contexte, posé par RequestID
func Logger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		target := c.Request.URL.RequestURI()

		c.Next()

		lg := zerolog.Ctx(c.Request.Context())
		status := c.Writer.Status()
		lg.WithLevel(statusLevel(status)).
			Str("method", c.Request.Method).
			Str("path", target).
			Str("route", c.FullPath()).
			Int("status", status).
			Dur("latency", time.Since(start)).
			Str("ip", c.ClientIP()).
			Str("user_agent", c.Request.UserAgent()).
			Bool("authenticated", AuthID(c) != "").
			Int("body_size", c.Writer.Size()).
			Msg("HTTP Request")

		for _, ge := range c.Errors {
			lg.Error().
				Err(ge.Err).
				Uint64("type", uint64(ge.Type)).
				Msg("Request error")
		}
	}
}

// Recovery transforme une panique en 500 JSON
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			zerolog.Ctx(c.Request.Context()).Error().
				Interface("panic", rec).
				Str("method", c.Request.Method).
				Str("path", c.Request.URL.Path).
				Msg("Panic recovered")
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		}()
		c.Next()
	}
}
