package server

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"chat-client/internal/middleware"
	"chat-client/internal/observability"
	"chat-client/internal/remote"
	"chat-client/internal/telemetry"
)

// Server is the dev backend: a document store, credential accounts and
// blob storage behind HTTP and websocket endpoints, speaking the same
// wire contract the client SDK consumes.
type Server struct {
	store    remote.DocumentStore
	accounts Accounts
	blobs    BlobStorage
	tokens   *TokenIssuer
	audit    *telemetry.AuditEmitter
}

func New(store remote.DocumentStore, accounts Accounts, blobs BlobStorage, tokens *TokenIssuer, audit *telemetry.AuditEmitter) *Server {
	return &Server{
		store:    store,
		accounts: accounts,
		blobs:    blobs,
		tokens:   tokens,
		audit:    audit,
	}
}

// Router builds the gin engine with all routes mounted.
func (s *Server) Router() *gin.Engine {
	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery(), observability.HTTPMetricsMiddleware())

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	router.POST("/auth/register", s.handleRegister)
	router.POST("/auth/login", s.handleLogin)

	authRequired := middleware.AuthMiddleware(s.tokens)
	router.PATCH("/auth/profile", authRequired, s.handleUpdateProfile)

	// Queries accept anonymous callers: the client checks username
	// availability before the account behind it exists.
	router.POST("/v1/query", middleware.OptionalAuth(s.tokens), s.handleQuery)

	v1 := router.Group("/v1", authRequired)
	v1.GET("/documents/:collection/:id", s.handleGet)
	v1.POST("/documents/:collection", s.handleAdd)
	v1.PUT("/documents/:collection/:id", s.handleSet)
	v1.PATCH("/documents/:collection/:id", s.handleUpdate)
	v1.POST("/documents/:collection/:id/array-union", s.handleArrayUnion)
	v1.POST("/documents/:collection/:id/array-remove", s.handleArrayRemove)
	v1.DELETE("/documents/:collection/:id", s.handleDelete)
	v1.POST("/blobs", s.handleUploadBlob)

	// The watch endpoint authenticates inside the handler so the token
	// can travel as a query parameter during the websocket handshake.
	router.GET("/v1/watch", s.handleWatch)

	// Blob fetches stay public: resolved URLs are embedded in img tags.
	router.GET("/blobs/*path", s.handleFetchBlob)

	return router
}
