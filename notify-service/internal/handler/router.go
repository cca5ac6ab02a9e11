package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	pkglog "github.com/weiawesome/wes-io-live/pkg/log"
	"github.com/weiawesome/wes-io-live/pkg/middleware"
)

// NewRouter builds the gin engine serving the gateway and presence routes.
func NewRouter(logger zerolog.Logger, allowEmbedding bool, httpHandler *Handler, wsHandler *WSHandler) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(pkglog.GinMiddleware(logger, "/health"))
	if allowEmbedding {
		r.Use(middleware.AllowEmbedding())
	}

	httpHandler.RegisterRoutes(r)
	if wsHandler != nil {
		wsHandler.RegisterRoutes(r)
	}
	return r
}
