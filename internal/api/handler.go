// Package api exposes the trading core over HTTP and a websocket stream.
package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"soltrader/internal/events"
	"soltrader/internal/market"
	"soltrader/internal/trades"
	"soltrader/pkg/db"
)

// Server wires HTTP endpoints around the trades manager and the event bus.
type Server struct {
	Router    *gin.Engine
	Bus       *events.Bus
	DB        *db.Database
	Trades    *trades.Manager
	Market    *market.Manager
	JWTSecret string
	Meta      SystemMeta
}

// SystemMeta describes runtime status exposed to the UI.
type SystemMeta struct {
	SimMode     bool
	UseMockFeed bool
	Version     string
}

func NewServer(bus *events.Bus, database *db.Database, tradesMgr *trades.Manager, marketMgr *market.Manager, meta SystemMeta, jwtSecret string) *Server {
	r := gin.New()

	// Middleware stack (order matters!)
	r.Use(gin.Recovery())        // Panic recovery (first)
	r.Use(RequestIDMiddleware()) // Request ID tracking
	r.Use(RequestLogger())       // Request logging (after ID is set)
	r.Use(RateLimitMiddleware()) // Rate limiting
	r.Use(TimeoutMiddleware(30 * time.Second)) // Request timeout (30s)
	r.Use(CORSMiddleware())                    // CORS (last before routes)

	s := &Server{
		Router:    r,
		Bus:       bus,
		DB:        database,
		Trades:    tradesMgr,
		Market:    marketMgr,
		JWTSecret: jwtSecret,
		Meta:      meta,
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.Router.GET("/health", s.health)
	s.Router.GET("/ws", s.websocket)

	api := s.Router.Group("/api")
	{
		api.GET("/system/status", s.getSystemStatus)

		// Auth endpoints (no auth required)
		auth := api.Group("/auth")
		{
			auth.POST("/register", s.registerUser)
			auth.POST("/login", s.loginUser)
		}

		// Protected API
		protected := api.Group("")
		protected.Use(AuthMiddleware(s.JWTSecret))
		{
			protected.POST("/orders", s.executeOrder)
			protected.GET("/orders", s.listOrders)
			protected.GET("/orders/:signature", s.getTradeInfo)

			protected.POST("/trades/fast_buy", s.fastBuy)
			protected.POST("/trades/fast_sell", s.fastSell)
			protected.POST("/trades/sell_all", s.sellAll)
			protected.POST("/trades/sweep", s.sweep)

			protected.GET("/positions", s.getPositions)
			protected.GET("/positions/:token/pnl", s.getPnl)
			protected.GET("/positions/:token/status", s.getStatus)
			protected.GET("/totals", s.getTotals)
			protected.GET("/balance", s.getBalance)
			protected.GET("/tokens/:token", s.getTokenInfo)

			protected.GET("/strategies", s.listStrategies)
			protected.POST("/strategies", s.runStrategy)
			protected.GET("/strategies/names", s.getStrategyNames)
			protected.GET("/strategies/schema/:name", s.getStrategySchema)
			protected.POST("/strategies/:id/toggle", s.toggleStrategy)
			protected.DELETE("/strategies/:id", s.deleteStrategy)
		}
	}
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) getSystemStatus(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"sim_mode":         s.Meta.SimMode,
		"use_mock_feed":    s.Meta.UseMockFeed,
		"version":          s.Meta.Version,
		"latest_blockhash": s.Trades.LatestBlockhash(),
		"price_cache":      s.Market.PriceCacheStats(),
	})
}

func (s *Server) Start(addr string) error {
	return s.Router.Run(addr)
}
