package http

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	gin "github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/Flight-Inspired/PaperTrade/internal/cache"
	"github.com/Flight-Inspired/PaperTrade/internal/domain"
	"github.com/Flight-Inspired/PaperTrade/internal/engine"
	"github.com/Flight-Inspired/PaperTrade/internal/ledger"
	"github.com/Flight-Inspired/PaperTrade/internal/models"
	"github.com/Flight-Inspired/PaperTrade/internal/positions"
	"github.com/Flight-Inspired/PaperTrade/internal/quotes"
	"github.com/Flight-Inspired/PaperTrade/internal/valuation"
)

type Server struct {
	R             *gin.Engine
	Store         ledger.Store
	Engine        *engine.Engine
	Valuation     *valuation.Service
	Oracle        quotes.Provider
	HoldingsCache *cache.MapCache[cache.HoldingsKey, []models.Holding]
	Logger        *zap.Logger
	StartingCash  decimal.Decimal
}

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// NewServer wires the router, engine, read-side services, and middleware.
// oracle is the display-path provider (typically the cached decorator); the
// engine keeps its own uncached one.
func NewServer(store ledger.Store, eng *engine.Engine, val *valuation.Service, oracle quotes.Provider, logger *zap.Logger, corsOrigin string, startingCash decimal.Decimal) *Server {
	g := gin.New()

	// Request logging
	g.Use(func(cn *gin.Context) {
		start := time.Now()
		cn.Next()
		logger.Info("http_request",
			zap.String("method", cn.Request.Method),
			zap.String("path", cn.Request.URL.Path),
			zap.Int("status", cn.Writer.Status()),
			zap.String("ip", cn.ClientIP()),
			zap.Duration("latency", time.Since(start)),
		)
	})

	g.Use(gin.Recovery())

	// CORS
	g.Use(func(cn *gin.Context) {
		origin := cn.GetHeader("Origin")
		cn.Writer.Header().Set("Vary", "Origin")
		cn.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		cn.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		cn.Writer.Header().Set("Access-Control-Max-Age", "86400")
		if corsOrigin == "*" {
			cn.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		} else if origin != "" && origin == corsOrigin {
			cn.Writer.Header().Set("Access-Control-Allow-Origin", corsOrigin)
		}
		if cn.Request.Method == http.MethodOptions {
			cn.AbortWithStatus(http.StatusNoContent)
			return
		}
		cn.Next()
	})

	s := &Server{
		R:             g,
		Store:         store,
		Engine:        eng,
		Valuation:     val,
		Oracle:        oracle,
		HoldingsCache: cache.NewMapCache[cache.HoldingsKey, []models.Holding](),
		Logger:        logger,
		StartingCash:  startingCash,
	}

	g.GET("/health", func(cn *gin.Context) { cn.JSON(http.StatusOK, gin.H{"ok": true}) })

	g.POST("/api/users", s.createUser)
	g.POST("/api/buy", s.buy)
	g.POST("/api/sell", s.sell)
	g.POST("/api/deposit", s.deposit)
	g.GET("/api/holdings/:user_id", s.getHoldings)
	g.GET("/api/history/:user_id", s.getHistory)
	g.GET("/api/deposits/:user_id", s.getDeposits)
	g.GET("/api/portfolio/:user_id", s.getPortfolio)
	g.GET("/api/quote/:symbol", s.getQuote)

	return s
}

// --- Helpers ---

func (s *Server) badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, apiError{Code: "invalid_input", Message: msg})
}

func (s *Server) writeError(c *gin.Context, where string, err error) {
	switch {
	case errors.Is(err, engine.ErrInvalidInput):
		s.badRequest(c, "quantity or amount must be positive")
	case errors.Is(err, engine.ErrUnknownSymbol):
		c.JSON(http.StatusNotFound, apiError{Code: "unknown_symbol", Message: "stock symbol not found"})
	case errors.Is(err, engine.ErrQuoteUnavailable):
		c.JSON(http.StatusBadGateway, apiError{Code: "quote_unavailable", Message: "price lookup failed, try again"})
	case errors.Is(err, ledger.ErrInsufficientFunds):
		c.JSON(http.StatusUnprocessableEntity, apiError{Code: "insufficient_funds", Message: "insufficient funds"})
	case errors.Is(err, ledger.ErrOversell):
		c.JSON(http.StatusUnprocessableEntity, apiError{Code: "oversell", Message: "you don't own that many shares"})
	case errors.Is(err, ledger.ErrUserNotFound):
		c.JSON(http.StatusNotFound, apiError{Code: "user_not_found", Message: "user not found"})
	case errors.Is(err, ledger.ErrUsernameTaken):
		c.JSON(http.StatusConflict, apiError{Code: "username_taken", Message: "username already exists"})
	default:
		s.Logger.Error("internal_error", zap.String("where", where), zap.Error(err))
		c.JSON(http.StatusInternalServerError, apiError{Code: "internal_server_error", Message: "internal server error"})
	}
}

func parseUserID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("user_id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// --- Handlers ---

type createUserRequest struct {
	Username     string `json:"username"`
	PasswordHash string `json:"password_hash"`
}

func (s *Server) createUser(c *gin.Context) {
	var req createUserRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Username == "" {
		s.badRequest(c, "username is required")
		return
	}
	u, err := s.Store.CreateUser(c.Request.Context(), req.Username, req.PasswordHash, s.StartingCash)
	if err != nil {
		s.writeError(c, "CreateUser", err)
		return
	}
	c.JSON(http.StatusCreated, u)
}

type tradeRequest struct {
	UserID int64  `json:"user_id"`
	Symbol string `json:"symbol"`
	Shares int64  `json:"shares"`
}

type tradeResponse struct {
	Transaction models.Transaction `json:"transaction"`
	Action      string             `json:"action"`
}

func (s *Server) buy(c *gin.Context) {
	var req tradeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.badRequest(c, "invalid request body")
		return
	}
	tx, err := s.Engine.Buy(c.Request.Context(), req.UserID, req.Symbol, req.Shares)
	if err != nil {
		s.writeError(c, "Buy", err)
		return
	}
	s.HoldingsCache.Delete(cache.HoldingsFor(req.UserID))
	c.JSON(http.StatusOK, tradeResponse{Transaction: tx, Action: domain.SideOf(tx.Shares).String()})
}

func (s *Server) sell(c *gin.Context) {
	var req tradeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.badRequest(c, "invalid request body")
		return
	}
	tx, err := s.Engine.Sell(c.Request.Context(), req.UserID, req.Symbol, req.Shares)
	if err != nil {
		s.writeError(c, "Sell", err)
		return
	}
	s.HoldingsCache.Delete(cache.HoldingsFor(req.UserID))
	c.JSON(http.StatusOK, tradeResponse{Transaction: tx, Action: domain.SideOf(tx.Shares).String()})
}

type depositRequest struct {
	UserID int64           `json:"user_id"`
	Amount decimal.Decimal `json:"amount"`
}

type depositResponse struct {
	UserID  int64           `json:"user_id"`
	Cash    decimal.Decimal `json:"cash"`
	Display string          `json:"display"`
}

func (s *Server) deposit(c *gin.Context) {
	var req depositRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.badRequest(c, "amount must be a positive number")
		return
	}
	newCash, err := s.Engine.Deposit(c.Request.Context(), req.UserID, req.Amount)
	if err != nil {
		s.writeError(c, "Deposit", err)
		return
	}
	c.JSON(http.StatusOK, depositResponse{UserID: req.UserID, Cash: newCash, Display: valuation.USD(newCash)})
}

func (s *Server) getHoldings(c *gin.Context) {
	id, ok := parseUserID(c)
	if !ok {
		s.badRequest(c, "invalid user id")
		return
	}

	key := cache.HoldingsFor(id)
	if rows, ok := s.HoldingsCache.Get(key); ok && rows != nil {
		c.JSON(http.StatusOK, rows)
		return
	}

	txs, err := s.Store.Transactions(c.Request.Context(), id)
	if err != nil {
		s.writeError(c, "Holdings", err)
		return
	}
	rows := positions.Holdings(txs)

	s.HoldingsCache.Set(key, rows)
	c.JSON(http.StatusOK, rows)
}

type historyRow struct {
	ID     int64           `json:"id"`
	Symbol string          `json:"symbol"`
	Shares int64           `json:"shares"`
	Price  decimal.Decimal `json:"price"`
	Action string          `json:"action"`
	TS     time.Time       `json:"ts"`
}

func (s *Server) getHistory(c *gin.Context) {
	id, ok := parseUserID(c)
	if !ok {
		s.badRequest(c, "invalid user id")
		return
	}
	txs, err := s.Store.Transactions(c.Request.Context(), id)
	if err != nil {
		s.writeError(c, "History", err)
		return
	}
	rows := make([]historyRow, 0, len(txs))
	for _, tx := range txs {
		rows = append(rows, historyRow{
			ID:     tx.ID,
			Symbol: tx.Symbol,
			Shares: tx.Shares,
			Price:  tx.Price,
			Action: domain.SideOf(tx.Shares).String(),
			TS:     tx.TS,
		})
	}
	c.JSON(http.StatusOK, rows)
}

func (s *Server) getDeposits(c *gin.Context) {
	id, ok := parseUserID(c)
	if !ok {
		s.badRequest(c, "invalid user id")
		return
	}
	rows, err := s.Store.Deposits(c.Request.Context(), id)
	if err != nil {
		s.writeError(c, "Deposits", err)
		return
	}
	if rows == nil {
		rows = []models.Deposit{}
	}
	c.JSON(http.StatusOK, rows)
}

func (s *Server) getPortfolio(c *gin.Context) {
	id, ok := parseUserID(c)
	if !ok {
		s.badRequest(c, "invalid user id")
		return
	}
	p, err := s.Valuation.Portfolio(c.Request.Context(), id)
	if err != nil {
		s.writeError(c, "Portfolio", err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (s *Server) getQuote(c *gin.Context) {
	sym := domain.NormalizeSymbol(c.Param("symbol"))
	if sym == "" {
		s.badRequest(c, "symbol is required")
		return
	}
	q, err := s.Oracle.Lookup(c.Request.Context(), sym)
	if errors.Is(err, quotes.ErrNotFound) {
		c.JSON(http.StatusNotFound, apiError{Code: "unknown_symbol", Message: "stock symbol not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusBadGateway, apiError{Code: "quote_unavailable", Message: "price lookup failed, try again"})
		return
	}
	c.JSON(http.StatusOK, q)
}
