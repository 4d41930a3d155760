package api

import (
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"soltrader/internal/ledger"
	"soltrader/internal/order"
	"soltrader/internal/strategy"
)

// executeOrder parses an order document and submits it. The response carries
// the submitted signatures; confirmation is asynchronous.
func (s *Server) executeOrder(c *gin.Context) {
	var req map[string]any
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"code":  "INVALID_PAYLOAD",
			"error": "invalid request payload",
		})
		return
	}

	kindLabel, _ := req["order_kind"].(string)
	kind, ok := order.ParseKind(kindLabel)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{
			"code":  "UNKNOWN_ORDER_KIND",
			"error": "order_kind must be one of swap, bundled_swap, limits_stops, mcap",
		})
		return
	}

	o := order.FromMap(kind, req)
	if o == nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"code":  "INVALID_ORDER",
			"error": "order is missing required fields",
		})
		return
	}

	maxTries := 1
	if v, okNum := req["max_tries"].(float64); okNum && v > 0 {
		maxTries = int(v)
	}

	signatures := s.Trades.Execute(o, maxTries)
	if len(signatures) == 0 {
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"code":  "NOT_SUBMITTED",
			"error": "no executor accepted the order",
		})
		return
	}

	log.Printf("api: user %s submitted %s order, %d signature(s)", CurrentUserID(c), kindLabel, len(signatures))
	c.JSON(http.StatusAccepted, gin.H{"signatures": signatures})
}

// listOrders returns recent submissions from the store.
func (s *Server) listOrders(c *gin.Context) {
	if s.DB == nil {
		c.JSON(http.StatusOK, []any{})
		return
	}

	limit := 50
	if v, err := strconv.Atoi(c.Query("limit")); err == nil && v > 0 {
		limit = v
	}

	orders, err := s.DB.RecentOrders(c.Request.Context(), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"code":  "INTERNAL_ERROR",
			"error": err.Error(),
		})
		return
	}

	out := make([]gin.H, 0, len(orders))
	for _, o := range orders {
		out = append(out, gin.H{
			"id":            o.ID,
			"kind":          o.Kind,
			"side":          o.Side,
			"token_address": o.TokenAddress,
			"amount_in_sol": o.AmountInSol,
			"status":        o.Status,
			"created_at":    o.CreatedAt,
		})
	}
	c.JSON(http.StatusOK, out)
}

// getTradeInfo reports the resolved fill for a signature. 404 means "not yet
// confirmed"; pass ?wait=N to block up to N seconds.
func (s *Server) getTradeInfo(c *gin.Context) {
	signature := c.Param("signature")

	var timeout time.Duration
	if v, err := strconv.Atoi(c.Query("wait")); err == nil && v > 0 {
		timeout = time.Duration(v) * time.Second
	}

	info := s.Trades.WaitForTradeInfo(signature, timeout)
	if info == nil {
		c.JSON(http.StatusNotFound, gin.H{
			"code":  "NOT_CONFIRMED",
			"error": "trade not confirmed yet",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"tx_signature":  info.TxSignature,
		"token_address": info.TokenAddress,
		"side":          info.Side.String(),
		"amount_in":     info.AmountIn.UI(),
		"amount_out":    info.AmountOut.UI(),
		"fee_sol":       info.Fee.UI(),
		"price":         info.Price().InexactFloat64(),
		"provisional":   info.Provisional,
	})
}

func (s *Server) fastBuy(c *gin.Context) {
	token, ok := s.bindToken(c)
	if !ok {
		return
	}
	s.Trades.FastBuy(token)
	c.JSON(http.StatusAccepted, gin.H{"status": "submitted"})
}

func (s *Server) fastSell(c *gin.Context) {
	token, ok := s.bindToken(c)
	if !ok {
		return
	}
	s.Trades.FastSell(token)
	c.JSON(http.StatusAccepted, gin.H{"status": "submitted"})
}

func (s *Server) sellAll(c *gin.Context) {
	s.Trades.SellAll()
	c.JSON(http.StatusAccepted, gin.H{"status": "submitted"})
}

func (s *Server) sweep(c *gin.Context) {
	s.Trades.Sweep()
	c.JSON(http.StatusAccepted, gin.H{"status": "submitted"})
}

func (s *Server) bindToken(c *gin.Context) (string, bool) {
	var req struct {
		TokenAddress string `json:"token_address"`
	}
	if err := c.BindJSON(&req); err != nil || req.TokenAddress == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"code":  "MISSING_TOKEN",
			"error": "token_address is required",
		})
		return "", false
	}
	return req.TokenAddress, true
}

// getPositions lists every open position with its estimated PnL.
func (s *Server) getPositions(c *gin.Context) {
	tokens := s.Trades.ActiveTokens()
	out := make([]gin.H, 0, len(tokens))
	for _, token := range tokens {
		entry := gin.H{"token_address": token}
		if pl := s.Trades.GetPnl(token); pl != nil {
			entry["pnl"] = profitLossJSON(pl)
		}
		out = append(out, entry)
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) getPnl(c *gin.Context) {
	token := c.Param("token")
	pl := s.Trades.GetPnl(token)
	if pl == nil {
		c.JSON(http.StatusNotFound, gin.H{
			"code":  "NO_POSITION",
			"error": "no open position or no price for token",
		})
		return
	}
	c.JSON(http.StatusOK, profitLossJSON(pl))
}

func (s *Server) getStatus(c *gin.Context) {
	token := c.Param("token")
	c.JSON(http.StatusOK, gin.H{"status": s.Trades.GetStatus(token)})
}

func (s *Server) getTotals(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"realized_profit_sol": s.Trades.GetTotalProfit().UI(),
		"realized_loss_sol":   s.Trades.GetTotalLoss().UI(),
		"unrealized_sol":      s.Trades.GetUnrealizedSol().UI(),
	})
}

func (s *Server) getBalance(c *gin.Context) {
	balance, ok := s.Trades.GetSolBalance()
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{
			"code":  "NO_BALANCE",
			"error": "payer balance unknown",
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"account": s.Trades.DefaultPayer(),
		"sol":     balance.UI(),
	})
}

func (s *Server) getTokenInfo(c *gin.Context) {
	token := c.Param("token")
	info := s.Market.GetTokenInfo(token)
	if info == nil {
		c.JSON(http.StatusNotFound, gin.H{
			"code":  "UNKNOWN_TOKEN",
			"error": "token not registered",
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"token_address": info.TokenAddress,
		"symbol":        info.Symbol,
		"decimals":      info.Decimals,
		"price_sol":     info.Price().InexactFloat64(),
		"mcap_sol":      info.Mcap().InexactFloat64(),
	})
}

// listStrategies reports every registered strategy and its state.
func (s *Server) listStrategies(c *gin.Context) {
	running := s.Trades.RunningStrategies()
	out := make([]gin.H, 0, len(running))
	for _, st := range running {
		out = append(out, strategyJSON(st))
	}
	c.JSON(http.StatusOK, out)
}

// runStrategy builds and starts a strategy from a settings document.
func (s *Server) runStrategy(c *gin.Context) {
	var settings map[string]any
	if err := c.BindJSON(&settings); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"code":  "INVALID_PAYLOAD",
			"error": "invalid request payload",
		})
		return
	}

	id, err := s.Trades.RunStrategyFromSettings(settings)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"code":  "INVALID_STRATEGY",
			"error": err.Error(),
		})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"id": id})
}

func (s *Server) getStrategyNames(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"names": s.Trades.StrategyNames()})
}

func (s *Server) getStrategySchema(c *gin.Context) {
	name := c.Param("name")
	schema := s.Trades.StrategySchema(name)
	if schema == nil {
		c.JSON(http.StatusNotFound, gin.H{
			"code":  "UNKNOWN_STRATEGY",
			"error": "no registered strategy with that name",
		})
		return
	}
	c.JSON(http.StatusOK, schema)
}

func (s *Server) toggleStrategy(c *gin.Context) {
	id := c.Param("id")
	if s.Trades.GetStrategy(id) == nil {
		c.JSON(http.StatusNotFound, gin.H{
			"code":  "UNKNOWN_STRATEGY",
			"error": "no strategy with that id",
		})
		return
	}
	s.Trades.ToggleStrategy(id)
	c.JSON(http.StatusOK, gin.H{"status": "toggled"})
}

func (s *Server) deleteStrategy(c *gin.Context) {
	id := c.Param("id")
	if s.Trades.GetStrategy(id) == nil {
		c.JSON(http.StatusNotFound, gin.H{
			"code":  "UNKNOWN_STRATEGY",
			"error": "no strategy with that id",
		})
		return
	}
	s.Trades.DeleteStrategy(id)
	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}

func profitLossJSON(pl *ledger.ProfitLoss) gin.H {
	return gin.H{
		"token_address": pl.TokenAddress,
		"pnl_sol":       pl.Pnl.UI(),
		"pnl_percent":   pl.PnlPercent.UI(),
		"cost_basis":    pl.CostBasis.UI(),
		"disposed_qty":  pl.DisposedQty.UI(),
		"complete":      pl.Complete,
	}
}

func strategyJSON(st strategy.Strategy) gin.H {
	return gin.H{
		"id":    st.ID(),
		"name":  st.Name(),
		"state": st.State().String(),
	}
}
