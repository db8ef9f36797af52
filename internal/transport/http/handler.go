package http

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/fundkeep/wallet-service/internal/service"
	"github.com/fundkeep/wallet-service/internal/store"
)

func RegisterHandlers(r *gin.Engine, auth *service.AuthService, wallets *service.WalletService, engine *service.TransferEngine, rl gin.HandlerFunc) {
	public := r.Group("/v1")
	public.Use(rl)
	{
		public.POST("/auth/signup", signupHandler(auth))
		public.POST("/auth/login", loginHandler(auth))
	}

	protected := r.Group("/v1")
	protected.Use(AuthMiddleware(auth), rl)
	{
		protected.POST("/transfers", transferHandler(engine))
		protected.GET("/wallets/balance", balanceHandler(wallets))
		protected.GET("/wallets/transfers", historyHandler(wallets))
	}
}

type signupReq struct {
	Email     string `json:"email" binding:"required,email"`
	Password  string `json:"password" binding:"required,min=8"`
	FirstName string `json:"first_name" binding:"required"`
	LastName  string `json:"last_name" binding:"required"`
}

func signupHandler(auth *service.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req signupReq
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		user, token, err := auth.Signup(c, req.Email, req.Password, req.FirstName, req.LastName)
		if err != nil {
			if errors.Is(err, store.ErrEmailTaken) {
				c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusCreated, gin.H{
			"user":         gin.H{"id": user.ID, "email": user.Email},
			"access_token": token,
		})
	}
}

type loginReq struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

func loginHandler(auth *service.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req loginReq
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		user, token, err := auth.Login(c, req.Email, req.Password)
		if err != nil {
			if errors.Is(err, service.ErrInvalidCredentials) {
				c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"user":         gin.H{"id": user.ID, "email": user.Email},
			"access_token": token,
		})
	}
}

type transferReq struct {
	ToUserID       string `json:"to_user_id" binding:"required"`
	Amount         string `json:"amount" binding:"required"`
	IdempotencyKey string `json:"idempotency_key" binding:"required,max=64"`
}

func transferHandler(engine *service.TransferEngine) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req transferReq
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		amt, err := decimal.NewFromString(req.Amount)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid amount"})
			return
		}
		out, err := engine.Execute(c, c.GetString(ownerIDKey), req.ToUserID, amt, req.IdempotencyKey)
		if err != nil {
			c.JSON(transferErrorStatus(err), gin.H{"error": err.Error()})
			return
		}
		code := http.StatusOK
		if out.Status == service.OutcomeInProgress {
			code = http.StatusConflict
		}
		c.JSON(code, out)
	}
}

// transferErrorStatus maps engine error kinds onto HTTP codes; the caller
// switches on kind, never on a generic fault.
func transferErrorStatus(err error) int {
	switch {
	case errors.Is(err, service.ErrInvalidRequest):
		return http.StatusBadRequest
	case errors.Is(err, store.ErrWalletNotFound):
		return http.StatusNotFound
	case errors.Is(err, store.ErrInsufficientFunds):
		return http.StatusUnprocessableEntity
	case errors.Is(err, store.ErrContention):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func balanceHandler(wallets *service.WalletService) gin.HandlerFunc {
	return func(c *gin.Context) {
		bal, err := wallets.Balance(c, c.GetString(ownerIDKey))
		if err != nil {
			if errors.Is(err, store.ErrWalletNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"balance": bal.StringFixed(2)})
	}
}

func historyHandler(wallets *service.WalletService) gin.HandlerFunc {
	return func(c *gin.Context) {
		limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
		sinceStr := c.DefaultQuery("since", time.Now().Add(-24*time.Hour).Format(time.RFC3339))
		since, err := time.Parse(time.RFC3339, sinceStr)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid since"})
			return
		}
		recs, err := wallets.History(c, c.GetString(ownerIDKey), limit, since)
		if err != nil {
			if errors.Is(err, store.ErrWalletNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, recs)
	}
}
