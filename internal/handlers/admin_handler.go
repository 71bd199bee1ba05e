package handlers

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/vipreceiver/backend/internal/config"
	"github.com/vipreceiver/backend/internal/models"
	"github.com/vipreceiver/backend/internal/services"
	"github.com/vipreceiver/backend/pkg/crypto"
	"github.com/vipreceiver/backend/pkg/jwt"
	"github.com/vipreceiver/backend/pkg/validation"
)

type AdminHandler struct {
	cfg         *config.Config
	regions     *services.RegionService
	ledger      *services.LedgerService
	registry    *services.CancelRegistry
	withdrawals *services.WithdrawalService
}

func NewAdminHandler(cfg *config.Config, regions *services.RegionService, ledger *services.LedgerService, registry *services.CancelRegistry, withdrawals *services.WithdrawalService) *AdminHandler {
	return &AdminHandler{
		cfg:         cfg,
		regions:     regions,
		ledger:      ledger,
		registry:    registry,
		withdrawals: withdrawals,
	}
}

// Login authenticates the admin and issues an access token
func (h *AdminHandler) Login(c *gin.Context) {
	var req struct {
		Username string `json:"username" binding:"required"`
		Password string `json:"password" binding:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if subtle.ConstantTimeCompare([]byte(req.Username), []byte(h.cfg.AdminUsername)) != 1 || !h.passwordMatches(req.Password) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
		return
	}

	token, err := jwt.GenerateToken(req.Username, jwt.AccessToken, h.cfg.JWTSecret, h.cfg.JWTAccessTokenDuration)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate token"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"access_token": token,
		"expires_in":   int(h.cfg.JWTAccessTokenDuration.Seconds()),
	})
}

// passwordMatches supports both a bcrypt hash and a plain value in config.
func (h *AdminHandler) passwordMatches(password string) bool {
	if strings.HasPrefix(h.cfg.AdminPassword, "$2") {
		return crypto.CheckPassword(password, h.cfg.AdminPassword)
	}
	return subtle.ConstantTimeCompare([]byte(password), []byte(h.cfg.AdminPassword)) == 1
}

// GetRegions retrieves all configured regions
func (h *AdminHandler) GetRegions(c *gin.Context) {
	regions, err := h.regions.List()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve regions"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"regions": regions})
}

// CreateRegion creates a new region
func (h *AdminHandler) CreateRegion(c *gin.Context) {
	var req struct {
		Code      string  `json:"code" binding:"required"`
		Name      string  `json:"name" binding:"required"`
		Capacity  int     `json:"capacity" binding:"required,min=0"`
		Price     float64 `json:"price" binding:"required,min=0"`
		ClaimTime int     `json:"claim_time" binding:"required,min=0"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if !validation.ValidateRegionCode(req.Code) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid region code"})
		return
	}

	region := &models.Region{
		Code:      req.Code,
		Name:      req.Name,
		Capacity:  req.Capacity,
		Price:     req.Price,
		ClaimTime: req.ClaimTime,
	}

	if err := h.regions.Create(region); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "Region created successfully",
		"region":  region,
	})
}

// UpdateRegion updates an existing region
func (h *AdminHandler) UpdateRegion(c *gin.Context) {
	code := c.Param("code")
	if !strings.HasPrefix(code, "+") {
		code = "+" + code
	}

	region, err := h.regions.GetByCode(code)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve region"})
		return
	}
	if region == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Region not found"})
		return
	}

	var req struct {
		Name      *string  `json:"name"`
		Capacity  *int     `json:"capacity"`
		Price     *float64 `json:"price"`
		ClaimTime *int     `json:"claim_time"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if req.Name != nil {
		region.Name = *req.Name
	}
	if req.Capacity != nil {
		region.Capacity = *req.Capacity
	}
	if req.Price != nil {
		region.Price = *req.Price
	}
	if req.ClaimTime != nil {
		region.ClaimTime = *req.ClaimTime
	}

	if err := h.regions.Update(region); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update region"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Region updated successfully",
		"region":  region,
	})
}

// DeleteRegion removes a region
func (h *AdminHandler) DeleteRegion(c *gin.Context) {
	code := c.Param("code")
	if !strings.HasPrefix(code, "+") {
		code = "+" + code
	}

	if err := h.regions.Delete(code); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete region"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Region deleted successfully"})
}

// CancelVerification aborts a user's in-flight confirmation task
func (h *AdminHandler) CancelVerification(c *gin.Context) {
	var req struct {
		TelegramID int64 `json:"telegram_id" binding:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	cancelled, phone := h.registry.Cancel(req.TelegramID)
	if !cancelled {
		c.JSON(http.StatusNotFound, gin.H{"error": "No active verification for this user"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Verification cancelled",
		"phone":   phone,
	})
}

// GetStats returns aggregate marketplace statistics
func (h *AdminHandler) GetStats(c *gin.Context) {
	stats, err := h.ledger.Stats()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve stats"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"stats": stats})
}

// ApproveWithdrawals approves all pending withdrawals for a leader card
func (h *AdminHandler) ApproveWithdrawals(c *gin.Context) {
	var req struct {
		Card string `json:"card" binding:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	approved, err := h.withdrawals.ApproveByCard(req.Card)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to approve withdrawals"})
		return
	}
	if len(approved) == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "No pending withdrawals for this card"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":     "Withdrawals approved",
		"withdrawals": approved,
	})
}
