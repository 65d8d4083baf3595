package server

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	paymentdomain "github.com/simpmc/simppay/internal/payment/domain"
)

type createCardRequest struct {
	PlayerID string `json:"player_id" binding:"required"`
	Telco    string `json:"telco" binding:"required"`
	Serial   string `json:"serial" binding:"required"`
	Pin      string `json:"pin" binding:"required"`
	Price    int64  `json:"price" binding:"required"`
}

type createBankRequest struct {
	PlayerID string `json:"player_id" binding:"required"`
	Amount   int64  `json:"amount" binding:"required"`
}

type paymentResponse struct {
	ID              string `json:"id"`
	PlayerID        string `json:"player_id"`
	Kind            string `json:"kind"`
	Amount          int64  `json:"amount"`
	ConfirmedAmount int64  `json:"confirmed_amount,omitempty"`
	Status          string `json:"status"`
	Message         string `json:"message,omitempty"`
	ReferenceCode   string `json:"reference_code,omitempty"`
	QRString        string `json:"qr_string,omitempty"`
	CreatedAt       int64  `json:"created_at"`
}

func toPaymentResponse(p *paymentdomain.Payment) paymentResponse {
	resp := paymentResponse{
		ID:              p.ID,
		PlayerID:        p.PlayerID,
		Kind:            string(p.Kind),
		Amount:          p.Amount,
		ConfirmedAmount: p.ConfirmedAmount,
		Status:          string(p.Status),
		Message:         p.Message,
		CreatedAt:       p.CreatedAt.Unix(),
	}
	if p.Bank != nil {
		resp.ReferenceCode = p.Bank.ReferenceCode
		resp.QRString = p.Bank.QRString
	}
	return resp
}

func (s *Server) createCardPayment(c *gin.Context) {
	var req createCardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	if !s.allowCardSubmission(c, req.PlayerID) {
		AbortWithError(c, ErrTooManyCards)
		return
	}

	p, err := s.paymentSvc.CreateCard(c.Request.Context(), paymentdomain.CreateCardInput{
		PlayerID: req.PlayerID,
		Telco:    req.Telco,
		Serial:   req.Serial,
		Pin:      req.Pin,
		Price:    req.Price,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusAccepted, toPaymentResponse(p))
}

func (s *Server) createBankPayment(c *gin.Context) {
	var req createBankRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	p, err := s.paymentSvc.CreateBank(c.Request.Context(), paymentdomain.CreateBankInput{
		PlayerID: req.PlayerID,
		Amount:   req.Amount,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusAccepted, toPaymentResponse(p))
}

func (s *Server) cancelBankPayment(c *gin.Context) {
	if err := s.paymentSvc.CancelBank(c.Request.Context(), c.Param("player_id")); err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"cancelled": true})
}

func (s *Server) getPayment(c *gin.Context) {
	p, err := s.paymentSvc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, toPaymentResponse(p))
}

type historyEntry struct {
	ID              string `json:"id"`
	Kind            string `json:"kind"`
	Provider        string `json:"provider"`
	DeclaredAmount  int64  `json:"declared_amount"`
	ConfirmedAmount int64  `json:"confirmed_amount"`
	Status          string `json:"status"`
	FinalizedAt     string `json:"finalized_at"`
}

func (s *Server) getPlayerHistory(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))

	records, err := s.paymentSvc.History(c.Request.Context(), c.Param("id"), limit)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	out := make([]historyEntry, 0, len(records))
	for _, rec := range records {
		out = append(out, historyEntry{
			ID:              rec.ID,
			Kind:            rec.Kind,
			Provider:        rec.Provider,
			DeclaredAmount:  rec.DeclaredAmount,
			ConfirmedAmount: rec.ConfirmedAmount,
			Status:          rec.Status,
			FinalizedAt:     rec.FinalizedAt.UTC().Format(time.RFC3339),
		})
	}
	c.JSON(http.StatusOK, gin.H{"payments": out})
}
