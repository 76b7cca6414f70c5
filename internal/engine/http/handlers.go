package http

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	accounts "github.com/doerdesk/doerdesk-backend/internal/accounts/domain"
	engine "github.com/doerdesk/doerdesk-backend/internal/engine/service"
	ledger "github.com/doerdesk/doerdesk-backend/internal/ledger/domain"
	quotes "github.com/doerdesk/doerdesk-backend/internal/quotes/domain"
	workflow "github.com/doerdesk/doerdesk-backend/internal/workflow/domain"
)

// Handler exposes the engine over HTTP. Actor identity arrives on the
// X-Actor-ID / X-Actor-Type headers, set by the upstream gateway after
// authentication.
type Handler struct {
	engine *engine.Engine
}

func NewHandler(e *engine.Engine) *Handler {
	return &Handler{engine: e}
}

// requireActor reads the gateway-set actor headers. An unknown or
// absent actor type would misattribute audit rows, so it is rejected
// with a 400 rather than defaulted.
func requireActor(c *gin.Context) (workflow.Actor, bool) {
	t := workflow.ActorType(c.GetHeader("X-Actor-Type"))
	switch t {
	case workflow.ActorClient, workflow.ActorSupervisor, workflow.ActorDoer, workflow.ActorSystem:
		return workflow.Actor{Type: t, ID: c.GetHeader("X-Actor-ID")}, true
	}
	c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "unknown actor type"})
	return workflow.Actor{}, false
}

type createProjectReq struct {
	OwnerID     string     `json:"owner_id"`
	ServiceType string     `json:"service_type"`
	Subject     string     `json:"subject"`
	Title       string     `json:"title"`
	Deadline    *time.Time `json:"deadline"`
}

func (h *Handler) createProject(c *gin.Context) {
	var req createProjectReq
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.OwnerID) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "invalid body"})
		return
	}

	p, err := h.engine.CreateProject(c.Request.Context(), req.OwnerID, req.ServiceType, req.Subject, strings.TrimSpace(req.Title), req.Deadline)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"ok": true, "project": p})
}

func (h *Handler) getProject(c *gin.Context) {
	p, err := h.engine.GetProject(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "project": p})
}

type transitionReq struct {
	Target   string            `json:"target"`
	Metadata map[string]string `json:"metadata"`
}

func (h *Handler) transition(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	var req transitionReq
	if err := c.ShouldBindJSON(&req); err != nil || req.Target == "" {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "invalid body"})
		return
	}

	p, err := h.engine.Transition(c.Request.Context(), c.Param("id"),
		workflow.Status(req.Target), actor, req.Metadata)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "project": p})
}

func (h *Handler) history(c *gin.Context) {
	entries, err := h.engine.History(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "history": entries})
}

type issueQuoteReq struct {
	ServiceType   string `json:"service_type"`
	Subject       string `json:"subject"`
	Quantity      int    `json:"quantity"`
	UrgencyHours  int    `json:"urgency_hours"`
	Complexity    string `json:"complexity"`
	DiscountCents int64  `json:"discount_cents"`
}

func (h *Handler) issueQuote(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	var req issueQuoteReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "invalid body"})
		return
	}
	quote, err := h.engine.IssueQuote(c.Request.Context(), c.Param("id"), quotes.Request{
		ServiceType:   req.ServiceType,
		Subject:       req.Subject,
		Quantity:      req.Quantity,
		UrgencyHours:  req.UrgencyHours,
		Complexity:    quotes.Complexity(req.Complexity),
		DiscountCents: req.DiscountCents,
	}, actor.ID)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"ok": true, "quote": quote})
}

func (h *Handler) activeQuote(c *gin.Context) {
	quote, err := h.engine.ActiveQuote(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "quote": quote})
}

type acceptQuoteReq struct {
	QuoteID string `json:"quote_id"`
}

func (h *Handler) acceptQuote(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	var req acceptQuoteReq
	if err := c.ShouldBindJSON(&req); err != nil || req.QuoteID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "invalid body"})
		return
	}

	p, err := h.engine.AcceptQuote(c.Request.Context(), c.Param("id"), req.QuoteID, actor.ID)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "project": p})
}

func (h *Handler) rejectQuote(c *gin.Context) {
	var req acceptQuoteReq
	if err := c.ShouldBindJSON(&req); err != nil || req.QuoteID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "invalid body"})
		return
	}

	quote, err := h.engine.RejectQuote(c.Request.Context(), req.QuoteID)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "quote": quote})
}

type paymentEventReq struct {
	AmountCents int64  `json:"amount_cents"`
	GatewayRef  string `json:"gateway_reference"`
}

func (h *Handler) confirmPayment(c *gin.Context) {
	var req paymentEventReq
	if err := c.ShouldBindJSON(&req); err != nil || req.AmountCents <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "invalid body"})
		return
	}

	p, err := h.engine.ConfirmPayment(c.Request.Context(), engine.PaymentEvent{
		ProjectID:   c.Param("id"),
		AmountCents: req.AmountCents,
		GatewayRef:  req.GatewayRef,
	})
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "project": p})
}

type assignReq struct {
	DoerID string `json:"doer_id"`
}

func (h *Handler) assignDoer(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	var req assignReq
	if err := c.ShouldBindJSON(&req); err != nil || req.DoerID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "invalid body"})
		return
	}

	p, err := h.engine.AssignDoer(c.Request.Context(), c.Param("id"), req.DoerID, actor.ID)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "project": p})
}

func (h *Handler) claimProject(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	p, err := h.engine.ClaimProject(c.Request.Context(), c.Param("id"), actor.ID)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "project": p})
}

func (h *Handler) deliverableUploaded(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	p, err := h.engine.DeliverableUploaded(c.Request.Context(), c.Param("id"), actor)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "project": p})
}

type noteReq struct {
	Note string `json:"note"`
}

func (h *Handler) requestRevision(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	var req noteReq
	_ = c.ShouldBindJSON(&req)

	p, err := h.engine.RequestRevision(c.Request.Context(), c.Param("id"), actor, req.Note)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "project": p})
}

func (h *Handler) complete(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	p, err := h.engine.Complete(c.Request.Context(), c.Param("id"), actor)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "project": p})
}

type cancelReq struct {
	Reason string `json:"reason"`
}

func (h *Handler) cancel(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	var req cancelReq
	_ = c.ShouldBindJSON(&req)

	p, err := h.engine.Cancel(c.Request.Context(), c.Param("id"), actor, req.Reason)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "project": p})
}

func (h *Handler) balance(c *gin.Context) {
	w, err := h.engine.Balance(c.Request.Context(), c.Param("owner_id"))
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "wallet": w})
}

func (h *Handler) statement(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))

	w, err := h.engine.Balance(c.Request.Context(), c.Param("owner_id"))
	if err != nil {
		respondErr(c, err)
		return
	}
	entries, err := h.engine.Statement(c.Request.Context(), w.ID, limit)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "wallet_id": w.ID, "transactions": entries})
}

type createProfileReq struct {
	Role        string `json:"role"`
	DisplayName string `json:"display_name"`
	Email       string `json:"email"`
}

func (h *Handler) createProfile(c *gin.Context) {
	var req createProfileReq
	if err := c.ShouldBindJSON(&req); err != nil || req.Role == "" {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "invalid body"})
		return
	}

	p, err := h.engine.CreateProfile(c.Request.Context(), accounts.Role(req.Role), req.DisplayName, req.Email)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"ok": true, "profile": p})
}

func (h *Handler) getProfile(c *gin.Context) {
	p, err := h.engine.GetProfile(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "profile": p})
}

// respondErr maps domain errors to HTTP statuses with the structured
// reason the UI needs.
func respondErr(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, workflow.ErrProjectNotFound),
		errors.Is(err, ledger.ErrWalletNotFound),
		errors.Is(err, quotes.ErrQuoteNotFound),
		errors.Is(err, accounts.ErrProfileNotFound):
		status = http.StatusNotFound
	case errors.Is(err, workflow.ErrInvalidEdge),
		errors.Is(err, workflow.ErrSideEffectMissing),
		errors.Is(err, quotes.ErrQuoteNotPending),
		errors.Is(err, ledger.ErrInvalidAmount):
		status = http.StatusConflict
	case errors.Is(err, ledger.ErrInsufficientFunds):
		status = http.StatusPaymentRequired
	case errors.Is(err, workflow.ErrConcurrentModification):
		status = http.StatusServiceUnavailable
	case errors.Is(err, quotes.ErrInvalidInputRange),
		errors.Is(err, quotes.ErrNoPricingRule),
		errors.Is(err, accounts.ErrInvalidRole):
		status = http.StatusBadRequest
	}
	c.JSON(status, gin.H{"ok": false, "error": err.Error()})
}
