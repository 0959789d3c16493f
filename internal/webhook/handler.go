package webhook

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"lusterd/internal/store"
)

// Handler implements the billing webhook sink.
type Handler struct {
	secret            string
	users             *store.UserStore
	credits           *store.CreditStore
	creditsPerProduct map[string]int
}

func NewHandler(secret string, users *store.UserStore, credits *store.CreditStore, creditsPerProduct map[string]int) *Handler {
	return &Handler{secret: secret, users: users, credits: credits, creditsPerProduct: creditsPerProduct}
}

// Handle handles POST /webhooks/billing. Signature verification runs over
// the exact raw request bytes; unknown event types are acknowledged with
// 200 and no action, matching the provider's retry-avoidance contract.
func (h *Handler) Handle(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "invalid body"})
		return
	}

	if h.secret == "" {
		slog.Warn("webhook secret not configured; accepting delivery unverified")
	} else {
		signature := c.GetHeader("X-Webhook-Signature")
		if signature == "" || !VerifySignature(h.secret, body, signature) {
			slog.Warn("webhook signature verification failed")
			c.JSON(http.StatusUnauthorized, gin.H{"status": "invalid signature"})
			return
		}
	}

	var p payload
	if err := json.Unmarshal(body, &p); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "invalid json"})
		return
	}

	evt := eventType(p.Event.Type)
	log := slog.With("event_type", p.Event.Type, "event_id", p.Event.ID, "app_user_id", p.Event.AppUserID)

	if !evt.grantsCredits() {
		log.Info("webhook event acknowledged, no credit effect")
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
		return
	}

	ctx := c.Request.Context()
	user, err := h.users.GetOrCreateByClerkID(ctx, p.Event.AppUserID, p.Event.AppUserID+"@billing.lusterd")
	if err != nil {
		log.Error("failed to resolve billing user", "error", err)
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
		return
	}

	credits := h.creditsPerProduct[p.Event.ProductID]
	if credits <= 0 {
		log.Warn("unknown product id, no credits applied", "product_id", p.Event.ProductID)
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
		return
	}

	eventKey := p.Event.Type + ":" + p.Event.ID + ":" + user.ID.String()
	if err := h.credits.ApplyDelta(ctx, user.ID, credits, eventKey); err != nil {
		log.Error("failed to apply credit delta", "error", err)
	} else {
		log.Info("applied credit delta", "credits", credits)
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
