package intake

import (
	"github.com/gin-gonic/gin"

	"lusterd/internal/apperr"
	"lusterd/internal/store"
	"lusterd/internal/utils"
)

type CreditHandler struct {
	credits *store.CreditStore
}

func NewCreditHandler(credits *store.CreditStore) *CreditHandler {
	return &CreditHandler{credits: credits}
}

// GetBalance handles GET /credits.
func (h *CreditHandler) GetBalance(c *gin.Context) {
	uid, ok := userID(c)
	if !ok {
		writeErr(c, apperr.New(apperr.KindUnauthenticated, "missing caller"))
		return
	}

	balance, err := h.credits.Balance(c.Request.Context(), uid)
	if err != nil {
		writeErr(c, err)
		return
	}
	utils.SendSuccess(c, "balance retrieved", gin.H{"balance": balance})
}
