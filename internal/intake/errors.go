package intake

import (
	"github.com/gin-gonic/gin"

	"lusterd/internal/apperr"
	"lusterd/internal/utils"
)

// writeErr maps an apperr.Kind to its transport status and writes the
// standard error envelope; unrecognized errors fall back to 500.
func writeErr(c *gin.Context, err error) {
	kind := apperr.KindOf(err)
	status := apperr.HTTPStatus(kind)
	utils.SendError(c, status, string(kind), err)
}
