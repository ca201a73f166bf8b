package middleware

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"ecommerce/api/internal/apperr"
	"ecommerce/api/internal/repository"
)

const genericMessage = "Something went wrong"

type errorResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Error   string `json:"error,omitempty"`
}

// Errors renders the last error attached with c.Error once the chain is done.
// Outside production the wrapped detail is included.
func Errors(log zerolog.Logger, production bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}

		err := c.Errors.Last().Err
		status, body := renderError(err, production)
		if status >= 500 {
			log.Error().Err(err).Str("request_id", requestIDFrom(c)).Msg("request failed")
		}
		c.JSON(status, body)
	}
}

func renderError(err error, production bool) (int, errorResponse) {
	var dup *repository.DuplicateKeyError
	if errors.As(err, &dup) {
		err = apperr.Conflict(fmt.Sprintf("Duplicate value for %s", strings.Join(dup.Fields, ", ")))
	}

	kind := apperr.KindOf(err)
	status := kind.Status()

	resp := errorResponse{Status: "fail", Message: genericMessage}
	if status >= 500 {
		resp.Status = "error"
	}

	var appErr *apperr.Error
	if errors.As(err, &appErr) {
		resp.Message = appErr.Message
	} else if !production {
		resp.Message = err.Error()
	}

	if production {
		if kind == apperr.KindInternal {
			resp.Message = genericMessage
		}
		return status, resp
	}

	resp.Error = err.Error()
	return status, resp
}
