package sites

import (
	"errors"

	"go_sitectl/internal/acme"
	"go_sitectl/internal/httpx"
	"go_sitectl/internal/lock"
	"go_sitectl/internal/model"
	"go_sitectl/internal/site"

	"github.com/gin-gonic/gin"
)

// illegal are precondition failures caused by the request values
var illegal = []error{
	site.ErrInvalidType,
	site.ErrInvalidSSLMode,
	site.ErrSameType,
	site.ErrUnknownService,
}

// toAppError maps a lifecycle error onto the API taxonomy
func toAppError(err error) *httpx.AppError {
	switch {
	case errors.Is(err, model.ErrSiteNotFound):
		return httpx.ErrNotFound(err.Error())
	case errors.Is(err, lock.ErrLocked):
		return httpx.ErrLocked(err.Error())
	case errors.Is(err, site.ErrSiteExists):
		return httpx.ErrAlreadyExists(err.Error())
	case site.IsInterrupted(err):
		return httpx.ErrInterrupted(err.Error(), err)
	case site.IsPrecondition(err):
		for _, target := range illegal {
			if errors.Is(err, target) {
				return httpx.ErrParamIllegal(err.Error())
			}
		}
		return httpx.ErrStateConflict(err.Error())
	}

	app := httpx.ErrExternalError(err.Error(), err)
	var pending *acme.PendingError
	if errors.As(err, &pending) {
		app.WithData(gin.H{"records": pending.Records})
	}
	return app
}

func fail(c *gin.Context, err error) {
	httpx.FailErr(c, toAppError(err))
}
