// Package web holds the gin response helpers shared by every handler.
package web

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/moogar0880/problems"

	"github.com/nodeflow-go/pkg/apperrors"
	"github.com/nodeflow-go/pkg/logger"
)

func BadRequest(c *gin.Context, detail string) {
	problem := problems.NewStatusProblem(http.StatusBadRequest).
		WithInstance(c.Request.URL.Path).
		WithType(apperrors.KindValidation.String()).
		WithDetail(detail)

	c.AbortWithStatusJSON(http.StatusBadRequest, problem)
}

// Error writes err as a problem document. The status comes from the error's
// kind; unclassified errors are logged and answered with a bare 500.
func Error(c *gin.Context, log logger.Logger, err error) {
	status := apperrors.HTTPStatus(err)
	problem := problems.NewStatusProblem(status).
		WithInstance(c.Request.URL.Path).
		WithType(apperrors.CodeOf(err))

	if status == http.StatusInternalServerError {
		log.Error("Request failed", "path", c.Request.URL.Path, "method", c.Request.Method, "error", err)
		problem = problem.WithDetail("internal server error")
	} else {
		problem = problem.WithDetail(err.Error())
	}

	c.AbortWithStatusJSON(status, problem)
}

// ParamID parses the named path parameter as a positive id, answering 400
// when it is not one.
func ParamID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		BadRequest(c, "invalid "+name)
		return 0, false
	}
	return id, true
}

// QueryID parses an optional id filter. A missing parameter yields nil.
func QueryID(c *gin.Context, name string) (*int64, bool) {
	raw, ok := c.GetQuery(name)
	if !ok || raw == "" {
		return nil, true
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		BadRequest(c, "invalid "+name)
		return nil, false
	}
	return &id, true
}

// Deleted answers a successful delete.
func Deleted(c *gin.Context, what string) {
	c.JSON(http.StatusAccepted, gin.H{"detail": what + " deleted"})
}
