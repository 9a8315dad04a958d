package response

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/xxxsen/common/webapi/proxyutil"

	"github.com/xxxsen/studygen/internal/ai"
	"github.com/xxxsen/studygen/internal/pkg/errcode"
	appErr "github.com/xxxsen/studygen/internal/pkg/errors"
)

type codeErr struct {
	code uint32
	msg  string
}

func (e codeErr) Error() string {
	return e.msg
}

func (e codeErr) Code() uint32 {
	return e.code
}

func AsCodeErr(code uint32, msg string) error {
	return codeErr{code: code, msg: msg}
}

func Success(c *gin.Context, data interface{}) {
	proxyutil.SuccessJson(c, data)
}

func Error(c *gin.Context, code int, message string) {
	proxyutil.FailJson(c, 200, AsCodeErr(uint32(code), message))
}

// Fail writes err as an envelope error. Input problems keep their message so
// the app can show it; anything unrecognized is reported as internal.
func Fail(c *gin.Context, err error) {
	code, msg := Classify(err)
	Error(c, code, msg)
}

func Classify(err error) (int, string) {
	switch {
	case errors.Is(err, appErr.ErrNotFound):
		return errcode.ErrNotFound, "not found"
	case errors.Is(err, appErr.ErrEmptyContent), errors.Is(err, appErr.ErrUnsupportedFile):
		return errcode.ErrInvalid, err.Error()
	case errors.Is(err, appErr.ErrInvalid):
		return errcode.ErrInvalid, "invalid request"
	case errors.Is(err, appErr.ErrBusy):
		return errcode.ErrBusy, err.Error()
	case errors.Is(err, appErr.ErrTooMany):
		return errcode.ErrTooMany, "too many requests"
	case errors.Is(err, ai.ErrUnavailable):
		return errcode.ErrAIUnavailable, "provider unavailable"
	}
	var perr *ai.ProviderError
	if errors.As(err, &perr) {
		return errcode.ErrUpstream, perr.Error()
	}
	return errcode.ErrInternal, "internal error"
}
