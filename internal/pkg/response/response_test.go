package response

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/xxxsen/studygen/internal/ai"
	"github.com/xxxsen/studygen/internal/pkg/errcode"
	appErr "github.com/xxxsen/studygen/internal/pkg/errors"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code int
		msg  string
	}{
		{"not found", fmt.Errorf("bank x: %w", appErr.ErrNotFound), errcode.ErrNotFound, "not found"},
		{"empty document", appErr.ErrEmptyContent, errcode.ErrInvalid, appErr.ErrEmptyContent.Error()},
		{"invalid", fmt.Errorf("chunk 9: %w", appErr.ErrInvalid), errcode.ErrInvalid, "invalid request"},
		{"busy", appErr.ErrBusy, errcode.ErrBusy, appErr.ErrBusy.Error()},
		{"provider unavailable", ai.ErrUnavailable, errcode.ErrAIUnavailable, "provider unavailable"},
		{"upstream", &ai.ProviderError{Provider: "groq", Status: 429, Message: "slow down"}, errcode.ErrUpstream, "groq request failed: status 429: slow down"},
		{"other", errors.New("disk on fire"), errcode.ErrInternal, "internal error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, msg := Classify(tt.err)
			require.Equal(t, tt.code, code)
			require.Equal(t, tt.msg, msg)
		})
	}
}

func TestFailWritesEnvelope(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/banks/x", func(c *gin.Context) { Fail(c, appErr.ErrNotFound) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/banks/x", nil))
	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Code int    `json:"code"`
		Msg  string `json:"msg"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Equal(t, errcode.ErrNotFound, body.Code)
	require.Equal(t, "not found", body.Msg)
}
