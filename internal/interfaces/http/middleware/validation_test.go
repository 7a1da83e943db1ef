package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type amountRequest struct {
	Kind   string           `json:"kind" binding:"required,oneof=expense revenue"`
	Amount decimal.Decimal  `json:"amount" binding:"decimal_gte0"`
	Paid   *decimal.Decimal `json:"paid" binding:"omitempty,decimal_gte0"`
}

func newValidationRouter(t *testing.T) *gin.Engine {
	t.Helper()
	require.NoError(t, SetupValidator())

	r := gin.New()
	r.POST("/x", func(c *gin.Context) {
		var req amountRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			HandleValidationError(c, err)
			return
		}
		c.Status(http.StatusOK)
	})
	return r
}

func TestSetupValidator_DecimalGTE0(t *testing.T) {
	r := newValidationRouter(t)

	tests := []struct {
		name   string
		body   string
		status int
		field  string
	}{
		{"valid", `{"kind":"expense","amount":"10.50"}`, http.StatusOK, ""},
		{"zero", `{"kind":"expense","amount":0}`, http.StatusOK, ""},
		{"negative amount", `{"kind":"expense","amount":"-1"}`, http.StatusBadRequest, "amount"},
		{"negative paid", `{"kind":"revenue","amount":"1","paid":"-0.01"}`, http.StatusBadRequest, "paid"},
		{"bad kind", `{"kind":"transfer","amount":"1"}`, http.StatusBadRequest, "kind"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/x", strings.NewReader(tt.body)))
			assert.Equal(t, tt.status, w.Code)
			if tt.field != "" {
				info := decodeError(t, w)
				require.Len(t, info.Details, 1)
				assert.Equal(t, tt.field, info.Details[0].Field)
			}
		})
	}
}

func TestHandleValidationError_MalformedJSON(t *testing.T) {
	r := newValidationRouter(t)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/x", strings.NewReader(`{"kind":`)))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "ERR_INVALID_JSON", decodeError(t, w).Code)
}
