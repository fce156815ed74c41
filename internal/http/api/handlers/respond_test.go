package handlers

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/marketbridge/brokergate/internal/alpaca"
	"github.com/marketbridge/brokergate/internal/apperrors"
	"github.com/marketbridge/brokergate/internal/identity"
)

func TestWriteErrorStatusMapping(t *testing.T) {
	gin.SetMode(gin.TestMode)

	cases := []struct {
		name       string
		err        error
		wantStatus int
		wantBody   string
	}{
		{
			name: "validation",
			err: &apperrors.ValidationError{Violations: []identity.Violation{
				{Field: "identity.tax_id", Message: "invalid"},
			}},
			wantStatus: http.StatusBadRequest,
			wantBody:   "identity.tax_id",
		},
		{
			name:       "authorization",
			err:        &apperrors.AuthorizationError{},
			wantStatus: http.StatusForbidden,
		},
		{
			name:       "not found",
			err:        apperrors.ErrNotFound,
			wantStatus: http.StatusNotFound,
		},
		{
			name:       "conflict",
			err:        &apperrors.ConflictError{Reason: "already in use", Fields: []string{"email_address"}},
			wantStatus: http.StatusConflict,
			wantBody:   "email_address",
		},
		{
			name:       "gateway relays upstream status",
			err:        &alpaca.GatewayError{StatusCode: http.StatusUnprocessableEntity, Body: []byte(`{"message":"not eligible"}`)},
			wantStatus: http.StatusUnprocessableEntity,
			wantBody:   "not eligible",
		},
		{
			name:       "reconciliation gap is a bad gateway",
			err:        &apperrors.ReconciliationGap{Operation: "update", AlpacaID: "alp-1", Err: errors.New("row gone")},
			wantStatus: http.StatusBadGateway,
			wantBody:   "local sync pending",
		},
		{
			name:       "anything else is internal",
			err:        errors.New("boom"),
			wantStatus: http.StatusInternalServerError,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			recorder := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(recorder)
			writeError(c, tc.err)

			if recorder.Code != tc.wantStatus {
				t.Fatalf("status %d, want %d", recorder.Code, tc.wantStatus)
			}
			if tc.wantBody != "" && !strings.Contains(recorder.Body.String(), tc.wantBody) {
				t.Fatalf("body %q missing %q", recorder.Body.String(), tc.wantBody)
			}
		})
	}
}
