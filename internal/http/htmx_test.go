package httpx

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/eelab/labdesk/internal/domain/gate"
	apperrors "github.com/eelab/labdesk/internal/errors"
	"github.com/stretchr/testify/assert"
)

func TestWantsPartial(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	assert.False(t, WantsPartial(req))
	req.Header.Set("Hx-Request", "true")
	assert.True(t, WantsPartial(req))
	req.Header.Set("Hx-History-Restore-Request", "true")
	assert.False(t, WantsPartial(req))
}

func TestTriggerToast(t *testing.T) {
	rec := httptest.NewRecorder()
	TriggerToast(rec, gate.Notice{Message: `Say "hi"`, Severity: gate.SeverityWarning})
	assert.JSONEq(t, `{"showToast":{"message":"Say \"hi\"","type":"warning"}}`, rec.Header().Get("Hx-Trigger"))

	rec = httptest.NewRecorder()
	SetHXTrigger(rec, "refresh", nil)
	assert.JSONEq(t, `{"refresh":true}`, rec.Header().Get("Hx-Trigger"))
}

func TestWriteAppError(t *testing.T) {
	rec := httptest.NewRecorder()
	e := apperrors.ValidationField("role", "role is invalid")
	WriteAppError(rec, e)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"error":"validation","message":"role is invalid","field":"role"}`, rec.Body.String())

	rec = httptest.NewRecorder()
	WriteAppError(rec, assert.AnError)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), assert.AnError.Error())
}
