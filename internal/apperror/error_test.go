package apperror_test

import (
	"bytes"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"testing"

	"github.com/fd1az/dma-strategies/internal/apperror"
)

func TestNew_UsesMessageTable(t *testing.T) {
	err := apperror.New(apperror.CodeSwapDataMissing)
	if err.Message != "Swap data is missing" {
		t.Errorf("unexpected message %q", err.Message)
	}
	if err.StatusCode != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", err.StatusCode)
	}
}

func TestWrap_KeepsAppErrorAndCause(t *testing.T) {
	cause := errors.New("execution reverted")
	wrapped := apperror.New(apperror.CodeContractCallFailed, apperror.WithCause(cause))

	if !errors.Is(wrapped, cause) {
		t.Error("expected cause to be reachable via errors.Is")
	}
	if got := apperror.Wrap(wrapped, apperror.CodeInternalError, "ctx"); got != wrapped {
		t.Error("Wrap should return the existing AppError")
	}
	if apperror.GetCode(errors.New("plain")) != apperror.CodeUnknownError {
		t.Error("plain errors map to unknown code")
	}
}

func TestIs_ComparesCodes(t *testing.T) {
	a := apperror.New(apperror.CodeNoOperationBuilt)
	b := apperror.New(apperror.CodeNoOperationBuilt, apperror.WithContext("close"))
	if !errors.Is(a, b) {
		t.Error("errors with the same code should match")
	}
}

func TestDefaultStatusCodes(t *testing.T) {
	tests := []struct {
		code apperror.Code
		want int
	}{
		{apperror.CodeInvalidRiskRatio, http.StatusBadRequest},
		{apperror.CodeUnknownToken, http.StatusNotFound},
		{apperror.CodeSwapQuoteFailed, http.StatusServiceUnavailable},
		{apperror.CodeRateLimitExceeded, http.StatusTooManyRequests},
		{apperror.CodeEncodingFailed, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := apperror.New(tt.code).StatusCode; got != tt.want {
			t.Errorf("%s: status = %d, want %d", tt.code, got, tt.want)
		}
	}
}

func TestToResponse(t *testing.T) {
	err := apperror.Validation(apperror.CodeInvalidAmount, "USDC amount \"lots\"").WithTraceID("abc")
	resp := err.ToResponse()
	if resp.Error.Code != apperror.CodeInvalidAmount || resp.Error.TraceID != "abc" {
		t.Errorf("unexpected response %+v", resp)
	}
	if resp.Error.Context == "" {
		t.Error("context should be carried")
	}
}

func TestLogValue(t *testing.T) {
	err := apperror.External(apperror.CodeSwapQuoteFailed, "1inch swap", errors.New("timeout"))
	var buf bytes.Buffer
	slog.New(slog.NewTextHandler(&buf, nil)).Info("failed", "error", err)
	out := buf.String()
	if !strings.Contains(out, "error.code=SWAP_QUOTE_FAILED") || !strings.Contains(out, "error.cause=timeout") {
		t.Errorf("unexpected log line %q", out)
	}
}
