package reqctx

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"
)

func TestWithRequestContext(t *testing.T) {
	ctx := WithRequestContext(context.Background(), "nasa")
	rc := GetRequestContext(ctx)

	if _, err := uuid.Parse(rc.RequestID); err != nil {
		t.Errorf("request id %q is not a uuid: %v", rc.RequestID, err)
	}
	if rc.Target != "nasa" {
		t.Errorf("Target = %q", rc.Target)
	}
	if Logger(ctx) == nil {
		t.Error("expected a logger")
	}
}

func TestGetRequestContext_Missing(t *testing.T) {
	rc := GetRequestContext(context.Background())
	if rc.RequestID != "unknown" {
		t.Errorf("RequestID = %q, want unknown", rc.RequestID)
	}
	if Logger(context.Background()) == nil {
		t.Error("expected fallback logger")
	}
}

func TestNewRequestError(t *testing.T) {
	base := errors.New("navigation failed")
	ctx := WithRequestContext(context.Background(), "nasa")

	err := NewRequestError(ctx, base)
	if !errors.Is(err, base) {
		t.Error("RequestError should unwrap to the original error")
	}
	if !strings.HasPrefix(err.Error(), "["+GetRequestContext(ctx).RequestID+"]") {
		t.Errorf("unexpected message %q", err.Error())
	}
}
