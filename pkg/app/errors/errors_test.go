package errors

import (
	"errors"
	"net/http"
	"testing"
)

func TestKindOf_ReturnsOtherForNonServiceError(t *testing.T) {
	if got := KindOf(errors.New("boom")); got != KindOther {
		t.Errorf("expected KindOther, got %v", got)
	}
}

func TestKindOf_ReturnsWrappedKind(t *testing.T) {
	err := Throttled(nil, "rate limited")
	if got := KindOf(err); got != KindThrottled {
		t.Errorf("expected KindThrottled, got %v", got)
	}
}

func TestIs_MatchesWrappedErrorThroughErrorsJoin(t *testing.T) {
	inner := Conflict(nil, "transaction conflict")
	outer := errors.Join(errors.New("context"), inner)
	if !Is(outer, KindConflict) {
		t.Errorf("expected Is to see through errors.Join to the wrapped ServiceError")
	}
}

func TestAccessDenied_AlwaysNormalizesMessage(t *testing.T) {
	err := AccessDenied(errors.New("provider said: bucket policy denies s3:GetObject"))
	var svcErr *ServiceError
	if !errors.As(err, &svcErr) {
		t.Fatalf("expected a *ServiceError")
	}
	if svcErr.Message != "Access denied" {
		t.Errorf("expected normalized message, got %q", svcErr.Message)
	}
}

func TestServiceError_StatusCode(t *testing.T) {
	if (&ServiceError{Kind: KindUnauthorizedAccess}).StatusCode() != http.StatusForbidden {
		t.Errorf("expected 403 for KindUnauthorizedAccess")
	}
	for _, k := range []Kind{KindValidation, KindResourceNotFound, KindInternalError, KindOther} {
		if (&ServiceError{Kind: k}).StatusCode() != http.StatusOK {
			t.Errorf("expected 200 for kind %v", k)
		}
	}
}

func TestKind_String(t *testing.T) {
	cases := map[Kind]string{
		KindValidation:             "Validation",
		KindResourceNotFound:       "ResourceNotFound",
		KindConditionalCheckFailed: "ConditionalCheckFailed",
		KindThrottled:              "Throttled",
		KindConflict:               "Conflict",
		KindInternalError:          "InternalError",
		KindAccessDenied:           "AccessDenied",
		KindUnauthorizedAccess:     "UnauthorizedAccess",
		KindOther:                  "Other",
		KindNone:                   "Other",
	}
	for kind, want := range cases {
		if got := kind.String(); got != want {
			t.Errorf("kind %d: expected %q, got %q", kind, want, got)
		}
	}
}

func TestServiceError_Unwrap(t *testing.T) {
	inner := errors.New("provider failure")
	err := InternalError(inner, "internal error")
	if errors.Unwrap(err) != inner {
		t.Errorf("expected Unwrap to return the wrapped provider error")
	}
}
