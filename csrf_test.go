package authkit

import (
	"errors"
	"net/http"
	"testing"
)

func TestCsrfIssueToken(t *testing.T) {
	guard := &CsrfGuard{}
	t1, err := guard.IssueToken()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	t2, err := guard.IssueToken()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if t1 == t2 {
		t.Error("issued tokens must be unique")
	}
}

func TestCsrfValidateMatch(t *testing.T) {
	guard := &CsrfGuard{}
	token, _ := guard.IssueToken()
	if err := guard.Validate(token, token, http.MethodPost); err != nil {
		t.Errorf("matching pair rejected: %v", err)
	}
}

func TestCsrfValidateMismatch(t *testing.T) {
	guard := &CsrfGuard{}
	cases := []struct {
		name    string
		cookie  string
		header  string
	}{
		{"different values", "token-a", "token-b"},
		{"missing cookie", "", "token-a"},
		{"missing header", "token-a", ""},
		{"both missing", "", ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := guard.Validate(tc.cookie, tc.header, http.MethodPost)
			if !errors.Is(err, ErrCsrfMismatch) {
				t.Errorf("expected ErrCsrfMismatch, got %v", err)
			}
		})
	}
}

func TestCsrfSafeMethodsExempt(t *testing.T) {
	guard := &CsrfGuard{}
	for _, method := range []string{http.MethodGet, http.MethodHead, http.MethodOptions} {
		if err := guard.Validate("", "", method); err != nil {
			t.Errorf("%s must be exempt, got %v", method, err)
		}
	}
	for _, method := range []string{http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete} {
		if err := guard.Validate("", "", method); !errors.Is(err, ErrCsrfMismatch) {
			t.Errorf("%s must be checked, got %v", method, err)
		}
	}
}

func TestCsrfInvalidateHook(t *testing.T) {
	fired := 0
	guard := &CsrfGuard{OnInvalidate: func() { fired++ }}

	guard.Validate("a", "b", http.MethodPost)
	if fired != 1 {
		t.Errorf("expected hook fired once, got %d", fired)
	}

	// Safe verbs and successful checks must not fire the hook.
	guard.Validate("a", "b", http.MethodGet)
	guard.Validate("same", "same", http.MethodPost)
	if fired != 1 {
		t.Errorf("hook fired on non-mismatch, count %d", fired)
	}
}
