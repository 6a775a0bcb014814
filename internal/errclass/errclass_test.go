package errclass

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"syscall"
	"testing"

	"github.com/stretchr/testify/require"
)

type statusErr struct {
	status int
	code   string
	msg    string
}

func (e *statusErr) Error() string     { return e.msg }
func (e *statusErr) StatusCode() int   { return e.status }
func (e *statusErr) ErrorCode() string { return e.code }

type bareErr struct{}

func (bareErr) Error() string { return "" }

func TestCategorize(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want Category
	}{
		{"nil", nil, CategoryUnknown},
		{"status429", &statusErr{status: 429, msg: "slow down"}, CategoryRateLimit},
		{"rateLimitCode", &statusErr{code: "rate_limit_exceeded", msg: "x"}, CategoryRateLimit},
		{"rateLimitMessage", errors.New("Rate Limit reached for model"), CategoryRateLimit},
		{"status401", &statusErr{status: 401, msg: "nope"}, CategoryAuth},
		{"status403", &statusErr{status: 403, msg: "nope"}, CategoryAuth},
		{"unauthorizedMessage", errors.New("Unauthorized client"), CategoryAuth},
		{"forbiddenMessage", errors.New("access forbidden"), CategoryAuth},
		{"connRefused", fmt.Errorf("dial: %w", syscall.ECONNREFUSED), CategoryNetwork},
		{"connReset", fmt.Errorf("read: %w", syscall.ECONNRESET), CategoryNetwork},
		{"dnsNotFound", &net.DNSError{Err: "no such host", Name: "api.example", IsNotFound: true}, CategoryNetwork},
		{"dnsTemporary", &net.DNSError{Err: "try again", Name: "api.example", IsTemporary: true}, CategoryNetwork},
		{"deadline", context.DeadlineExceeded, CategoryNetwork},
		{"fileMissing", &os.PathError{Op: "open", Path: "/nope", Err: syscall.ENOENT}, CategoryFile},
		{"permission", fmt.Errorf("write: %w", os.ErrPermission), CategoryFile},
		{"isDir", &os.PathError{Op: "read", Path: "/tmp", Err: syscall.EISDIR}, CategoryFile},
		{"status500", &statusErr{status: 500, msg: "boom"}, CategoryAPI},
		{"status400", &statusErr{status: 400, msg: "bad request"}, CategoryAPI},
		{"validationType", NewValidationError("price", "must be positive"), CategoryValidation},
		{"invalidMessage", errors.New("invalid product url"), CategoryValidation},
		{"plain", errors.New("something odd"), CategoryUnknown},
		{"empty", bareErr{}, CategoryUnknown},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, Categorize(tc.err))
		})
	}
}

func TestCategorizeOrdering(t *testing.T) {
	// 429 with an auth-looking message still counts as a rate limit.
	err := &statusErr{status: 429, msg: "unauthorized burst"}
	require.Equal(t, CategoryRateLimit, Categorize(err))

	// A 400 whose message says invalid is an API failure, not validation.
	err = &statusErr{status: 400, msg: "invalid request body"}
	require.Equal(t, CategoryAPI, Categorize(err))

	// Network codes outrank file codes and API status.
	wrapped := fmt.Errorf("post: %w", errors.Join(syscall.ECONNREFUSED, &statusErr{status: 502, msg: "gateway"}))
	require.Equal(t, CategoryNetwork, Categorize(wrapped))
}

func TestCategorizeWrappedStatus(t *testing.T) {
	err := fmt.Errorf("generate: %w", &statusErr{status: 429, msg: "too many"})
	require.Equal(t, CategoryRateLimit, Categorize(err))
}

func TestInspect(t *testing.T) {
	f := Inspect(fmt.Errorf("outer: %w", &statusErr{status: 503, code: "server_error", msg: "down"}))
	require.Equal(t, 503, f.Status)
	require.Equal(t, "server_error", f.Code)
	require.Equal(t, "outer: down", f.Message)

	require.Equal(t, Fields{}, Inspect(nil))
	require.Equal(t, "ValidationError", Inspect(NewValidationError("", "x")).Name)
}

func TestParseCategory(t *testing.T) {
	c, err := ParseCategory(" rate_limit ")
	require.NoError(t, err)
	require.Equal(t, CategoryRateLimit, c)

	_, err = ParseCategory("transient")
	require.Error(t, err)
}
