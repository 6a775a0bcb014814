// Package errclass assigns a coarse category to arbitrary errors so callers can
// decide whether a failure is worth retrying.
package errclass

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net"
	"strings"
	"syscall"
)

// Category is the closed set of error categories.
type Category string

const (
	CategoryValidation Category = "VALIDATION"
	CategoryAPI        Category = "API"
	CategoryNetwork    Category = "NETWORK"
	CategoryAuth       Category = "AUTH"
	CategoryConfig     Category = "CONFIG"
	CategoryFile       Category = "FILE"
	CategoryRateLimit  Category = "RATE_LIMIT"
	CategoryUnknown    Category = "UNKNOWN"
)

// Categories lists every category in declaration order.
var Categories = []Category{
	CategoryValidation,
	CategoryAPI,
	CategoryNetwork,
	CategoryAuth,
	CategoryConfig,
	CategoryFile,
	CategoryRateLimit,
	CategoryUnknown,
}

// ParseCategory normalizes a category name.
func ParseCategory(value string) (Category, error) {
	normalized := Category(strings.ToUpper(strings.TrimSpace(value)))
	for _, c := range Categories {
		if c == normalized {
			return c, nil
		}
	}
	return "", fmt.Errorf("unknown error category: %s", value)
}

var rateLimitCodes = map[string]struct{}{
	"rate_limit_exceeded": {},
	"RATE_LIMIT":          {},
	"RATE_LIMITED":        {},
	"TOO_MANY_REQUESTS":   {},
}

var networkCodes = map[string]struct{}{
	"ECONNREFUSED": {},
	"ECONNRESET":   {},
	"ENOTFOUND":    {},
	"ETIMEDOUT":    {},
	"EAI_AGAIN":    {},
}

var fileCodes = map[string]struct{}{
	"ENOENT": {},
	"EACCES": {},
	"EISDIR": {},
}

// Categorize returns the category for err. First match wins:
// rate limit, auth, network, file, API, validation, unknown.
func Categorize(err error) (category Category) {
	if err == nil {
		return CategoryUnknown
	}
	defer func() {
		if recover() != nil {
			category = CategoryUnknown
		}
	}()

	f := Inspect(err)
	message := strings.ToLower(f.Message)

	switch {
	case f.Status == 429 || inSet(rateLimitCodes, f.Code) || strings.Contains(message, "rate limit"):
		return CategoryRateLimit
	case f.Status == 401 || f.Status == 403 ||
		strings.Contains(message, "unauthorized") || strings.Contains(message, "forbidden"):
		return CategoryAuth
	case inSet(networkCodes, f.Code):
		return CategoryNetwork
	case inSet(fileCodes, f.Code):
		return CategoryFile
	case f.Status >= 400:
		return CategoryAPI
	case strings.Contains(strings.ToLower(f.Name), "validation") || strings.Contains(message, "invalid"):
		return CategoryValidation
	default:
		return CategoryUnknown
	}
}

func inSet(set map[string]struct{}, code string) bool {
	if code == "" {
		return false
	}
	_, ok := set[code]
	return ok
}

// Fields are the observable attributes of an error used for classification.
type Fields struct {
	Status  int
	Code    string
	Name    string
	Message string
}

type statusCoder interface {
	StatusCode() int
}

type errorCoder interface {
	ErrorCode() string
}

type errorNamer interface {
	ErrorName() string
}

// Inspect extracts classification fields from err and its wrapped chain.
func Inspect(err error) Fields {
	if err == nil {
		return Fields{}
	}

	f := Fields{
		Message: err.Error(),
		Name:    fmt.Sprintf("%T", err),
	}

	var sc statusCoder
	if errors.As(err, &sc) && sc != nil {
		f.Status = sc.StatusCode()
	}

	var en errorNamer
	if errors.As(err, &en) && en != nil {
		f.Name = en.ErrorName()
	}

	var ec errorCoder
	if errors.As(err, &ec) && ec != nil {
		f.Code = strings.TrimSpace(ec.ErrorCode())
	}
	if f.Code == "" {
		f.Code = lowLevelCode(err)
	}

	return f
}

func lowLevelCode(err error) string {
	var errno syscall.Errno
	if errors.As(err, &errno) {
		switch errno {
		case syscall.ECONNREFUSED:
			return "ECONNREFUSED"
		case syscall.ECONNRESET:
			return "ECONNRESET"
		case syscall.ETIMEDOUT:
			return "ETIMEDOUT"
		case syscall.ENOENT:
			return "ENOENT"
		case syscall.EACCES, syscall.EPERM:
			return "EACCES"
		case syscall.EISDIR:
			return "EISDIR"
		}
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) && dnsErr != nil {
		switch {
		case dnsErr.IsNotFound:
			return "ENOTFOUND"
		case dnsErr.IsTemporary, dnsErr.IsTimeout:
			return "EAI_AGAIN"
		}
	}

	switch {
	case errors.Is(err, fs.ErrNotExist):
		return "ENOENT"
	case errors.Is(err, fs.ErrPermission):
		return "EACCES"
	case errors.Is(err, context.DeadlineExceeded):
		return "ETIMEDOUT"
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr != nil && netErr.Timeout() {
		return "ETIMEDOUT"
	}

	return ""
}
