package client

import (
	"errors"
	"net/http"

	"github.com/Sternrassler/listsync/pkg/transport"
)

// ErrorClass represents a classification of HTTP errors.
type ErrorClass string

const (
	// ErrorClassClient represents 4xx client errors.
	ErrorClassClient ErrorClass = "client"

	// ErrorClassServer represents 5xx server errors.
	ErrorClassServer ErrorClass = "server"

	// ErrorClassRateLimit represents 429 responses and local rate limit blocks.
	ErrorClassRateLimit ErrorClass = "rate_limit"

	// ErrorClassRateLimitCheck represents a quota lookup that failed, e.g.
	// Redis being unreachable.
	ErrorClassRateLimitCheck ErrorClass = "rate_limit_check"

	// ErrorClassNetwork represents network/timeout errors.
	ErrorClassNetwork ErrorClass = "network"
)

// ErrRateLimitCheck marks requests stopped because the shared quota could
// not be read.
var ErrRateLimitCheck = errors.New("rate limit check failed")

// ClassifyStatus returns the error class of an HTTP status, or "" for
// statuses below 400.
func ClassifyStatus(status int) ErrorClass {
	switch {
	case status == http.StatusTooManyRequests:
		return ErrorClassRateLimit
	case status >= 400 && status < 500:
		return ErrorClassClient
	case status >= 500:
		return ErrorClassServer
	default:
		return ""
	}
}

// Classify returns the error class of an error returned by Get.
func Classify(err error) ErrorClass {
	if err == nil {
		return ""
	}
	var terr *transport.Error
	if !errors.As(err, &terr) {
		return ""
	}
	if terr.StatusCode == 0 {
		if errors.Is(err, ErrRateLimitCheck) {
			return ErrorClassRateLimitCheck
		}
		return ErrorClassNetwork
	}
	return ClassifyStatus(terr.StatusCode)
}
