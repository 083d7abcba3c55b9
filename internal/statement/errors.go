package statement

import (
	"context"
	"errors"
	"fmt"
)

// ErrKind classifies a failed fetch.
type ErrKind int

const (
	// ErrKindHTTP: FMP answered with a non-200 status.
	ErrKindHTTP ErrKind = iota + 1
	// ErrKindData: FMP answered 200 but not with a non-empty array of objects.
	ErrKindData
	// ErrKindTransport: the request never produced a response (DNS, refused,
	// timeout, cancelled).
	ErrKindTransport
)

func (k ErrKind) String() string {
	switch k {
	case ErrKindHTTP:
		return "http"
	case ErrKindData:
		return "data"
	case ErrKindTransport:
		return "transport"
	}
	return "unknown"
}

// User-facing messages.
const (
	msgHTTP    = "Failed to fetch data: %d"
	msgInvalid = "Unable to fetch financial statements. Please ensure the ticker is correct and try again."
	msgTimeout = "Unable to fetch financial statements: the request timed out. Please ensure the ticker is correct and try again."
)

// FetchError is returned by Fetcher.Fetch for every failure. The table
// returned alongside it is always empty and non-nil.
type FetchError struct {
	Kind       ErrKind
	Ticker     string
	Type       Type
	StatusCode int   // set for ErrKindHTTP
	Detail     string // upstream error text, if FMP sent one
	Err        error
}

func (e *FetchError) Error() string {
	prefix := fmt.Sprintf("statement: fetch %s for %s", e.Type.Lower(), e.Ticker)
	switch {
	case e.Kind == ErrKindHTTP:
		if e.Detail != "" {
			return fmt.Sprintf("%s: HTTP %d: %s", prefix, e.StatusCode, e.Detail)
		}
		return fmt.Sprintf("%s: HTTP %d", prefix, e.StatusCode)
	case e.Detail != "":
		return fmt.Sprintf("%s: %v: %s", prefix, e.Err, e.Detail)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", prefix, e.Err)
	}
	return prefix + ": " + e.Kind.String() + " error"
}

func (e *FetchError) Unwrap() error { return e.Err }

// UserMessage is the text shown to the person who ran the query.
func (e *FetchError) UserMessage() string {
	switch {
	case e.Kind == ErrKindHTTP:
		return fmt.Sprintf(msgHTTP, e.StatusCode)
	case e.Timeout():
		return msgTimeout
	}
	return msgInvalid
}

// Timeout reports whether the fetch failed because its deadline passed.
func (e *FetchError) Timeout() bool {
	if errors.Is(e.Err, context.DeadlineExceeded) {
		return true
	}
	var te interface{ Timeout() bool }
	return errors.As(e.Err, &te) && te.Timeout()
}
