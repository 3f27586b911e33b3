package types

import (
	"errors"
	"fmt"
)

// Store lifecycle errors.
var (
	ErrStoreDetached   = errors.New("event store is detached")
	ErrAlreadyAttached = errors.New("event store is already attached")
)

// Store operation errors.
var (
	ErrNotFound            = errors.New("entity not found")
	ErrInvalidID           = errors.New("invalid entity ID")
	ErrInvalidKind         = errors.New("invalid entity kind")
	ErrInvalidData         = errors.New("invalid entity data")
	ErrUnsupportedSnapshot = errors.New("unsupported snapshot version")
)

// Cycle errors.
var (
	ErrAuthentication = errors.New("authentication failed")
	ErrParse          = errors.New("parse error")
	ErrDelivery       = errors.New("delivery failed")
)

// ParseError reports a page structure the crawler cannot interpret. It aborts
// the crawl.
type ParseError struct {
	Course string
	Path   string
	Tag    string
	Reason string
}

func (e *ParseError) Error() string {
	msg := fmt.Sprintf("ParseError: %s under course=%s,path=%s", e.Reason, e.Course, e.Path)
	if e.Tag != "" {
		msg += ",tag=" + e.Tag
	}
	return msg
}

func (e *ParseError) Is(target error) bool { return target == ErrParse }

// DeliveryError reports a failed send of one notification to one receiver.
type DeliveryError struct {
	Template string
	Receiver string
	Err      error
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("deliver %s to %s: %v", e.Template, e.Receiver, e.Err)
}

func (e *DeliveryError) Unwrap() error { return e.Err }

func (e *DeliveryError) Is(target error) bool { return target == ErrDelivery }

// Warning is a non-fatal crawl finding that is reported by mail, such as an
// assignment whose due date could not be read.
type Warning struct {
	Course  string
	Title   string
	Message string
}

func (w Warning) String() string {
	return fmt.Sprintf("%s for %s %s", w.Message, w.Course, w.Title)
}
