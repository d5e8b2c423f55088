// Package errcat tags errors with a category so that callers at the CLI
// boundary can decide whether to print a short message or point the user at
// the log file.
package errcat

import (
	"errors"
	"fmt"
)

// Category classifies an error for presentation purposes.
type Category int

const (
	OK       = Category(iota)
	User     // bad input from the operator: flags, gateway selection, credentials
	Config   // persisted state, config file, environment
	Mixnet   // mixnet connect/handshake failures
	Platform // routing, DNS, firewall, WireGuard device failures
	Unknown  // consult the logs
)

func (c Category) String() string {
	switch c {
	case OK:
		return "ok"
	case User:
		return "user"
	case Config:
		return "config"
	case Mixnet:
		return "mixnet"
	case Platform:
		return "platform"
	default:
		return "unknown"
	}
}

type categorized struct {
	error
	category Category
}

// New wraps err (or builds one from a string) under category c.
func (c Category) New(v any) error {
	var err error
	switch v := v.(type) {
	case nil:
		return nil
	case error:
		err = v
	case string:
		err = errors.New(v)
	default:
		err = fmt.Errorf("%v", v)
	}
	return &categorized{error: err, category: c}
}

// Newf builds a categorized error using fmt.Errorf semantics (so %w works).
func (c Category) Newf(format string, a ...any) error {
	return &categorized{error: fmt.Errorf(format, a...), category: c}
}

func (ce *categorized) Unwrap() error {
	return ce.error
}

// GetCategory returns the category attached to err, OK for nil, Unknown for
// an error that was never categorized.
func GetCategory(err error) Category {
	if err == nil {
		return OK
	}
	var ce *categorized
	if errors.As(err, &ce) {
		return ce.category
	}
	return Unknown
}
