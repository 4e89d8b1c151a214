// Roadbed - Routing Database Provisioning for PostGIS and pgRouting
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/roadbed

package models

import (
	"errors"
	"fmt"
)

// Kind classifies a provisioning failure.
type Kind int

const (
	// KindEnvironment covers package manager, disk, network and service failures.
	KindEnvironment Kind = iota
	// KindData covers malformed extracts, invalid bounding boxes and schema mismatches.
	KindData
	// KindTransient covers a service that never became available within its deadline.
	KindTransient
	// KindBenign covers pre-existing state that is logged and ignored.
	KindBenign
)

// String returns the lowercase kind name used in diagnostics.
func (k Kind) String() string {
	switch k {
	case KindEnvironment:
		return "environment"
	case KindData:
		return "data"
	case KindTransient:
		return "transient"
	case KindBenign:
		return "benign"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// ErrReadinessTimeout is returned when the database never answered within the
// configured readiness timeout.
var ErrReadinessTimeout = errors.New("database readiness timeout")

// Error is a classified provisioning error.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Op == "" {
		return e.Err.Error()
	}
	return e.Op + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// NewError wraps err with a kind and operation name. A nil err yields nil.
func NewError(kind Kind, op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Op: op, Err: err}
}

// EnvironmentError wraps err as KindEnvironment.
func EnvironmentError(op string, err error) error {
	return NewError(KindEnvironment, op, err)
}

// DataError wraps err as KindData.
func DataError(op string, err error) error {
	return NewError(KindData, op, err)
}

// TransientError wraps err as KindTransient.
func TransientError(op string, err error) error {
	return NewError(KindTransient, op, err)
}

// KindOf returns the kind of the outermost *Error in err's chain.
// Unclassified errors are reported as KindEnvironment.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindEnvironment
}
