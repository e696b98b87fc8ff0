// Authors: Rohan Adla, Arrio Gonsalves, Shreyan Nalwad, Dylan Setiawan
// Date: Dec 12th 2025
// Project: Geo Experiment Causal Effect and Preanalysis Toolkit
// Class: 02-613 at Caregie Mellon University

// Package geoerr holds the error kinds and codes shared by every estimator.
// Codes wrap their kind, so callers can test either one with errors.Is:
//
//	errors.Is(err, geoerr.ErrInsufficientGeos)  // the specific failure
//	errors.Is(err, geoerr.ErrInsufficientData)  // the family it belongs to
package geoerr

import "errors"

// Error kinds
var (
	ErrValidation       = errors.New("validation error")
	ErrInsufficientData = errors.New("insufficient data")
	ErrDegenerateModel  = errors.New("degenerate model")
	ErrInvalidParameter = errors.New("invalid parameter")
)

// codeError is a named failure belonging to one kind.
type codeError struct {
	kind error
	msg  string
}

func (e *codeError) Error() string { return e.msg }

func (e *codeError) Unwrap() error { return e.kind }

func newCode(kind error, msg string) error {
	return &codeError{kind: kind, msg: msg}
}

// Validation codes
var (
	ErrInvalidPeriods       = newCode(ErrValidation, "invalid experiment periods")
	ErrInvalidAssignment    = newCode(ErrValidation, "invalid geo assignment")
	ErrUnassignedGeo        = newCode(ErrValidation, "geo has no group assignment")
	ErrMissingMetric        = newCode(ErrValidation, "missing metric column")
	ErrMissingObservation   = newCode(ErrValidation, "missing observation")
	ErrDuplicateObservation = newCode(ErrValidation, "duplicate observation")
	ErrInvalidMetric        = newCode(ErrValidation, "invalid metric value")
)

// Insufficient data codes
var (
	ErrInsufficientGeos    = newCode(ErrInsufficientData, "insufficient geos")
	ErrInsufficientHistory = newCode(ErrInsufficientData, "insufficient history")
	ErrInsufficientPretest = newCode(ErrInsufficientData, "insufficient pretest data")
	ErrEmptyTestWindow     = newCode(ErrInsufficientData, "empty test window")
)

// Degenerate model codes
var (
	ErrDegenerateRegression = newCode(ErrDegenerateModel, "degenerate regression")
	ErrZeroCost             = newCode(ErrDegenerateModel, "zero incremental cost")
	ErrUndefinedRatio       = newCode(ErrDegenerateModel, "undefined ratio")
	ErrNoVariation          = newCode(ErrDegenerateModel, "no variation in proportionality metric")
)

// Invalid parameter codes
var (
	ErrInvalidLevel            = newCode(ErrInvalidParameter, "invalid level")
	ErrNonPositivePeriodLength = newCode(ErrInvalidParameter, "non-positive period length")
	ErrBadParameter            = newCode(ErrInvalidParameter, "bad parameter")
	ErrUnknownModel            = newCode(ErrInvalidParameter, "unknown model")
	ErrQueryParameters         = newCode(ErrInvalidParameter, "exactly one of precision or cost must be given")
	ErrEmptyDrawSet            = newCode(ErrInvalidParameter, "empty draw set")
)
