package service

import "errors"

// Code classifies why a subscription or arbitration attempt ended the way
// it did. Codes are ordered: when several failures occur during one
// arbitration pass, only the highest code is reported.
type Code int

const (
	CodeOK Code = 0

	// Source-side conditions (1xx).
	CodeSourceReconfigured Code = 100
	CodeBadSource          Code = 101
	CodeSourceDeleted      Code = 102
	CodeOverridden         Code = 103

	// Resource-side conditions (2xx).
	CodeNoFreeAdapter Code = 200
	CodeTuningFailed  Code = 204

	// Data-side conditions (3xx).
	CodeNoDescrambler Code = 301
	CodeNoAccess      Code = 302
	CodeNoInput       Code = 303
)

var codeText = map[Code]string{
	CodeOK:                 "ok",
	CodeSourceReconfigured: "source reconfigured",
	CodeBadSource:          "bad source",
	CodeSourceDeleted:      "source deleted",
	CodeOverridden:         "subscription overridden",
	CodeNoFreeAdapter:      "no free adapter",
	CodeTuningFailed:       "tuning failed",
	CodeNoDescrambler:      "no descrambler",
	CodeNoAccess:           "no access",
	CodeNoInput:            "no input detected",
}

func (c Code) String() string {
	if s, ok := codeText[c]; ok {
		return s
	}
	return "unknown"
}

// Sentinel errors surfaced by arbitration. Callers distinguish "all
// resources busy" from "a resource was picked but would not tune".
var (
	ErrNoFreeAdapter = errors.New("no free adapter for service")
	ErrTuningFailed  = errors.New("tuning failed")
)

// raise keeps the highest code seen so far.
func raise(cur *Code, c Code) {
	if *cur < c {
		*cur = c
	}
}
