// Package validate implements the ordered field validation used by every
// write endpoint.  Rules are evaluated independently, one at a time, in
// declaration order, and the first failing rule's message is reported
// verbatim.  Scalar constraints are delegated to go-playground/validator;
// confirmation and file checks are expressed as predicate rules.
package validate

import (
	"fmt"
	"mime/multipart"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
)

var v = validator.New()

// Rule binds a single field value to a single constraint and the message
// returned when the constraint fails.  Either Tag (a validator "var" tag
// such as "required" or "min=4") or Check (a predicate) is set.
type Rule struct {
	Value   any
	Tag     string
	Check   func() bool
	Message any // string, or []string when the original reported an array
}

// Error is returned by First when a rule fails.  Message keeps the shape
// the API contract expects (string or array), so handlers place it in the
// response envelope unchanged.
type Error struct {
	Message any
}

func (e *Error) Error() string {
	return fmt.Sprint(e.Message)
}

// First evaluates rules in order and returns the first failure, or nil
// when every rule passes.
func First(rules ...Rule) *Error {
	for _, r := range rules {
		if r.Check != nil {
			if !r.Check() {
				return &Error{Message: r.Message}
			}
			continue
		}
		if err := v.Var(r.Value, r.Tag); err != nil {
			return &Error{Message: r.Message}
		}
	}
	return nil
}

// Required fails on empty or whitespace-only values.
func Required(value, message string) Rule {
	return Rule{Value: strings.TrimSpace(value), Tag: "required", Message: message}
}

// Min fails when value is shorter than n characters.
func Min(value string, n int, message any) Rule {
	return Rule{Value: value, Tag: fmt.Sprintf("min=%d", n), Message: message}
}

// Confirmed fails unless value equals its confirmation sibling.
func Confirmed(value, confirmation string, message any) Rule {
	return Rule{Check: func() bool { return value == confirmation }, Message: message}
}

// FileRequired fails when no file was attached to the multipart form.
func FileRequired(fh *multipart.FileHeader, message string) Rule {
	return Rule{Check: func() bool { return fh != nil && fh.Filename != "" }, Message: message}
}

// FileTypes fails unless the attachment's extension is in the whitelist.
// A missing file passes so ordering with FileRequired stays independent.
func FileTypes(fh *multipart.FileHeader, exts []string, message any) Rule {
	return Rule{Check: func() bool {
		if fh == nil {
			return true
		}
		got := strings.TrimPrefix(strings.ToLower(filepath.Ext(fh.Filename)), ".")
		for _, e := range exts {
			if got == e {
				return true
			}
		}
		return false
	}, Message: message}
}
