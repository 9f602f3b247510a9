package csr

import (
	"strings"

	"github.com/pkg/errors"
)

var (
	ErrOverlap   = errors.New("fields overlap")
	ErrRange     = errors.New("field out of range")
	ErrDuplicate = errors.New("duplicate name")
	ErrConsumed  = errors.New("register collector already consumed")
	ErrFinalized = errors.New("register already finalized")
	ErrSealed    = errors.New("design already simulating")
	ErrReadOnly  = errors.New("register is read-only")
	ErrNoReg     = errors.New("no such register")
)

func wrapf(err error, format string, args ...any) error {
	return errors.Wrapf(err, format, args...)
}

// ErrorList collects the configuration errors of a register set so all of
// them can be reported at once.
type ErrorList struct {
	errs []error
}

func (list *ErrorList) appendIfNotNil(err error) {
	if err == nil {
		return
	}
	list.errs = append(list.errs, err)
}

func (list *ErrorList) Len() int { return len(list.errs) }

// Err returns list as an error, or nil if it is empty.
func (list *ErrorList) Err() error {
	if list.Len() == 0 {
		return nil
	}
	return list
}

func (list *ErrorList) Error() string {
	if list.Len() == 0 {
		return "(no errors)"
	}
	var sb strings.Builder
	for i, err := range list.errs {
		if i > 0 {
			sb.WriteString("; ")
		}
		sb.WriteString(err.Error())
	}
	return sb.String()
}

func (list *ErrorList) Unwrap() []error { return list.errs }
