package exitcode

import (
	"errors"

	"github.com/spf13/pflag"
)

const (
	Success = 0

	// Anything that went wrong, including build errors
	Failure = 1

	// Bad flags or arguments
	Usage = 2
)

// Coder is an interface to control what value Get returns.
type Coder interface {
	error
	ExitCode() int
}

// Get gets the exit code associated with an error. Cases:
//
//	nil => 0
//	errors implementing Coder => value returned by ExitCode
//	pflag.ErrHelp => 2
//	all other errors => 1
func Get(err error) int {
	if err == nil {
		return Success
	}

	if coder := Coder(nil); errors.As(err, &coder) {
		return coder.ExitCode()
	}

	if errors.Is(err, pflag.ErrHelp) {
		return Usage
	}

	return Failure
}

// Set wraps an error in a Coder, setting its error code.
func Set(err error, code int) error {
	if err == nil {
		return nil
	}
	return coder{err, code, false}
}

// Reported marks an error whose details were already printed through the
// diagnostics log. It exits with 1 but shouldn't be printed again.
func Reported(err error) error {
	if err == nil {
		return nil
	}
	return coder{err, Failure, true}
}

func WasReported(err error) bool {
	var co coder
	return errors.As(err, &co) && co.reported
}

var _ Coder = coder{}

type coder struct {
	error
	int
	reported bool
}

func (co coder) ExitCode() int {
	return co.int
}

func (co coder) Unwrap() error {
	return co.error
}
