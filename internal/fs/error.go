package fs

import (
	"errors"
	iofs "io/fs"
)

type PathError struct {
	Op   string
	Path string
	Err  error
}

func (e *PathError) Error() string {
	return e.Op + " " + e.Path + ": " + e.Err.Error()
}

func (e *PathError) Unwrap() error {
	return e.Err
}

func IsNotExist(err error) bool {
	return errors.Is(err, iofs.ErrNotExist)
}
