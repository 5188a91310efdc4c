// {{{ Copyright (c) Paul R. Tagliamonte <paultag@gmail.com> 2020-2021
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in
// all copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
// THE SOFTWARE. }}}

package pool

import "fmt"

// Code is the stable error discriminant surfaced to callers.
type Code int

const (
	// CodeUsage means the caller supplied invalid arguments.
	CodeUsage Code = iota + 1
	// CodeNotFound means the pool or sequence does not exist.
	CodeNotFound
	// CodeAlreadyExists means create collided with an existing pool.
	CodeAlreadyExists
	// CodeBusy means the writer lock is held, or the pool is in use.
	CodeBusy
	// CodePermission means the OS denied access.
	CodePermission
	// CodeCorrupt means a header/frame CRC, magic, or version check failed.
	CodeCorrupt
	// CodeIO means an unclassified OS failure occurred.
	CodeIO
	// CodeInternal means an engine invariant was violated. Should not occur.
	CodeInternal
	// CodeLag means a stream's next_seq fell behind the pool's oldest
	// reachable sequence because of eviction.
	CodeLag
)

func (c Code) String() string {
	switch c {
	case CodeUsage:
		return "Usage"
	case CodeNotFound:
		return "NotFound"
	case CodeAlreadyExists:
		return "AlreadyExists"
	case CodeBusy:
		return "Busy"
	case CodePermission:
		return "Permission"
	case CodeCorrupt:
		return "Corrupt"
	case CodeIO:
		return "IO"
	case CodeInternal:
		return "Internal"
	case CodeLag:
		return "Lag"
	default:
		return "Unknown"
	}
}

// Error carries the discriminant plus whatever context (spec §7) was
// available at the failure site.
type Error struct {
	Code Code
	Path string
	Seq  uint64
	// Offset is a byte offset within the pool file, set for Corrupt errors.
	Offset uint64
	// Oldest and Newest are the bounds observed at failure time, set for
	// NotFound and Lag errors so the caller can decide where to resume.
	Oldest, Newest uint64
	HasBounds      bool
	Msg            string
	Err            error
}

func (e *Error) Error() string {
	s := e.Code.String()
	if e.Msg != "" {
		s += ": " + e.Msg
	}
	if e.Path != "" {
		s += fmt.Sprintf(" (path=%s)", e.Path)
	}
	if e.HasBounds {
		s += fmt.Sprintf(" (oldest=%d newest=%d)", e.Oldest, e.Newest)
	}
	if e.Err != nil {
		s += ": " + e.Err.Error()
	}
	return s
}

func (e *Error) Unwrap() error { return e.Err }

// Is makes errors.Is(err, pool.ErrNotFound) (and friends) work by comparing
// only the discriminant, ignoring context fields.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// Sentinel discriminants for use with errors.Is.
var (
	ErrUsage        = &Error{Code: CodeUsage}
	ErrNotFound     = &Error{Code: CodeNotFound}
	ErrAlreadyExist = &Error{Code: CodeAlreadyExists}
	ErrBusy         = &Error{Code: CodeBusy}
	ErrPermission   = &Error{Code: CodePermission}
	ErrCorrupt      = &Error{Code: CodeCorrupt}
	ErrIO           = &Error{Code: CodeIO}
	ErrInternal     = &Error{Code: CodeInternal}
	ErrLag          = &Error{Code: CodeLag}
)

func usagef(format string, args ...interface{}) *Error {
	return &Error{Code: CodeUsage, Msg: fmt.Sprintf(format, args...)}
}

func notFound(path string, seq, oldest, newest uint64) *Error {
	return &Error{Code: CodeNotFound, Path: path, Seq: seq, Oldest: oldest, Newest: newest, HasBounds: true}
}

func lag(seq, oldest, newest uint64) *Error {
	return &Error{Code: CodeLag, Seq: seq, Oldest: oldest, Newest: newest, HasBounds: true}
}

func corrupt(path string, offset uint64, msg string) *Error {
	return &Error{Code: CodeCorrupt, Path: path, Offset: offset, Msg: msg}
}

func corruptErr(path string, offset uint64, err error) *Error {
	return &Error{Code: CodeCorrupt, Path: path, Offset: offset, Err: err}
}

func ioErrf(path string, err error) *Error {
	return &Error{Code: CodeIO, Path: path, Err: err}
}

func permissionErr(path string, err error) *Error {
	return &Error{Code: CodePermission, Path: path, Err: err}
}

func internalf(format string, args ...interface{}) *Error {
	return &Error{Code: CodeInternal, Msg: fmt.Sprintf(format, args...)}
}

func alreadyExists(path string) *Error {
	return &Error{Code: CodeAlreadyExists, Path: path}
}

func busy(path string) *Error {
	return &Error{Code: CodeBusy, Path: path}
}

// vim: foldmethod=marker
