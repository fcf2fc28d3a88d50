package vm

import (
	"errors"
	"fmt"
)

// Sentinel errors returned by the registration and introspection API.
var (
	ErrIdentConflict   = errors.New("identifier already registered with a different kind")
	ErrBadSignature    = errors.New("invalid command signature")
	ErrUnknownIdent    = errors.New("unknown identifier")
	ErrReadOnly        = errors.New("identifier is read-only")
	ErrCorruptBytecode = errors.New("corrupt bytecode")
)

// InvariantError reports an engine state that well-formed bytecode can never
// reach: operand stack underflow, an identifier index out of range, an
// unpaired binding pop. It aborts the current Execute call; binding restores
// for every frame being exited still run.
type InvariantError struct {
	Msg   string
	Block string
	PC    int
}

func (e *InvariantError) Error() string {
	if e.Block != "" {
		return fmt.Sprintf("cubescript: %s (%s @%04X)", e.Msg, e.Block, e.PC)
	}
	return "cubescript: " + e.Msg
}

// Unwrap lets callers test for ErrCorruptBytecode with errors.Is.
func (e *InvariantError) Unwrap() error {
	return ErrCorruptBytecode
}

func invariantf(format string, args ...any) *InvariantError {
	return &InvariantError{Msg: fmt.Sprintf(format, args...)}
}
