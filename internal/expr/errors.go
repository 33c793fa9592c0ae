package expr

import (
	"errors"
	"fmt"
)

var (
	ErrSyntax             = errors.New("expression syntax error")
	ErrForbiddenReference = errors.New("expression used name other than 'x'")
	ErrInsufficientValues = errors.New("not enough values")
	ErrMissingArgument    = errors.New("missing argument")
	ErrEval               = errors.New("expression evaluation failed")
)

// SyntaxError is returned by Compile for text outside the grammar.
type SyntaxError struct {
	Expr string
	Pos  int
	Msg  string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("syntax error in %q at %d: %s", e.Expr, e.Pos, e.Msg)
}

func (e *SyntaxError) Unwrap() error { return ErrSyntax }

// ForbiddenReferenceError is returned by Compile when the expression names
// anything other than the bound input x.
type ForbiddenReferenceError struct {
	Expr string
	Name string
}

func (e *ForbiddenReferenceError) Error() string {
	return fmt.Sprintf("expression %q used name %q other than 'x'", e.Expr, e.Name)
}

func (e *ForbiddenReferenceError) Unwrap() error { return ErrForbiddenReference }

// InsufficientValuesError reports a positional reference past the decoded
// values.
type InsufficientValuesError struct {
	Expr  string
	Index int
	Len   int
}

func (e *InsufficientValuesError) Error() string {
	return fmt.Sprintf("not enough values for %q: index %d of %d", e.Expr, e.Index, e.Len)
}

func (e *InsufficientValuesError) Unwrap() error { return ErrInsufficientValues }

// MissingArgumentError reports a named reference absent from the arguments.
type MissingArgumentError struct {
	Expr string
	Name string
}

func (e *MissingArgumentError) Error() string {
	return fmt.Sprintf("missing argument %q for %q", e.Name, e.Expr)
}

func (e *MissingArgumentError) Unwrap() error { return ErrMissingArgument }

// EvalError covers the remaining runtime failures: wrong access style for the
// input, non-integral indices, division by zero, wrong result arity.
type EvalError struct {
	Expr string
	Msg  string
}

func (e *EvalError) Error() string {
	return fmt.Sprintf("cannot evaluate %q: %s", e.Expr, e.Msg)
}

func (e *EvalError) Unwrap() error { return ErrEval }
