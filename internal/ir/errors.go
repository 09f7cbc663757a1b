package ir

import "fmt"

// CoreError is the common root every error kind the compiler core raises
// implements. Callers may type-assert or errors.As against it to
// catch any core-originated failure.
type CoreError interface {
	error
	Source() string
	coreError()
}

type errBase struct {
	source string
}

func (e errBase) Source() string { return e.source }
func (errBase) coreError()       {}

// ParseError reports a lexical or syntactic failure.
type ParseError struct {
	errBase
	Line, Column int
	Message      string
}

func NewParseError(source string, line, column int, message string) *ParseError {
	return &ParseError{errBase: errBase{source: source}, Line: line, Column: column, Message: message}
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse error at %d:%d: %s", e.Line, e.Column, e.Message)
}

// TranspileError is the base for semantic failures discovered during
// lowering. TypeResolutionError and MethodResolutionError are its
// subkinds.
type TranspileError struct {
	errBase
	Message string
}

func (e *TranspileError) Error() string { return "transpile error: " + e.Message }

// TypeResolutionError reports a type name that cannot be resolved against
// the import set plus well-known prefixes.
type TypeResolutionError struct {
	TranspileError
	Name string
}

func NewTypeResolutionError(source, name string) *TypeResolutionError {
	e := &TypeResolutionError{Name: name}
	e.source = source
	e.Message = fmt.Sprintf("cannot resolve type %q", name)
	return e
}

func (e *TypeResolutionError) Error() string {
	return fmt.Sprintf("type resolution error: cannot resolve type %q", e.Name)
}

// MethodResolutionError reports no method of that name/arity on the
// receiver.
type MethodResolutionError struct {
	TranspileError
	ClassName  string
	MethodName string
	Arity      int
}

func NewMethodResolutionError(source, className, methodName string, arity int) *MethodResolutionError {
	e := &MethodResolutionError{ClassName: className, MethodName: methodName, Arity: arity}
	e.source = source
	e.Message = fmt.Sprintf("no method %s.%s/%d", className, methodName, arity)
	return e
}

func (e *MethodResolutionError) Error() string {
	return fmt.Sprintf("method resolution error: no method %s.%s with %d argument(s)", e.ClassName, e.MethodName, e.Arity)
}

// CompileError reports that the emitter or fallback compiler rejected the
// lowered form. GeneratedSource and Diagnostics are
// nullable.
type CompileError struct {
	errBase
	GeneratedSource string
	Diagnostics     string
	Cause           error
}

func NewCompileError(source, generated, diagnostics string, cause error) *CompileError {
	return &CompileError{errBase: errBase{source: source}, GeneratedSource: generated, Diagnostics: diagnostics, Cause: cause}
}

func (e *CompileError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("compile error: %v", e.Cause)
	}
	return fmt.Sprintf("compile error: %s", e.Diagnostics)
}

func (e *CompileError) Unwrap() error { return e.Cause }

// EvaluationError reports that a generated evaluator was invoked with an
// input flavor it does not serve.
type EvaluationError struct {
	errBase
	Message string
}

func NewEvaluationError(message string) *EvaluationError {
	return &EvaluationError{Message: message}
}

func (e *EvaluationError) Error() string { return "evaluation error: " + e.Message }
