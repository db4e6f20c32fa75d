// Package errors provides the application-layer error taxonomy (§7):
// InvalidInput, NotFound, SchemaViolation, ToolError, Timeout/Cancelled,
// AdapterUnavailable, InvariantViolation. It wraps pkg/errors' plain
// domain-layer AppError with the operation/trace-id/retry metadata every
// agent-loop step, saga, and HTTP handler needs to decide between retry,
// ask-user, and abort.
package errors

import (
	"errors"
	"fmt"
	"runtime"
	"time"
)

// ErrorKind is the §7 error taxonomy.
type ErrorKind string

const (
	KindInvalidInput       ErrorKind = "INVALID_INPUT"
	KindNotFound           ErrorKind = "NOT_FOUND"
	KindSchemaViolation    ErrorKind = "SCHEMA_VIOLATION"
	KindToolError          ErrorKind = "TOOL_ERROR"
	KindTimeout            ErrorKind = "TIMEOUT"
	KindCancelled          ErrorKind = "CANCELLED"
	KindAdapterUnavailable ErrorKind = "ADAPTER_UNAVAILABLE"
	KindInvariantViolation ErrorKind = "INVARIANT_VIOLATION"
)

// Severity tags how loudly an error should be surfaced in logs/metrics.
type Severity string

const (
	SeverityLow      Severity = "LOW"
	SeverityMedium   Severity = "MEDIUM"
	SeverityHigh     Severity = "HIGH"
	SeverityCritical Severity = "CRITICAL"
)

// UnifiedError is the single error type the application layer returns.
// Every field past Kind/Message is optional context accumulated as the
// error propagates: a step's ToolError gains an Operation and TraceID by
// the time the agent loop logs it, and a Retryable+RetryAfter pair once the
// adaptation policy decides what to do next.
type UnifiedError struct {
	Kind      ErrorKind
	Code      string
	Message   string
	Operation string
	TraceID   string
	Severity  Severity
	Retryable bool
	RetryAfter time.Duration
	Cause     error
	File      string
	Line      int
}

func (e *UnifiedError) Error() string {
	if e.Operation != "" {
		return fmt.Sprintf("[%s:%s] %s: %s", e.Kind, e.Code, e.Operation, e.Message)
	}
	return fmt.Sprintf("[%s:%s] %s", e.Kind, e.Code, e.Message)
}

func (e *UnifiedError) Unwrap() error {
	return e.Cause
}

// Builder constructs a UnifiedError fluently.
type Builder struct {
	err *UnifiedError
}

// New starts a builder for kind, capturing the caller's file/line.
func New(kind ErrorKind, code, message string) *Builder {
	_, file, line, _ := runtime.Caller(1)
	return &Builder{err: &UnifiedError{
		Kind:     kind,
		Code:     code,
		Message:  message,
		Severity: SeverityMedium,
		File:     file,
		Line:     line,
	}}
}

func (b *Builder) WithOperation(op string) *Builder   { b.err.Operation = op; return b }
func (b *Builder) WithTraceID(traceID string) *Builder { b.err.TraceID = traceID; return b }
func (b *Builder) WithSeverity(s Severity) *Builder    { b.err.Severity = s; return b }
func (b *Builder) WithCause(cause error) *Builder      { b.err.Cause = cause; return b }
func (b *Builder) WithRetryAfter(d time.Duration) *Builder {
	b.err.RetryAfter = d
	b.err.Retryable = true
	return b
}
func (b *Builder) Build() *UnifiedError { return b.err }

// Convenience constructors, one per taxonomy kind.

func InvalidInput(message string) *UnifiedError {
	return New(KindInvalidInput, "INVALID_INPUT", message).WithSeverity(SeverityLow).Build()
}

func NotFound(resource string) *UnifiedError {
	return New(KindNotFound, "NOT_FOUND", fmt.Sprintf("%s not found", resource)).WithSeverity(SeverityLow).Build()
}

func SchemaViolation(message string) *UnifiedError {
	return New(KindSchemaViolation, "SCHEMA_VIOLATION", message).WithSeverity(SeverityMedium).Build()
}

// ToolErr wraps a failed tool invocation; Retryable defaults true since a
// ToolError is the one kind the agent loop's adaptation policy retries
// (up to MAX_ADAPT_ATTEMPTS) before escalating to AskUser.
func ToolErr(tool string, cause error) *UnifiedError {
	e := New(KindToolError, "TOOL_ERROR", fmt.Sprintf("tool %q failed", tool)).
		WithOperation(tool).WithCause(cause).WithSeverity(SeverityMedium).Build()
	e.Retryable = true
	return e
}

func Timeout(operation string) *UnifiedError {
	return New(KindTimeout, "TIMEOUT", fmt.Sprintf("%s timed out", operation)).
		WithOperation(operation).WithSeverity(SeverityMedium).Build()
}

func Cancelled(operation string) *UnifiedError {
	return New(KindCancelled, "CANCELLED", fmt.Sprintf("%s cancelled", operation)).
		WithOperation(operation).WithSeverity(SeverityLow).Build()
}

// AdapterUnavailable marks a collaborator (LLM, memory backend, tool
// adapter) as down. Never retried automatically; callers apply the §7
// per-collaborator fallback (ask user for LLM, cached reads for memory,
// step FAILURE for tools).
func AdapterUnavailable(adapter string, cause error) *UnifiedError {
	return New(KindAdapterUnavailable, "ADAPTER_UNAVAILABLE", fmt.Sprintf("%s unavailable", adapter)).
		WithOperation(adapter).WithCause(cause).WithSeverity(SeverityHigh).Build()
}

// InvariantViolation marks a programming error: fatal to the request,
// logged with trace id, never silently swallowed.
func InvariantViolation(message string) *UnifiedError {
	return New(KindInvariantViolation, "INVARIANT_VIOLATION", message).WithSeverity(SeverityCritical).Build()
}

// Is reports whether err (or anything it wraps) is a UnifiedError of kind.
func Is(err error, kind ErrorKind) bool {
	var ue *UnifiedError
	if errors.As(err, &ue) {
		return ue.Kind == kind
	}
	return false
}

// IsRetryable reports whether err is a UnifiedError marked retryable.
func IsRetryable(err error) bool {
	var ue *UnifiedError
	return errors.As(err, &ue) && ue.Retryable
}
