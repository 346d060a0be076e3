// Package errs provides the typed error taxonomy used when classifying
// failures from LLM calls and other external services, plus the pipeline's
// typed process exit codes.
package errs

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Kind classifies the recoverability of an external-call failure.
type Kind string

const (
	KindParse     Kind = "parse"
	KindRateLimit Kind = "rate_limit"
	KindTimeout   Kind = "timeout"
	KindAuth      Kind = "auth"
	KindOther     Kind = "other"
)

// LLMError wraps an underlying error with its classified Kind, so callers
// can decide whether to retry, skip the item, or abort the batch.
type LLMError struct {
	Kind Kind
	Err  error
}

func (e *LLMError) Error() string {
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *LLMError) Unwrap() error {
	return e.Err
}

// New wraps err with an explicit Kind.
func New(kind Kind, err error) *LLMError {
	return &LLMError{Kind: kind, Err: err}
}

// Classify inspects err and returns its best-guess Kind. Context
// cancellation and deadline errors classify as KindTimeout; everything else
// falls back to a substring match against common provider error messages,
// and finally KindOther when nothing matches.
func Classify(err error) Kind {
	if err == nil {
		return KindOther
	}

	var le *LLMError
	if errors.As(err, &le) {
		return le.Kind
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return KindTimeout
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "rate limit") || strings.Contains(msg, "429") || strings.Contains(msg, "quota"):
		return KindRateLimit
	case strings.Contains(msg, "timeout") || strings.Contains(msg, "deadline"):
		return KindTimeout
	case strings.Contains(msg, "unauthorized") || strings.Contains(msg, "401") || strings.Contains(msg, "403") || strings.Contains(msg, "api key"):
		return KindAuth
	case strings.Contains(msg, "json") || strings.Contains(msg, "parse") || strings.Contains(msg, "unmarshal"):
		return KindParse
	default:
		return KindOther
	}
}

// Describe renders err as the persisted analysis_error string, following
// the taxonomy wording verbatim: a parse failure reads "JSON parse
// failed: ...", a rate-limit failure reads "API rate limited: ...", and
// auth/timeout/other failures surface their class name.
func Describe(err error) string {
	if err == nil {
		return ""
	}

	detail := error(err)
	var le *LLMError
	if errors.As(err, &le) {
		detail = le.Err
	}

	switch Classify(err) {
	case KindParse:
		return fmt.Sprintf("JSON parse failed: %v", detail)
	case KindRateLimit:
		return fmt.Sprintf("API rate limited: %v", detail)
	default:
		return fmt.Sprintf("%s: %v", Classify(err), detail)
	}
}

// ExitCode is the pipeline process's typed exit status.
type ExitCode int

const (
	// ExitSuccess covers both a fully successful run and a run that found
	// no new content to process — both are a healthy no-op from the
	// invoker's perspective.
	ExitSuccess       ExitCode = 0
	ExitConfigError   ExitCode = 1
	ExitPaperNotFound ExitCode = 2 // deep_analysis only: the requested arXiv id does not exist
	ExitProcessError  ExitCode = 3
)

func (c ExitCode) String() string {
	switch c {
	case ExitSuccess:
		return "success"
	case ExitConfigError:
		return "config_error"
	case ExitPaperNotFound:
		return "paper_not_found"
	case ExitProcessError:
		return "process_error"
	default:
		return fmt.Sprintf("unknown(%d)", int(c))
	}
}
