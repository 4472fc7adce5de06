package model

import "fmt"

// ToolError wraps an underlying error with a taxonomy Kind, so callers can
// use errors.As to recover the kind that Tool Base should surface on
// ToolResult.Kind without inspecting error strings.
type ToolError struct {
	Kind ErrorKind
	Msg  string
	Err  error
}

func (e *ToolError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func (e *ToolError) Unwrap() error { return e.Err }

// NewToolError builds a ToolError, optionally wrapping a cause.
func NewToolError(kind ErrorKind, msg string, cause error) *ToolError {
	return &ToolError{Kind: kind, Msg: msg, Err: cause}
}

// KindOf recovers the ErrorKind from err, defaulting to ErrInternal for
// errors that were never tagged.
func KindOf(err error) ErrorKind {
	if err == nil {
		return ""
	}
	var te *ToolError
	if asToolError(err, &te) {
		return te.Kind
	}
	return ErrInternal
}

// asToolError avoids importing "errors" twice across this small file; kept
// as a named helper so KindOf reads clearly at call sites.
func asToolError(err error, target **ToolError) bool {
	for err != nil {
		if te, ok := err.(*ToolError); ok {
			*target = te
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}
