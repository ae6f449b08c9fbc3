// Package errors defines the failure taxonomy shared by the signing and
// report composition paths.
package errors

import (
	stderrors "errors"
	"fmt"
)

// Kind represents the category of a failure
type Kind int

const (
	KindUnknown Kind = iota
	KindInputRejected
	KindEmptySignature
	KindDocumentLoad
	KindRender
	KindEmbed
	KindShareUnavailable
	KindBusy
)

// Sentinels usable with errors.Is. Any *Error of the same kind matches them.
var (
	InputRejected    = &Error{Kind: KindInputRejected}
	EmptySignature   = &Error{Kind: KindEmptySignature}
	DocumentLoad     = &Error{Kind: KindDocumentLoad}
	Render           = &Error{Kind: KindRender}
	Embed            = &Error{Kind: KindEmbed}
	ShareUnavailable = &Error{Kind: KindShareUnavailable}
	Busy             = &Error{Kind: KindBusy}
)

// Error carries the failure kind together with the operation that failed
type Error struct {
	Kind Kind   `json:"kind"`
	Op   string `json:"operation,omitempty"`
	Err  error  `json:"error,omitempty"`
}

// New creates an error of the given kind for an operation
func New(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// Newf creates an error of the given kind with a formatted cause
func Newf(kind Kind, op, format string, args ...any) *Error {
	return &Error{Kind: kind, Op: op, Err: fmt.Errorf(format, args...)}
}

// Error implements the error interface
func (e *Error) Error() string {
	switch {
	case e.Op != "" && e.Err != nil:
		return fmt.Sprintf("[%s] %s: %v", e.Kind, e.Op, e.Err)
	case e.Err != nil:
		return fmt.Sprintf("[%s] %v", e.Kind, e.Err)
	case e.Op != "":
		return fmt.Sprintf("[%s] %s", e.Kind, e.Op)
	default:
		return fmt.Sprintf("[%s]", e.Kind)
	}
}

// Unwrap returns the underlying cause
func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is an *Error of the same kind
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// String returns a string representation of the Kind
func (k Kind) String() string {
	switch k {
	case KindInputRejected:
		return "INPUT_REJECTED"
	case KindEmptySignature:
		return "EMPTY_SIGNATURE"
	case KindDocumentLoad:
		return "DOCUMENT_LOAD_ERROR"
	case KindRender:
		return "RENDER_ERROR"
	case KindEmbed:
		return "EMBED_ERROR"
	case KindShareUnavailable:
		return "SHARE_UNAVAILABLE"
	case KindBusy:
		return "BUSY"
	default:
		return "UNKNOWN"
	}
}

// UserMessage returns the message shown to the person operating the form
func (k Kind) UserMessage() string {
	switch k {
	case KindInputRejected:
		return "File tidak didukung."
	case KindEmptySignature:
		return "Silakan gambar tanda tangan terlebih dahulu."
	case KindDocumentLoad:
		return "PDF tidak dapat dibuka. Silakan pilih file lain dan coba lagi."
	case KindRender:
		return "Gagal membuat PDF. Silakan coba lagi."
	case KindEmbed:
		return "Gagal memproses tanda tangan. Silakan coba lagi."
	case KindShareUnavailable:
		return "Fitur share langsung tidak didukung. Unduh PDF, lalu kirim manual via WhatsApp."
	case KindBusy:
		return "Dokumen sedang diproses."
	default:
		return "Terjadi kesalahan."
	}
}

// IsHardFailure reports whether the kind aborts the user's action.
// Rejected input is ignored and a missing share capability has a fallback.
func (k Kind) IsHardFailure() bool {
	switch k {
	case KindInputRejected, KindShareUnavailable:
		return false
	default:
		return true
	}
}

// KindOf extracts the Kind from anywhere in the error chain
func KindOf(err error) Kind {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// UserMessage returns the user-facing message for any error
func UserMessage(err error) string {
	return KindOf(err).UserMessage()
}
