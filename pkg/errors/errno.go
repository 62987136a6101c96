// Package errors implements the structured error code system shared by all
// provenance services.
//
// Codes are globally unique seven digit integers in the form AABBCCC:
//
//	AA  (00-99): service code, identifying the origin service
//	BB  (00-99): category code, identifying the failure class
//	CCC (000-999): sequence number within the category
//
// Service code ranges:
//
//	00:    common errors shared by every service
//	01-09: core services (gateway, registry, retrieval, ingestion)
//	10-19: infrastructure (database, cache, vector store)
//	20-79: business services
//	80-89: internal services
//	90-99: third-party integrations
//
// Category codes map to transport status:
//
//	00: success
//	01: request/validation (400)
//	02: authentication (401)
//	03: authorization (403)
//	04: not found (404)
//	05: conflict (409)
//	06: rate limiting (429)
//	07: internal (500)
//	08: database (500)
//	09: cache (500)
//	10: network (502/503)
//	11: timeout (504)
//	12: configuration (500)
//
// Typical use:
//
//	return errors.ErrInvalidParam.WithMessage("source id is required")
//	return errors.ErrDatabase.WithCause(err)
//
//	var ErrCustom = errors.Register(&errors.Errno{
//	    Code:      errors.MakeCode(20, 1, 1),
//	    HTTP:      http.StatusBadRequest,
//	    GRPCCode:  codes.InvalidArgument,
//	    MessageEN: "Custom error",
//	    MessageZH: "自定义错误",
//	})
package errors

import (
	"fmt"
	"net/http"
	"sync"

	"google.golang.org/grpc/codes"
)

// Errno is an error with a stable code, transport status mappings, and
// bilingual messages. Values are immutable; the With* methods return
// modified copies so registered presets are never mutated.
type Errno struct {
	// Code is the unique AABBCCC error code.
	Code int `json:"code"`

	// HTTP is the status code returned over HTTP.
	HTTP int `json:"-"`

	// GRPCCode is the status code returned over gRPC.
	GRPCCode codes.Code `json:"-"`

	// MessageEN is the English message.
	MessageEN string `json:"message"`

	// MessageZH is the optional Chinese message.
	MessageZH string `json:"message_zh,omitempty"`

	cause error
}

func (e *Errno) copy() *Errno {
	c := *e
	return &c
}

// Error implements the error interface.
func (e *Errno) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("errno %d: %s: %v", e.Code, e.MessageEN, e.cause)
	}
	return fmt.Sprintf("errno %d: %s", e.Code, e.MessageEN)
}

// Unwrap exposes the wrapped cause to errors.Is and errors.As.
func (e *Errno) Unwrap() error {
	return e.cause
}

// WithCause returns a copy wrapping the given underlying error.
func (e *Errno) WithCause(cause error) *Errno {
	c := e.copy()
	c.cause = cause
	return c
}

// WithMessage returns a copy with a replacement English message.
func (e *Errno) WithMessage(msg string) *Errno {
	c := e.copy()
	c.MessageEN = msg
	return c
}

// WithMessagef returns a copy with a formatted English message.
func (e *Errno) WithMessagef(format string, args ...interface{}) *Errno {
	return e.WithMessage(fmt.Sprintf(format, args...))
}

// WithMessageZH returns a copy with a replacement Chinese message.
func (e *Errno) WithMessageZH(msg string) *Errno {
	c := e.copy()
	c.MessageZH = msg
	return c
}

// WithMessages returns a copy with both messages replaced.
func (e *Errno) WithMessages(en, zh string) *Errno {
	c := e.copy()
	c.MessageEN = en
	c.MessageZH = zh
	return c
}

// Message picks the message for the requested language, falling back to
// English when no Chinese message is set.
func (e *Errno) Message(lang string) string {
	switch lang {
	case "zh", "zh-CN", "zh_CN":
		if e.MessageZH != "" {
			return e.MessageZH
		}
	}
	return e.MessageEN
}

// HTTPStatus returns the HTTP status, defaulting to 500 when unset.
func (e *Errno) HTTPStatus() int {
	if e.HTTP != 0 {
		return e.HTTP
	}
	return http.StatusInternalServerError
}

// GRPCStatus returns the gRPC status, defaulting to Internal when unset.
func (e *Errno) GRPCStatus() codes.Code {
	if e.GRPCCode != codes.OK {
		return e.GRPCCode
	}
	return codes.Internal
}

// Is matches two Errno values by code, so errors.Is works across copies
// produced by the With* methods.
func (e *Errno) Is(target error) bool {
	t, ok := target.(*Errno)
	return ok && e.Code == t.Code
}

// Format implements fmt.Formatter. %+v adds status mappings, the Chinese
// message, and the full cause chain.
func (e *Errno) Format(s fmt.State, verb rune) {
	switch verb {
	case 'v':
		if s.Flag('+') {
			_, _ = fmt.Fprintf(s, "errno %d [HTTP %d, gRPC %s]: %s", e.Code, e.HTTP, e.GRPCCode.String(), e.MessageEN)
			if e.MessageZH != "" {
				_, _ = fmt.Fprintf(s, " (%s)", e.MessageZH)
			}
			if e.cause != nil {
				_, _ = fmt.Fprintf(s, "\ncaused by: %+v", e.cause)
			}
			return
		}
		fallthrough
	case 's':
		_, _ = fmt.Fprint(s, e.Error())
	case 'q':
		_, _ = fmt.Fprintf(s, "%q", e.Error())
	}
}

var (
	registryMu    sync.RWMutex
	errnoRegistry = make(map[int]*Errno)
)

// Register records an Errno in the global registry, panicking on a code
// collision. Collisions are programming errors caught at init time.
func Register(e *Errno) *Errno {
	registryMu.Lock()
	defer registryMu.Unlock()

	if existing, ok := errnoRegistry[e.Code]; ok {
		panic(fmt.Sprintf("errno code %d already registered: %s", e.Code, existing.MessageEN))
	}
	errnoRegistry[e.Code] = e
	return e
}

// MustRegister is an alias for Register.
func MustRegister(e *Errno) *Errno {
	return Register(e)
}

// Lookup returns the registered Errno for a code.
func Lookup(code int) (*Errno, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()

	e, ok := errnoRegistry[code]
	return e, ok
}

// GetAllRegistered returns a copy of the registry, for documentation and
// debugging endpoints.
func GetAllRegistered() map[int]*Errno {
	registryMu.RLock()
	defer registryMu.RUnlock()

	result := make(map[int]*Errno, len(errnoRegistry))
	for k, v := range errnoRegistry {
		result[k] = v
	}
	return result
}

// RegistrySize returns how many codes are registered.
func RegistrySize() int {
	registryMu.RLock()
	defer registryMu.RUnlock()

	return len(errnoRegistry)
}

// New builds an Errno without registering it.
func New(code int, httpStatus int, grpcCode codes.Code, messageEN, messageZH string) *Errno {
	return &Errno{
		Code:      code,
		HTTP:      httpStatus,
		GRPCCode:  grpcCode,
		MessageEN: messageEN,
		MessageZH: messageZH,
	}
}

// FromError coerces any error into an Errno. Existing Errno values pass
// through; everything else is wrapped as ErrInternal.
func FromError(err error) *Errno {
	if err == nil {
		return nil
	}
	if e, ok := err.(*Errno); ok {
		return e
	}
	return ErrInternal.WithCause(err)
}

// IsCode reports whether err is an Errno carrying the given code.
func IsCode(err error, code int) bool {
	e, ok := err.(*Errno)
	return ok && e.Code == code
}

// GetCode extracts the code from err, or -1 when err is not an Errno.
func GetCode(err error) int {
	if e, ok := err.(*Errno); ok {
		return e.Code
	}
	return -1
}
