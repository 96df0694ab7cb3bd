package xmlbind

import (
	"encoding/xml"
	"fmt"
	"reflect"

	"github.com/pkg/errors"

	"go-slim.dev/xmlbind/serde"
)

// Errors
var (
	ErrUnsupportedType  = errors.New("xmlbind: unsupported type")
	ErrNoRootElement    = errors.New("xmlbind: type has no root element mapping")
	ErrRootMismatch     = errors.New("xmlbind: unexpected root element")
	ErrEmptyElementName = errors.New("xmlbind: element name has no local part")
	ErrTypeMismatch     = errors.New("xmlbind: element type does not match binding")
	ErrNilValue         = errors.New("xmlbind: nil value")
	ErrNilNode          = errors.New("xmlbind: nil node")
	ErrDocument         = errors.New("xmlbind: cannot build document")
)

// ErrorKind classifies a failure.
type ErrorKind int

const (
	// KindBinding means the type could not be analysed into an XML mapping,
	// or a value did not fit the mapping it was written with.
	KindBinding ErrorKind = iota
	// KindNoRoot means a bare write or read was attempted on a type without
	// an intrinsic root element.
	KindNoRoot
	// KindParse means the input was not well-formed or did not fit the mapping.
	KindParse
	// KindDocument means the DOM document could not be built.
	KindDocument
)

func (k ErrorKind) String() string {
	switch k {
	case KindBinding:
		return "binding"
	case KindNoRoot:
		return "no-root"
	case KindParse:
		return "parse"
	case KindDocument:
		return "document"
	}
	return fmt.Sprintf("ErrorKind(%d)", int(k))
}

// KindOf reports the kind of err. Errors that are not recognised as binding,
// root or document failures count as parse failures.
func KindOf(err error) ErrorKind {
	switch {
	case errors.Is(err, ErrNoRootElement):
		return KindNoRoot
	case errors.Is(err, ErrDocument):
		return KindDocument
	case errors.Is(err, ErrUnsupportedType),
		errors.Is(err, ErrTypeMismatch),
		errors.Is(err, ErrEmptyElementName),
		errors.Is(err, ErrNilValue),
		errors.Is(err, serde.ErrUnknownEncoding):
		return KindBinding
	}
	var unsupported *xml.UnsupportedTypeError
	if errors.As(err, &unsupported) {
		return KindBinding
	}
	return KindParse
}

// BindError describes a failed marshal or unmarshal call.
type BindError struct {
	Op       string       `json:"op"`
	Type     reflect.Type `json:"-"`
	Name     xml.Name     `json:"name"`
	Internal error        `json:"-"` // the failure reported by the binding, serde or DOM layer
}

func newBindError(op string, t reflect.Type, name xml.Name, err error) error {
	return errors.WithStack(&BindError{Op: op, Type: t, Name: name, Internal: err})
}

// Error makes it compatible with `error` interface.
func (e *BindError) Error() string {
	if e.Name.Local == "" && e.Name.Space == "" {
		return fmt.Sprintf("xmlbind: %s %s: %v", e.Op, typeName(e.Type), e.Internal)
	}
	return fmt.Sprintf("xmlbind: %s %s as %s: %v", e.Op, typeName(e.Type), formatName(e.Name), e.Internal)
}

// Kind classifies the internal error.
func (e *BindError) Kind() ErrorKind {
	return KindOf(e.Internal)
}

// Unwrap satisfies the Go 1.13 error wrapper interface.
func (e *BindError) Unwrap() error {
	return e.Internal
}

func typeName(t reflect.Type) string {
	if t == nil {
		return "<nil>"
	}
	return t.String()
}

func formatName(n xml.Name) string {
	if n.Space == "" {
		return n.Local
	}
	return "{" + n.Space + "}" + n.Local
}
