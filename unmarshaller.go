package xmlbind

import (
	"bytes"
	"encoding/xml"
	"io"
	"reflect"
	"strings"

	"github.com/beevik/etree"
	"github.com/pkg/errors"
)

// UnmarshallerConfig defines the config for Unmarshaller.
type UnmarshallerConfig struct {
	// Binder provides the XML mapping of the target type.
	// Optional. Default value ReflectBinder{}.
	Binder Binder `yaml:"-"`

	// Logger receives a record for every failed Unmarshal and
	// UnmarshalFromDocument call.
	// Optional. Default value writes errors to os.Stderr.
	Logger *Logger `yaml:"-"`

	// CharsetReader converts input declared in an encoding other than
	// UTF-8. Optional. Default value charset.NewReaderLabel.
	CharsetReader func(label string, input io.Reader) (io.Reader, error) `yaml:"-"`
}

// DefaultUnmarshallerConfig is the default Unmarshaller config.
var DefaultUnmarshallerConfig = UnmarshallerConfig{}

// Unmarshaller converts XML text and DOM nodes to values of type T.
//
// Unmarshal and UnmarshalFromDocument log failures and return an absent
// Optional. Decode, DecodeFrom and DecodeElement report the error instead.
type Unmarshaller[T any] struct {
	config UnmarshallerConfig
}

// NewUnmarshaller returns an Unmarshaller with DefaultUnmarshallerConfig.
func NewUnmarshaller[T any]() *Unmarshaller[T] {
	return NewUnmarshallerWithConfig[T](DefaultUnmarshallerConfig)
}

// NewUnmarshallerWithConfig returns an Unmarshaller with config.
func NewUnmarshallerWithConfig[T any](config UnmarshallerConfig) *Unmarshaller[T] {
	if config.Binder == nil {
		config.Binder = ReflectBinder{}
	}
	if config.Logger == nil {
		config.Logger = NewLogger(nil)
	}
	return &Unmarshaller[T]{config: config}
}

// Unmarshal parses s, whose root must be the element T declares.
func (u *Unmarshaller[T]) Unmarshal(s string) Optional[T] {
	v, err := u.DecodeFrom(strings.NewReader(s))
	if err != nil {
		u.config.Logger.failure(err)
		return None[T]()
	}
	return Some(v)
}

// UnmarshalFromDocument reads node as a T, whatever the node is named. node
// may belong to a larger document; namespaces declared on its ancestors are
// honoured. A document's own element stands for its root element.
func (u *Unmarshaller[T]) UnmarshalFromDocument(node *etree.Element) Optional[T] {
	e, err := u.DecodeElement(node)
	if err != nil {
		u.config.Logger.failure(err)
		return None[T]()
	}
	return Some(e.Value.(T))
}

// Decode parses b. See Unmarshal.
func (u *Unmarshaller[T]) Decode(b []byte) (T, error) {
	return u.DecodeFrom(bytes.NewReader(b))
}

// DecodeFrom parses the document read from r. See Unmarshal.
func (u *Unmarshaller[T]) DecodeFrom(r io.Reader) (T, error) {
	var zero T
	t := reflect.TypeFor[T]()
	binding, err := u.config.Binder.Bind(t)
	if err != nil {
		return zero, newBindError(opUnmarshal, t, xml.Name{}, err)
	}
	v, err := binding.Reader(u.readerConfig()).Read(r)
	if err != nil {
		return zero, newBindError(opUnmarshal, t, binding.Root, err)
	}
	out, ok := v.(T)
	if !ok {
		return zero, newBindError(opUnmarshal, t, binding.Root, ErrTypeMismatch)
	}
	return out, nil
}

// DecodeElement reads node as a T and returns it with the node's name.
// See UnmarshalFromDocument.
func (u *Unmarshaller[T]) DecodeElement(node *etree.Element) (Element, error) {
	t := reflect.TypeFor[T]()
	doc, err := detach(node)
	if err != nil {
		return Element{}, newBindError(opUnmarshal, t, xml.Name{}, err)
	}
	var name xml.Name
	if root := doc.Root(); root != nil {
		name = xml.Name{Space: root.NamespaceURI(), Local: root.Tag}
	}
	binding, err := u.config.Binder.Bind(t)
	if err != nil {
		return Element{}, newBindError(opUnmarshal, t, name, err)
	}
	buf, err := writeDocument(doc)
	if err != nil {
		return Element{}, newBindError(opUnmarshal, t, name, errors.Wrap(err, "write source"))
	}
	e, err := binding.Reader(u.readerConfig()).ReadElement(buf)
	if err != nil {
		return Element{}, newBindError(opUnmarshal, t, name, err)
	}
	if _, ok := e.Value.(T); !ok {
		return Element{}, newBindError(opUnmarshal, t, name, ErrTypeMismatch)
	}
	return e, nil
}

func (u *Unmarshaller[T]) readerConfig() ReaderConfig {
	return ReaderConfig{CharsetReader: u.config.CharsetReader}
}
