package xmlbind

import (
	"bytes"
	"encoding/xml"
	"io"
	"reflect"

	"github.com/beevik/etree"
)

const (
	opMarshal   = "marshal"
	opUnmarshal = "unmarshal"
)

// MarshallerConfig defines the config for Marshaller.
type MarshallerConfig struct {
	// Indent is the per-level indentation of text output.
	// Optional. Default value DefaultMarshallerConfig.Indent.
	Indent string `yaml:"indent"`

	// OmitHeader drops the XML declaration from text output.
	// Optional. Default value false.
	OmitHeader bool `yaml:"omit_header"`

	// Encoding is the IANA name of the text output encoding.
	// Optional. Default value "UTF-8".
	Encoding string `yaml:"encoding"`

	// Binder provides the XML mapping of the marshalled type.
	// Optional. Default value ReflectBinder{}.
	Binder Binder `yaml:"-"`

	// Logger receives a record for every failed call of the
	// string and document methods.
	// Optional. Default value writes errors to os.Stderr.
	Logger *Logger `yaml:"-"`
}

// DefaultMarshallerConfig is the default Marshaller config.
var DefaultMarshallerConfig = MarshallerConfig{
	Indent:   "    ",
	Encoding: "UTF-8",
}

// Marshaller converts values of type T to XML text and DOM documents.
//
// The string and document methods never return an error: failures are logged
// and reported as an empty string or an absent Optional, so an empty result
// cannot be told apart from a failed call. Marshal, MarshalTo and
// MarshalDocument report the error instead.
type Marshaller[T any] struct {
	config MarshallerConfig
}

// NewMarshaller returns a Marshaller with DefaultMarshallerConfig.
func NewMarshaller[T any]() *Marshaller[T] {
	return NewMarshallerWithConfig[T](DefaultMarshallerConfig)
}

// NewMarshallerWithConfig returns a Marshaller with config.
// See: `NewMarshaller()`.
func NewMarshallerWithConfig[T any](config MarshallerConfig) *Marshaller[T] {
	if config.Indent == "" {
		config.Indent = DefaultMarshallerConfig.Indent
	}
	if config.Encoding == "" {
		config.Encoding = DefaultMarshallerConfig.Encoding
	}
	if config.Binder == nil {
		config.Binder = ReflectBinder{}
	}
	if config.Logger == nil {
		config.Logger = NewLogger(nil)
	}
	return &Marshaller[T]{config: config}
}

// MarshalToString returns v as indented XML under the root element its type
// declares.
func (m *Marshaller[T]) MarshalToString(v T) string {
	return m.marshalToString(v, "", "")
}

// MarshalToStringName returns v as indented XML under the root element root.
func (m *Marshaller[T]) MarshalToStringName(v T, root string) string {
	return m.marshalToString(v, "", root)
}

// MarshalToStringNS returns v as indented XML under the root element root in
// namespace ns. With both empty it behaves like MarshalToString.
func (m *Marshaller[T]) MarshalToStringNS(v T, ns, root string) string {
	return m.marshalToString(v, ns, root)
}

// MarshalToDocument returns v as a DOM document whose root element is root.
func (m *Marshaller[T]) MarshalToDocument(v T, root string) Optional[*etree.Document] {
	return m.marshalToDocument(v, "", root)
}

// MarshalToDocumentNS returns v as a DOM document whose root element is root
// in namespace ns. With both empty the type's own root element is used.
func (m *Marshaller[T]) MarshalToDocumentNS(v T, ns, root string) Optional[*etree.Document] {
	return m.marshalToDocument(v, ns, root)
}

func (m *Marshaller[T]) marshalToString(v T, ns, root string) string {
	b, err := m.Marshal(v, xml.Name{Space: ns, Local: root})
	if err != nil {
		m.config.Logger.failure(err)
		return ""
	}
	return string(b)
}

func (m *Marshaller[T]) marshalToDocument(v T, ns, root string) Optional[*etree.Document] {
	doc, err := m.MarshalDocument(v, xml.Name{Space: ns, Local: root})
	if err != nil {
		m.config.Logger.failure(err)
		return None[*etree.Document]()
	}
	return Some(doc)
}

// Marshal returns the text form of v. A zero name writes v under the root
// element its type declares; any other name wraps v in an element of that name.
func (m *Marshaller[T]) Marshal(v T, name xml.Name) ([]byte, error) {
	var buf bytes.Buffer
	if err := m.MarshalTo(&buf, v, name); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// MarshalTo writes the text form of v to w. See Marshal for name. On error,
// part of the output may already have been written.
func (m *Marshaller[T]) MarshalTo(w io.Writer, v T, name xml.Name) error {
	return m.write(w, v, name, WriterConfig{
		Indent:   m.config.Indent,
		Header:   !m.config.OmitHeader,
		Encoding: m.config.Encoding,
	})
}

// MarshalDocument returns v as a fresh DOM document. See Marshal for name.
func (m *Marshaller[T]) MarshalDocument(v T, name xml.Name) (*etree.Document, error) {
	var buf bytes.Buffer
	if err := m.write(&buf, v, name, WriterConfig{}); err != nil {
		return nil, err
	}
	doc, err := parseDocument(buf.Bytes())
	if err != nil {
		return nil, newBindError(opMarshal, valueType(v), name, err)
	}
	return doc, nil
}

func (m *Marshaller[T]) write(w io.Writer, v T, name xml.Name, config WriterConfig) error {
	t := valueType(v)
	binding, err := m.config.Binder.Bind(t)
	if err != nil {
		return newBindError(opMarshal, t, name, err)
	}
	writer := binding.Writer(config)
	if name == (xml.Name{}) {
		err = writer.Write(w, v)
	} else {
		err = writer.WriteElement(w, Element{Name: name, Type: t, Value: v})
	}
	if err != nil {
		return newBindError(opMarshal, t, name, err)
	}
	return nil
}

// valueType is T, or the dynamic type of v when T is an interface.
func valueType[T any](v T) reflect.Type {
	t := reflect.TypeFor[T]()
	if t.Kind() == reflect.Interface {
		return reflect.TypeOf(v)
	}
	return t
}
