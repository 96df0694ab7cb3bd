// Package xmlbind converts Go values to and from XML text and etree DOM
// documents, optionally under a root element that the type itself does not
// declare.
package xmlbind

import (
	"encoding"
	"encoding/xml"
	"fmt"
	"io"
	"reflect"
	"strings"

	"go-slim.dev/xmlbind/serde"
)

// Binder produces the XML mapping of a Go type.
type Binder interface {
	// Bind analyses t and returns its binding.
	Bind(t reflect.Type) (*Binding, error)
}

// BinderFunc adapts a function to the Binder interface.
type BinderFunc func(t reflect.Type) (*Binding, error)

// Bind implements Binder.
func (f BinderFunc) Bind(t reflect.Type) (*Binding, error) {
	return f(t)
}

// Element pairs a value with an explicit element name, so that a value whose
// type declares no root element can be written or read on its own.
type Element struct {
	Name  xml.Name
	Type  reflect.Type
	Value any
}

// Binding is the XML mapping of one Go type. It is immutable once built.
type Binding struct {
	// Type is the type the binding was requested for; it may be a pointer.
	Type reflect.Type
	// Root is the element name the type declares through a tagged XMLName
	// field. It is the zero Name when the type declares none.
	Root xml.Name

	elem reflect.Type
}

// HasRoot reports whether the type declares its own root element.
func (b *Binding) HasRoot() bool {
	return b.Root.Local != ""
}

// WriterConfig configures a Writer.
type WriterConfig struct {
	Indent   string
	Header   bool
	Encoding string
}

// ReaderConfig configures a Reader.
type ReaderConfig struct {
	CharsetReader func(label string, input io.Reader) (io.Reader, error)
}

// Writer returns a writer for values of the binding's type.
func (b *Binding) Writer(config WriterConfig) *Writer {
	return &Writer{
		binding: b,
		serializer: serde.XMLSerializer{
			Indent:   config.Indent,
			Header:   config.Header,
			Encoding: config.Encoding,
		},
	}
}

// Reader returns a reader producing values of the binding's type.
func (b *Binding) Reader(config ReaderConfig) *Reader {
	return &Reader{
		binding:    b,
		serializer: serde.XMLSerializer{CharsetReader: config.CharsetReader},
	}
}

// checkValue verifies that v is a non-nil value of the binding's type.
func (b *Binding) checkValue(v any) error {
	rv := reflect.ValueOf(v)
	if !rv.IsValid() {
		return ErrNilValue
	}
	if rv.Type() != b.Type && deref(rv.Type()) != b.elem {
		return fmt.Errorf("%w: have %s, want %s", ErrTypeMismatch, rv.Type(), b.Type)
	}
	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return ErrNilValue
		}
		rv = rv.Elem()
	}
	return nil
}

// value converts ptr, a *elem, into a value of the binding's type.
func (b *Binding) value(ptr reflect.Value) any {
	if b.Type.Kind() != reflect.Pointer {
		return ptr.Elem().Interface()
	}
	v := ptr
	for t := b.Type.Elem(); t.Kind() == reflect.Pointer; t = t.Elem() {
		p := reflect.New(v.Type())
		p.Elem().Set(v)
		v = p
	}
	return v.Interface()
}

// Writer writes values of one binding.
type Writer struct {
	binding    *Binding
	serializer serde.XMLSerializer
}

// Write writes v under the root element its type declares.
func (w *Writer) Write(out io.Writer, v any) error {
	if !w.binding.HasRoot() {
		return fmt.Errorf("%w: %s", ErrNoRootElement, w.binding.Type)
	}
	if err := w.binding.checkValue(v); err != nil {
		return err
	}
	return w.serializer.Serialize(out, v, nil)
}

// WriteElement writes e.Value under e.Name, whatever root the type declares.
func (w *Writer) WriteElement(out io.Writer, e Element) error {
	if e.Name.Local == "" {
		return ErrEmptyElementName
	}
	if e.Type != nil && deref(e.Type) != w.binding.elem {
		return fmt.Errorf("%w: have %s, want %s", ErrTypeMismatch, e.Type, w.binding.Type)
	}
	if err := w.binding.checkValue(e.Value); err != nil {
		return err
	}
	return w.serializer.Serialize(out, e.Value, &xml.StartElement{Name: e.Name})
}

// Reader reads values of one binding.
type Reader struct {
	binding    *Binding
	serializer serde.XMLSerializer
}

// Read reads a document whose root is the element the type declares.
func (r *Reader) Read(in io.Reader) (any, error) {
	root := r.binding.Root
	if !r.binding.HasRoot() {
		return nil, fmt.Errorf("%w: %s", ErrNoRootElement, r.binding.Type)
	}
	ptr := reflect.New(r.binding.elem)
	err := r.serializer.Deserialize(in, ptr.Interface(), func(start xml.StartElement) (xml.StartElement, error) {
		if start.Name.Local != root.Local || (root.Space != "" && start.Name.Space != root.Space) {
			return start, fmt.Errorf("%w: have <%s>, want <%s>", ErrRootMismatch, formatName(start.Name), formatName(root))
		}
		return start, nil
	})
	if err != nil {
		return nil, err
	}
	return r.binding.value(ptr), nil
}

// ReadElement reads the first element of in as a value of the binding's
// type, whatever its name, and returns it together with that name.
func (r *Reader) ReadElement(in io.Reader) (Element, error) {
	var name xml.Name
	ptr := reflect.New(r.binding.elem)
	err := r.serializer.Deserialize(in, ptr.Interface(), func(start xml.StartElement) (xml.StartElement, error) {
		name = start.Name
		if r.binding.HasRoot() {
			start.Name = r.binding.Root
		}
		return start, nil
	})
	if err != nil {
		return Element{}, err
	}
	return Element{Name: name, Type: r.binding.Type, Value: r.binding.value(ptr)}, nil
}

// ReflectBinder builds bindings by reflecting over `xml` struct tags, with
// the mapping rules of encoding/xml. Every call analyses the type afresh.
type ReflectBinder struct{}

var (
	xmlNameType       = reflect.TypeFor[xml.Name]()
	marshalerType     = reflect.TypeFor[xml.Marshaler]()
	unmarshalerType   = reflect.TypeFor[xml.Unmarshaler]()
	textMarshalerType = reflect.TypeFor[encoding.TextMarshaler]()
)

// Bind implements Binder.
func (ReflectBinder) Bind(t reflect.Type) (*Binding, error) {
	if t == nil {
		return nil, ErrNilValue
	}
	elem := deref(t)
	switch elem.Kind() {
	case reflect.Interface:
		return nil, fmt.Errorf("%w: interface %s", ErrUnsupportedType, t)
	case reflect.Slice, reflect.Array:
		if elem.Elem().Kind() != reflect.Uint8 {
			return nil, fmt.Errorf("%w: sequence %s has no single root", ErrUnsupportedType, t)
		}
	}
	if err := checkType(elem, map[reflect.Type]bool{}); err != nil {
		return nil, err
	}
	root := rootName(elem)
	if elem.Kind() == reflect.Struct && root.Local == "" && !customXML(elem) && !hasMembers(elem) {
		return nil, fmt.Errorf("%w: %s has no accessible members", ErrUnsupportedType, t)
	}
	return &Binding{Type: t, Root: root, elem: elem}, nil
}

func deref(t reflect.Type) reflect.Type {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t
}

func customXML(t reflect.Type) bool {
	p := reflect.PointerTo(t)
	return t.Implements(marshalerType) || p.Implements(marshalerType) ||
		p.Implements(unmarshalerType) ||
		t.Implements(textMarshalerType) || p.Implements(textMarshalerType)
}

// checkType rejects the kinds encoding/xml cannot map, anywhere in t.
func checkType(t reflect.Type, seen map[reflect.Type]bool) error {
	if seen[t] {
		return nil
	}
	seen[t] = true
	if customXML(t) {
		return nil
	}
	switch t.Kind() {
	case reflect.Map, reflect.Chan, reflect.Func, reflect.Complex64, reflect.Complex128, reflect.UnsafePointer:
		return fmt.Errorf("%w: %s", ErrUnsupportedType, t)
	case reflect.Pointer, reflect.Slice, reflect.Array:
		return checkType(t.Elem(), seen)
	case reflect.Struct:
		for i := 0; i < t.NumField(); i++ {
			f := t.Field(i)
			if !mapped(f) {
				continue
			}
			if err := checkType(f.Type, seen); err != nil {
				return fmt.Errorf("field %s.%s: %w", t.Name(), f.Name, err)
			}
		}
	}
	return nil
}

// mapped reports whether encoding/xml reads and writes f.
func mapped(f reflect.StructField) bool {
	if f.Name == "XMLName" && f.Type == xmlNameType {
		return false
	}
	if !f.IsExported() && !f.Anonymous {
		return false
	}
	return f.Tag.Get("xml") != "-"
}

func hasMembers(t reflect.Type) bool {
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !mapped(f) {
			continue
		}
		if f.IsExported() {
			return true
		}
		// unexported embedded struct: only its promoted fields count
		if ft := deref(f.Type); ft.Kind() == reflect.Struct && hasMembers(ft) {
			return true
		}
	}
	return false
}

// rootName returns the name given by a tagged XMLName field, such as
// `xml:"point"` or `xml:"urn:geo point"`.
func rootName(t reflect.Type) xml.Name {
	if t.Kind() != reflect.Struct {
		return xml.Name{}
	}
	f, ok := t.FieldByName("XMLName")
	if !ok || f.Type != xmlNameType {
		return xml.Name{}
	}
	tag, _, _ := strings.Cut(f.Tag.Get("xml"), ",")
	if i := strings.LastIndexByte(tag, ' '); i >= 0 {
		return xml.Name{Space: tag[:i], Local: tag[i+1:]}
	}
	return xml.Name{Local: tag}
}
