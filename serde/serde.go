package serde

import (
	"encoding/xml"
	"errors"
	"io"
)

// Errors
var (
	ErrNoElement       = errors.New("serde: no root element")
	ErrTrailingContent = errors.New("serde: content after root element")
	ErrUnknownEncoding = errors.New("serde: unknown encoding")
	ErrUnexpectedText  = errors.New("serde: text before root element")
)

// StartFunc 在解码前检查或改写根元素
type StartFunc func(start xml.StartElement) (xml.StartElement, error)

// Serializer 序列化 xml
type Serializer interface {
	// Serialize 序列化数据，start 为空时使用值自身的根元素
	Serialize(w io.Writer, v any, start *xml.StartElement) error
	// Deserialize 反序列化
	Deserialize(r io.Reader, v any, fn StartFunc) error
}
