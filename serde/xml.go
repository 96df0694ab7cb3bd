package serde

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"strings"

	"golang.org/x/net/html/charset"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/ianaindex"
	"golang.org/x/text/transform"
)

// DefaultEncoding 默认输出编码
const DefaultEncoding = "UTF-8"

// XMLSerializer 为 XML 实现序列化接口
type XMLSerializer struct {
	// Indent 缩进字符串，为空时输出单行
	Indent string
	// Header 是否输出 XML 声明
	Header bool
	// Encoding 输出编码（IANA 名称），为空时使用 UTF-8
	Encoding string
	// CharsetReader 将非 UTF-8 输入转换为 UTF-8，为空时使用 charset.NewReaderLabel
	CharsetReader func(label string, input io.Reader) (io.Reader, error)
}

// Serialize 序列化数据到 w 接口
func (s XMLSerializer) Serialize(w io.Writer, v any, start *xml.StartElement) error {
	label := s.Encoding
	if label == "" {
		label = DefaultEncoding
	}
	out := w
	var tw *transform.Writer
	if !isUTF8(label) {
		enc, err := ianaindex.IANA.Encoding(label)
		if err != nil || enc == nil {
			return fmt.Errorf("%w: %q", ErrUnknownEncoding, label)
		}
		// 目标编码无法表示的字符输出为字符引用，如 &#8364;
		tw = transform.NewWriter(w, encoding.HTMLEscapeUnsupported(enc.NewEncoder()))
		out = tw
	}
	if s.Header {
		if _, err := io.WriteString(out, `<?xml version="1.0" encoding="`+label+`"?>`+"\n"); err != nil {
			return err
		}
	}
	enc := xml.NewEncoder(out)
	if s.Indent != "" {
		enc.Indent("", s.Indent)
	}
	var err error
	if start != nil {
		err = enc.EncodeElement(v, *start)
	} else {
		err = enc.Encode(v)
	}
	if err != nil {
		return err
	}
	if tw != nil {
		return tw.Close()
	}
	return nil
}

// Deserialize 反序列化数据并绑定到 v 上
//
// 根元素之前只允许出现声明、注释、指令和空白；fn 不为空时，
// 根元素会先交给 fn 检查或改写，再用于解码。
func (s XMLSerializer) Deserialize(r io.Reader, v any, fn StartFunc) error {
	dec := xml.NewDecoder(r)
	dec.CharsetReader = s.CharsetReader
	if dec.CharsetReader == nil {
		dec.CharsetReader = charset.NewReaderLabel
	}
	start, err := firstElement(dec)
	if err != nil {
		return err
	}
	if fn != nil {
		if start, err = fn(start); err != nil {
			return err
		}
	}
	if err = dec.DecodeElement(v, &start); err != nil {
		return err
	}
	return expectEnd(dec)
}

func firstElement(dec *xml.Decoder) (xml.StartElement, error) {
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			return xml.StartElement{}, ErrNoElement
		}
		if err != nil {
			return xml.StartElement{}, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			return t, nil
		case xml.CharData:
			if len(bytes.TrimSpace(t)) != 0 {
				return xml.StartElement{}, ErrUnexpectedText
			}
		}
	}
}

func expectEnd(dec *xml.Decoder) error {
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			return fmt.Errorf("%w: <%s>", ErrTrailingContent, t.Name.Local)
		case xml.CharData:
			if len(bytes.TrimSpace(t)) != 0 {
				return ErrTrailingContent
			}
		}
	}
}

func isUTF8(label string) bool {
	return strings.EqualFold(label, "utf-8") || strings.EqualFold(label, "utf8")
}
