package xmlbind

import (
	"bytes"
	"encoding/xml"
	"strings"
	"testing"

	"github.com/beevik/etree"
	"github.com/go-test/deep"
	"github.com/pkg/errors"
)

func quietUnmarshaller[T any]() *Unmarshaller[T] {
	return NewUnmarshallerWithConfig[T](UnmarshallerConfig{Logger: DiscardLogger()})
}

func TestUnmarshaller_Unmarshal(t *testing.T) {
	u := quietUnmarshaller[point]()
	got, ok := u.Unmarshal(pointXML).Get()
	if !ok {
		t.Fatalf("Unmarshal() absent")
	}
	want := point{XMLName: xml.Name{Local: "point"}, X: 1, Y: 2}
	if diff := deep.Equal(got, want); diff != nil {
		t.Fatalf("Unmarshal() differs: %v", diff)
	}
}

func TestUnmarshaller_Unmarshal_Pointer(t *testing.T) {
	u := quietUnmarshaller[*point]()
	got := u.Unmarshal("<point><x>5</x><y>6</y></point>").MustGet()
	if got == nil || got.X != 5 || got.Y != 6 {
		t.Fatalf("Unmarshal() = %+v", got)
	}
}

func TestUnmarshaller_Unmarshal_Namespaced(t *testing.T) {
	m := NewMarshallerWithConfig[location](MarshallerConfig{Logger: DiscardLogger()})
	u := quietUnmarshaller[location]()
	want := location{XMLName: xml.Name{Space: "urn:geo", Local: "location"}, Lat: 52.5, Lon: 13.4}
	got, ok := u.Unmarshal(m.MarshalToString(want)).Get()
	if !ok {
		t.Fatalf("Unmarshal() absent")
	}
	if diff := deep.Equal(got, want); diff != nil {
		t.Fatalf("round trip differs: %v", diff)
	}

	if u.Unmarshal(`<location xmlns="urn:other"><lat>1</lat></location>`).IsPresent() {
		t.Fatalf("Unmarshal() accepted a root in the wrong namespace")
	}
}

func TestUnmarshaller_Unmarshal_Failures(t *testing.T) {
	cases := []struct {
		name string
		in   string
		kind ErrorKind
		want error
	}{
		{"empty", "", KindParse, nil},
		{"malformed", "<point><x>1</x>", KindParse, nil},
		{"bad number", "<point><x>one</x></point>", KindParse, nil},
		{"wrong root", "<pair><x>1</x></pair>", KindParse, ErrRootMismatch},
		{"two roots", "<point/><point/>", KindParse, nil},
	}
	var logs bytes.Buffer
	u := NewUnmarshallerWithConfig[point](UnmarshallerConfig{Logger: NewLogger(&LoggerOptions{Output: &logs})})
	for _, tc := range cases {
		if got := u.Unmarshal(tc.in); got.IsPresent() {
			t.Fatalf("%s: Unmarshal() = %v, want absent", tc.name, got)
		}
		_, err := u.Decode([]byte(tc.in))
		if err == nil {
			t.Fatalf("%s: Decode() error = nil", tc.name)
		}
		if KindOf(err) != tc.kind {
			t.Fatalf("%s: kind = %v, want %v", tc.name, KindOf(err), tc.kind)
		}
		if tc.want != nil && !errors.Is(err, tc.want) {
			t.Fatalf("%s: err = %v, want %v", tc.name, err, tc.want)
		}
	}
	if got := strings.Count(logs.String(), "msg=\"xmlbind: unmarshal failed\""); got != len(cases) {
		t.Fatalf("logged %d failures, want %d:\n%s", got, len(cases), logs.String())
	}
}

func TestUnmarshaller_Unmarshal_NoRoot(t *testing.T) {
	u := quietUnmarshaller[pair]()
	if got := u.Unmarshal("<pair><key>a</key></pair>"); got.IsPresent() {
		t.Fatalf("Unmarshal() = %v, want absent", got)
	}
	_, err := u.Decode([]byte("<pair><key>a</key></pair>"))
	var be *BindError
	if !errors.As(err, &be) || be.Kind() != KindNoRoot {
		t.Fatalf("err = %v, want no-root BindError", err)
	}
}

func TestUnmarshaller_Unmarshal_UnsupportedType(t *testing.T) {
	if got := quietUnmarshaller[map[string]string]().Unmarshal("<m/>"); got.IsPresent() {
		t.Fatalf("Unmarshal() = %v, want absent", got)
	}
	if got := quietUnmarshaller[any]().Unmarshal("<m/>"); got.IsPresent() {
		t.Fatalf("Unmarshal() = %v, want absent", got)
	}
}

func TestUnmarshaller_Unmarshal_Latin1(t *testing.T) {
	type label struct {
		XMLName xml.Name `xml:"label"`
		Text    string   `xml:"text"`
	}
	u := quietUnmarshaller[label]()
	in := "<?xml version=\"1.0\" encoding=\"ISO-8859-1\"?>\n<label><text>na\xefve</text></label>"
	got := u.Unmarshal(in).MustGet()
	if got.Text != "naïve" {
		t.Fatalf("Text = %q, want naïve", got.Text)
	}
}

func TestUnmarshaller_DocumentRoundTrip(t *testing.T) {
	m := NewMarshallerWithConfig[pair](MarshallerConfig{Logger: DiscardLogger()})
	u := quietUnmarshaller[pair]()
	want := pair{Key: "a", Value: "b"}
	doc := m.MarshalToDocumentNS(want, "urn:test", "pair").MustGet()
	got, ok := u.UnmarshalFromDocument(doc.Root()).Get()
	if !ok {
		t.Fatalf("UnmarshalFromDocument() absent")
	}
	if diff := deep.Equal(got, want); diff != nil {
		t.Fatalf("round trip differs: %v", diff)
	}
}

func TestUnmarshaller_DocumentRoundTrip_IntrinsicRootRenamed(t *testing.T) {
	m := NewMarshallerWithConfig[point](MarshallerConfig{Logger: DiscardLogger()})
	u := quietUnmarshaller[point]()
	doc := m.MarshalToDocumentNS(point{X: 1, Y: 2}, "urn:geo", "position").MustGet()
	got := u.UnmarshalFromDocument(doc.Root()).MustGet()
	want := point{XMLName: xml.Name{Local: "point"}, X: 1, Y: 2}
	if diff := deep.Equal(got, want); diff != nil {
		t.Fatalf("round trip differs: %v", diff)
	}
}

func TestUnmarshaller_UnmarshalFromDocument_Nested(t *testing.T) {
	doc := etree.NewDocument()
	err := doc.ReadFromString(`<env:envelope xmlns:env="urn:env" xmlns:p="urn:pair">` +
		`<env:body><p:pair><p:key>a</p:key><p:value>b</p:value></p:pair></env:body>` +
		`</env:envelope>`)
	if err != nil {
		t.Fatal(err)
	}
	node := doc.Root().SelectElement("body").SelectElement("pair")
	u := quietUnmarshaller[pair]()
	e, err := u.DecodeElement(node)
	if err != nil {
		t.Fatal(err)
	}
	if e.Name != (xml.Name{Space: "urn:pair", Local: "pair"}) {
		t.Fatalf("Name = %v, want {urn:pair pair}", e.Name)
	}
	if diff := deep.Equal(e.Value, pair{Key: "a", Value: "b"}); diff != nil {
		t.Fatalf("value differs: %v", diff)
	}
	// the source document is left untouched
	if len(doc.Root().SelectElement("body").ChildElements()) != 1 {
		t.Fatalf("source document was modified")
	}
}

func TestUnmarshaller_UnmarshalFromDocument_DocumentElement(t *testing.T) {
	doc := etree.NewDocument()
	if err := doc.ReadFromString(`<pair><key>k</key><value>v</value></pair>`); err != nil {
		t.Fatal(err)
	}
	got := quietUnmarshaller[pair]().UnmarshalFromDocument(&doc.Element).MustGet()
	if got.Key != "k" || got.Value != "v" {
		t.Fatalf("UnmarshalFromDocument() = %+v", got)
	}
}

func TestUnmarshaller_UnmarshalFromDocument_Failures(t *testing.T) {
	u := quietUnmarshaller[point]()
	if got := u.UnmarshalFromDocument(nil); got.IsPresent() {
		t.Fatalf("UnmarshalFromDocument(nil) = %v, want absent", got)
	}
	if got := u.UnmarshalFromDocument(&etree.NewDocument().Element); got.IsPresent() {
		t.Fatalf("UnmarshalFromDocument(empty) = %v, want absent", got)
	}
	doc := etree.NewDocument()
	if err := doc.ReadFromString(`<point><x>not a number</x></point>`); err != nil {
		t.Fatal(err)
	}
	if got := u.UnmarshalFromDocument(doc.Root()); got.IsPresent() {
		t.Fatalf("UnmarshalFromDocument() = %v, want absent", got)
	}
	_, err := u.DecodeElement(nil)
	if !errors.Is(err, ErrNilNode) {
		t.Fatalf("err = %v, want ErrNilNode", err)
	}
}

func TestUnmarshaller_DecodeElement_ErrorName(t *testing.T) {
	doc := etree.NewDocument()
	if err := doc.ReadFromString(`<p:point xmlns:p="urn:geo"><x>oops</x></p:point>`); err != nil {
		t.Fatal(err)
	}
	u := quietUnmarshaller[point]()
	for _, node := range []*etree.Element{&doc.Element, doc.Root()} {
		_, err := u.DecodeElement(node)
		var be *BindError
		if !errors.As(err, &be) {
			t.Fatalf("err = %v, want BindError", err)
		}
		if be.Name != (xml.Name{Space: "urn:geo", Local: "point"}) {
			t.Fatalf("Name = %v, want {urn:geo point}", be.Name)
		}
	}
}
