// Package wsdl implements the restricted SOAP/WSDL wire format spoken by the
// hosttech name server API: a typed value codec and the request/response
// envelope layer on top of it.
package wsdl

import (
	"strconv"
	"strings"

	"github.com/beevik/etree"
)

const (
	nsEnvelope     = "http://schemas.xmlsoap.org/soap/envelope/"
	nsXSI          = "http://www.w3.org/2001/XMLSchema-instance"
	nsXSD          = "http://www.w3.org/2001/XMLSchema"
	nsApacheMap    = "http://xml.apache.org/xml-soap"
	nsSOAPEncoding = "http://schemas.xmlsoap.org/soap/encoding/"
)

// MapEntry is a single key/value pair of a Map.
type MapEntry struct {
	Key   any
	Value any
}

// Map is an insertion-ordered mapping. The wire format encodes maps as a
// sequence of item elements, so ordering is part of the payload.
type Map struct {
	entries []MapEntry
}

func NewMap() *Map {
	return &Map{}
}

// Set appends the pair, or replaces the value of an existing key in place.
func (m *Map) Set(key, value any) *Map {
	for i, e := range m.entries {
		if e.Key == key {
			m.entries[i].Value = value
			return m
		}
	}
	m.entries = append(m.entries, MapEntry{Key: key, Value: value})
	return m
}

func (m *Map) Get(key any) (any, bool) {
	for _, e := range m.entries {
		if e.Key == key {
			return e.Value, true
		}
	}
	return nil, false
}

func (m *Map) Len() int {
	return len(m.entries)
}

func (m *Map) Entries() []MapEntry {
	return m.entries
}

func setType(el *etree.Element, prefix, name string) {
	el.CreateAttr("xsi:type", prefix+":"+name)
}

// Encode writes value into el as a type-annotated node. Supported values are
// nil, string, int, bool, *Map and []any; anything else yields a CodingError.
// The fixed prefixes (xsi, xsd, ns2, SOAP-ENC) must be declared on an
// enclosing element, which NewComposer takes care of.
func Encode(el *etree.Element, value any) error {
	switch v := value.(type) {
	case nil:
		el.CreateAttr("xsi:nil", "true")
	case string:
		setType(el, "xsd", "string")
		el.SetText(v)
	case bool:
		setType(el, "xsd", "boolean")
		if v {
			el.SetText("true")
		} else {
			el.SetText("false")
		}
	case int:
		setType(el, "xsd", "int")
		el.SetText(strconv.Itoa(v))
	case *Map:
		setType(el, "ns2", "Map")
		for _, entry := range v.Entries() {
			item := el.CreateElement("item")
			if err := Encode(item.CreateElement("key"), entry.Key); err != nil {
				return err
			}
			if err := Encode(item.CreateElement("value"), entry.Value); err != nil {
				return err
			}
		}
	case []any:
		setType(el, "SOAP-ENC", "Array")
		for _, elt := range v {
			if err := Encode(el.CreateElement("item"), elt); err != nil {
				return err
			}
		}
	default:
		return NewCodingError("do not know how to encode %T", value)
	}
	return nil
}

// Decode is the inverse of Encode. The type annotation's namespace prefix is
// resolved against the xmlns declarations in scope, so responses may use any
// prefixes they like.
func Decode(el *etree.Element) (any, error) {
	if nil_, ok := attrNS(el, nsXSI, "nil"); ok && nil_ == "true" {
		return nil, nil
	}
	typeAttr, ok := attrNS(el, nsXSI, "type")
	if !ok {
		return nil, NewCodingError("element %q has no xsi:type attribute", el.Tag)
	}
	local, prefix := splitQName(typeAttr)
	ns := lookupNamespace(el, prefix)
	if ns == "" {
		return nil, NewCodingError("cannot resolve namespace for type %q", typeAttr)
	}
	switch ns {
	case nsXSD:
		return decodePrimitive(el, local)
	case nsApacheMap:
		if local != "Map" {
			return nil, NewCodingError("unknown map type %q", local)
		}
		return decodeMap(el)
	case nsSOAPEncoding:
		if local != "Array" {
			return nil, NewCodingError("unknown array type %q", local)
		}
		return decodeArray(el)
	}
	return nil, NewCodingError("unknown type namespace %q (type %q)", ns, local)
}

func decodePrimitive(el *etree.Element, local string) (any, error) {
	text := el.Text()
	switch local {
	case "string":
		return text, nil
	case "int":
		n, err := strconv.Atoi(strings.TrimSpace(text))
		if err != nil {
			return nil, NewCodingError("invalid value for int: %q", text)
		}
		return n, nil
	case "boolean":
		switch text {
		case "true":
			return true, nil
		case "false":
			return false, nil
		}
		return nil, NewCodingError("invalid value for boolean: %q", text)
	}
	return nil, NewCodingError("unknown XSD type %q", local)
}

func decodeMap(el *etree.Element) (any, error) {
	result := NewMap()
	for _, item := range el.ChildElements() {
		if item.Tag != "item" {
			return nil, NewCodingError("invalid child tag %q in map", item.Tag)
		}
		keyEl := item.SelectElement("key")
		if keyEl == nil {
			return nil, NewCodingError("map item has no key element")
		}
		key, err := Decode(keyEl)
		if err != nil {
			return nil, err
		}
		valueEl := item.SelectElement("value")
		if valueEl == nil {
			return nil, NewCodingError("map item has no value element")
		}
		value, err := Decode(valueEl)
		if err != nil {
			return nil, err
		}
		result.Set(key, value)
	}
	return result, nil
}

func decodeArray(el *etree.Element) (any, error) {
	result := []any{}
	for _, item := range el.ChildElements() {
		if item.Tag != "item" {
			return nil, NewCodingError("invalid child tag %q in array", item.Tag)
		}
		v, err := Decode(item)
		if err != nil {
			return nil, err
		}
		result = append(result, v)
	}
	return result, nil
}

// splitQName splits "prefix:local" into its parts. The prefix is empty when
// there is no colon.
func splitQName(s string) (local, prefix string) {
	if i := strings.Index(s, ":"); i >= 0 {
		return s[i+1:], s[:i]
	}
	return s, ""
}

// lookupNamespace resolves a prefix by walking the xmlns declarations from el
// up to the document root. An empty prefix resolves the default namespace.
func lookupNamespace(el *etree.Element, prefix string) string {
	want := "xmlns"
	if prefix != "" {
		want = "xmlns:" + prefix
	}
	for e := el; e != nil; e = e.Parent() {
		for _, a := range e.Attr {
			if a.FullKey() == want {
				return a.Value
			}
		}
	}
	return ""
}

// attrNS finds an attribute by namespace and local name, resolving each
// attribute's prefix against the declarations in scope.
func attrNS(el *etree.Element, ns, key string) (string, bool) {
	for _, a := range el.Attr {
		if a.Space == "" || a.Key != key {
			continue
		}
		if lookupNamespace(el, a.Space) == ns {
			return a.Value, true
		}
	}
	return "", false
}
