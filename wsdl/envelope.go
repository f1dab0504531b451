package wsdl

import (
	"errors"
	"fmt"
	"strings"

	"github.com/beevik/etree"
)

// ErrResultMissing is returned when a header or body result is not present in
// a response.
var ErrResultMissing = errors.New("result not present in response")

// Param is a named operation argument. Arguments are encoded in the order
// they are supplied.
type Param struct {
	Name  string
	Value any
}

// Composer builds a request envelope for the given endpoint. The endpoint URL
// doubles as the XML namespace of operation elements.
type Composer struct {
	api    string
	doc    *etree.Document
	header *etree.Element
	body   *etree.Element
}

func NewComposer(api string) *Composer {
	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version='1.0' encoding='utf-8'`)
	env := doc.CreateElement("SOAP-ENV:Envelope")
	env.CreateAttr("xmlns:SOAP-ENV", nsEnvelope)
	env.CreateAttr("xmlns:ns1", api)
	env.CreateAttr("xmlns:ns2", nsApacheMap)
	env.CreateAttr("xmlns:xsi", nsXSI)
	env.CreateAttr("xmlns:xsd", nsXSD)
	env.CreateAttr("xmlns:SOAP-ENC", nsSOAPEncoding)
	return &Composer{
		api:    api,
		doc:    doc,
		header: env.CreateElement("SOAP-ENV:Header"),
		body:   env.CreateElement("SOAP-ENV:Body"),
	}
}

// AddAuth appends the authentication header. Credentials travel as plain
// text; channel confidentiality is the transport's job.
func (c *Composer) AddAuth(username, password string) {
	auth := c.header.CreateElement("authenticate")
	auth.CreateElement("UserName").SetText(username)
	auth.CreateElement("Password").SetText(password)
}

// AddOperation appends a body element for the named operation with one
// encoded child per argument.
func (c *Composer) AddOperation(name string, params ...Param) error {
	op := c.body.CreateElement("ns1:" + name)
	for _, p := range params {
		if err := Encode(op.CreateElement(p.Name), p.Value); err != nil {
			return err
		}
	}
	return nil
}

// Payload serializes the request document.
func (c *Composer) Payload() ([]byte, error) {
	return c.doc.WriteToBytes()
}

// Response holds the decoded header and body results of a parsed response,
// keyed by the local name of the enclosing element.
type Response struct {
	header map[string]any
	body   map[string]any
}

// ParseResponse parses a response payload. A fault element anywhere in the
// document takes priority over result extraction and comes back as a *Fault
// error. Results are decoded from the "return" node nested in every
// endpoint-namespaced element of the header and body sections.
func ParseResponse(api string, payload []byte) (*Response, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(payload); err != nil {
		return nil, NewCodingError("malformed response document: %v", err)
	}
	root := doc.Root()
	if root == nil {
		return nil, NewCodingError("empty response document")
	}
	for _, fault := range findAll(root, nsEnvelope, "Fault") {
		return nil, faultFrom(fault)
	}
	r := &Response{
		header: make(map[string]any),
		body:   make(map[string]any),
	}
	for _, h := range findAll(root, nsEnvelope, "Header") {
		if err := collectResults(api, h, "header", r.header); err != nil {
			return nil, err
		}
	}
	for _, b := range findAll(root, nsEnvelope, "Body") {
		if err := collectResults(api, b, "body", r.body); err != nil {
			return nil, err
		}
	}
	return r, nil
}

func (r *Response) HeaderResult(name string) (any, error) {
	v, ok := r.header[name]
	if !ok {
		return nil, fmt.Errorf("header result %q: %w", name, ErrResultMissing)
	}
	return v, nil
}

func (r *Response) BodyResult(name string) (any, error) {
	v, ok := r.body[name]
	if !ok {
		return nil, fmt.Errorf("body result %q: %w", name, ErrResultMissing)
	}
	return v, nil
}

func collectResults(api string, section *etree.Element, where string, results map[string]any) error {
	for _, child := range section.ChildElements() {
		if resolveSpace(child) != api {
			return NewCodingError("cannot interpret %s element %q", where, child.Tag)
		}
		for _, ret := range findAll(child, "", "return") {
			if _, ok := results[child.Tag]; ok {
				continue
			}
			v, err := Decode(ret)
			if err != nil {
				return err
			}
			results[child.Tag] = v
		}
	}
	return nil
}

func faultFrom(el *etree.Element) *Fault {
	origin := "server"
	if code := el.SelectElement("faultcode"); code != nil && code.Text() != "" {
		local, prefix := splitQName(code.Text())
		if lookupNamespace(el, prefix) == nsEnvelope {
			origin = strings.ToLower(local)
		}
	}
	if fs := el.SelectElement("faultstring"); fs != nil && fs.Text() != "" {
		return &Fault{Origin: origin, Message: fs.Text()}
	}
	doc := etree.NewDocument()
	doc.SetRoot(el.Copy())
	raw, _ := doc.WriteToString()
	return &Fault{Origin: origin, Message: raw}
}

func resolveSpace(el *etree.Element) string {
	return lookupNamespace(el, el.Space)
}

// findAll walks the subtree rooted at el, returning every element whose
// namespace and local name match. An empty ns matches undeclared namespaces
// only.
func findAll(el *etree.Element, ns, local string) []*etree.Element {
	var out []*etree.Element
	if el.Tag == local && resolveSpace(el) == ns {
		out = append(out, el)
	}
	for _, child := range el.ChildElements() {
		out = append(out, findAll(child, ns, local)...)
	}
	return out
}
