package hosttech

import (
	"strconv"

	"github.com/dnstools/hosttech-dns-sync/provider"
	"github.com/dnstools/hosttech-dns-sync/wsdl"
)

// encodeRecord builds the wire map for a record. IDs are only sent when the
// operation addresses an existing record.
func encodeRecord(r provider.Record, includeIDs bool) *wsdl.Map {
	m := wsdl.NewMap().
		Set("type", string(r.Type)).
		Set("prefix", optString(r.Prefix)).
		Set("target", r.Target).
		Set("ttl", r.TTL).
		Set("priority", optInt(r.Priority))
	if includeIDs {
		m.Set("id", r.ID).Set("zone", r.Zone)
	}
	return m
}

func decodeRecord(m *wsdl.Map) (provider.Record, error) {
	var r provider.Record
	var err error
	if r.ID, err = intField(m, "id", true); err != nil {
		return r, err
	}
	if r.Zone, err = intField(m, "zone", true); err != nil {
		return r, err
	}
	typ, err := stringField(m, "type", true)
	if err != nil {
		return r, err
	}
	r.Type = provider.RecordType(typ)
	if r.Prefix, err = optStringField(m, "prefix"); err != nil {
		return r, err
	}
	if r.Target, err = stringField(m, "target", true); err != nil {
		return r, err
	}
	if r.TTL, err = intField(m, "ttl", true); err != nil {
		return r, err
	}
	if r.Priority, err = optIntField(m, "priority"); err != nil {
		return r, err
	}
	return r, nil
}

func decodeZone(m *wsdl.Map) (*provider.Zone, error) {
	z := &provider.Zone{}
	var err error
	if z.ID, err = intField(m, "id", true); err != nil {
		return nil, err
	}
	if z.Name, err = stringField(m, "name", true); err != nil {
		return nil, err
	}
	if z.User, err = stringField(m, "user", false); err != nil {
		return nil, err
	}
	if z.Email, err = stringField(m, "email", false); err != nil {
		return nil, err
	}
	if z.TTL, err = intField(m, "ttl", true); err != nil {
		return nil, err
	}
	if z.Nameserver, err = stringField(m, "nameserver", false); err != nil {
		return nil, err
	}
	if z.Serial, err = stringField(m, "serial", false); err != nil {
		return nil, err
	}
	if z.SerialLastUpdate, err = stringField(m, "serialLastUpdate", false); err != nil {
		return nil, err
	}
	if z.Refresh, err = intField(m, "refresh", false); err != nil {
		return nil, err
	}
	if z.Retry, err = intField(m, "retry", false); err != nil {
		return nil, err
	}
	if z.Expire, err = intField(m, "expire", false); err != nil {
		return nil, err
	}
	if z.Template, err = stringField(m, "template", false); err != nil {
		return nil, err
	}
	if z.NS3, err = stringField(m, "ns3", false); err != nil {
		return nil, err
	}
	records, ok := m.Get("records")
	if !ok {
		return nil, wsdl.NewCodingError("zone has no records field")
	}
	list, ok := records.([]any)
	if !ok {
		return nil, wsdl.NewCodingError("zone records field has unexpected type %T", records)
	}
	for _, item := range list {
		rm, ok := item.(*wsdl.Map)
		if !ok {
			return nil, wsdl.NewCodingError("zone record entry has unexpected type %T", item)
		}
		rec, err := decodeRecord(rm)
		if err != nil {
			return nil, err
		}
		z.Records = append(z.Records, rec)
	}
	return z, nil
}

func optString(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}

func optInt(n *int) any {
	if n == nil {
		return nil
	}
	return *n
}

// The service is loose about numeric fields and may send ints as strings, so
// field access coerces where it can.

func intField(m *wsdl.Map, key string, required bool) (int, error) {
	v, ok := m.Get(key)
	if !ok || v == nil {
		if required {
			return 0, wsdl.NewCodingError("record map has no %q field", key)
		}
		return 0, nil
	}
	return coerceInt(v, key)
}

func optIntField(m *wsdl.Map, key string) (*int, error) {
	v, ok := m.Get(key)
	if !ok || v == nil {
		return nil, nil
	}
	n, err := coerceInt(v, key)
	if err != nil {
		return nil, err
	}
	return &n, nil
}

func coerceInt(v any, key string) (int, error) {
	switch n := v.(type) {
	case int:
		return n, nil
	case string:
		parsed, err := strconv.Atoi(n)
		if err != nil {
			return 0, wsdl.NewCodingError("field %q is not numeric: %q", key, n)
		}
		return parsed, nil
	}
	return 0, wsdl.NewCodingError("field %q has unexpected type %T", key, v)
}

func stringField(m *wsdl.Map, key string, required bool) (string, error) {
	v, ok := m.Get(key)
	if !ok || v == nil {
		if required {
			return "", wsdl.NewCodingError("record map has no %q field", key)
		}
		return "", nil
	}
	switch s := v.(type) {
	case string:
		return s, nil
	case int:
		return strconv.Itoa(s), nil
	}
	return "", wsdl.NewCodingError("field %q has unexpected type %T", key, v)
}

func optStringField(m *wsdl.Map, key string) (*string, error) {
	v, ok := m.Get(key)
	if !ok || v == nil {
		return nil, nil
	}
	s, ok := v.(string)
	if !ok {
		return nil, wsdl.NewCodingError("field %q has unexpected type %T", key, v)
	}
	if s == "" {
		return nil, nil
	}
	return &s, nil
}
