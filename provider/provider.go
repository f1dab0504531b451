// Package provider holds the DNS zone/record data model and the interface a
// remote DNS provider must implement for reconciliation.
package provider

import (
	"context"
	"fmt"
	"strings"

	"github.com/miekg/dns"
)

// RecordType enumerates the record types the remote service manages.
type RecordType string

const (
	TypeA     RecordType = "A"
	TypeAAAA  RecordType = "AAAA"
	TypeCNAME RecordType = "CNAME"
	TypeMX    RecordType = "MX"
	TypeTXT   RecordType = "TXT"
	TypePTR   RecordType = "PTR"
	TypeSRV   RecordType = "SRV"
	TypeSPF   RecordType = "SPF"
	TypeNS    RecordType = "NS"
	TypeCAA   RecordType = "CAA"
)

var recordTypes = map[RecordType]bool{
	TypeA: true, TypeAAAA: true, TypeCNAME: true, TypeMX: true, TypeTXT: true,
	TypePTR: true, TypeSRV: true, TypeSPF: true, TypeNS: true, TypeCAA: true,
}

func ParseRecordType(s string) (RecordType, error) {
	t := RecordType(strings.ToUpper(s))
	if !recordTypes[t] {
		return "", &PreconditionError{Message: fmt.Sprintf("unknown record type %q", s)}
	}
	return t, nil
}

// HasPriority reports whether values of this type carry an integer priority
// in front of the target.
func (t RecordType) HasPriority() bool {
	return t == TypeMX || t == TypePTR
}

// Record is a single DNS record as the remote service models it. ID is
// assigned by the service and stays zero until the record is created. Zone is
// a weak back-reference to the owning zone's id. A nil Prefix means the zone
// apex.
type Record struct {
	ID       int
	Zone     int
	Type     RecordType
	Prefix   *string
	Target   string
	TTL      int
	Priority *int
}

// Zone is a DNS domain under management. It owns its records; they carry no
// lifecycle of their own.
type Zone struct {
	ID               int
	User             string
	Name             string
	Email            string
	TTL              int
	Nameserver       string
	Serial           string
	SerialLastUpdate string
	Refresh          int
	Retry            int
	Expire           int
	Template         string
	NS3              string
	Records          []Record
}

// Provider is the operation surface reconciliation needs. The hosttech
// package implements it over the wire.
type Provider interface {
	GetZone(ctx context.Context, search string) (*Zone, error)
	AddRecord(ctx context.Context, zone string, record Record) (Record, error)
	UpdateRecord(ctx context.Context, record Record) (Record, error)
	DeleteRecord(ctx context.Context, id int) (bool, error)
}

// PreconditionError reports invalid input caught before any network call: a
// missing record id, a record name outside its zone, a bad type or value.
type PreconditionError struct {
	Message string
}

func (e *PreconditionError) Error() string { return e.Message }

// NormalizeName lowercases a domain name and strips the trailing dot.
func NormalizeName(name string) string {
	return strings.TrimSuffix(dns.CanonicalName(name), ".")
}

// SplitRecordName turns a fully-qualified record name into the prefix
// relative to zone. The record must be the zone itself (nil prefix) or a
// subdomain of it.
func SplitRecordName(record, zone string) (*string, error) {
	record = NormalizeName(record)
	zone = NormalizeName(zone)
	if record == zone {
		return nil, nil
	}
	if !dns.IsSubDomain(dns.Fqdn(zone), dns.Fqdn(record)) {
		return nil, &PreconditionError{Message: fmt.Sprintf("record %q is not in zone %q", record, zone)}
	}
	prefix := record[:len(record)-len(zone)-1]
	return &prefix, nil
}

// JoinRecordName is the inverse of SplitRecordName.
func JoinRecordName(prefix *string, zone string) string {
	if prefix == nil || *prefix == "" {
		return zone
	}
	return *prefix + "." + zone
}

// FormatTTL renders a TTL in seconds as a compact "XhYmZs" string.
func FormatTTL(ttl int) string {
	sec := ttl % 60
	ttl /= 60
	min := ttl % 60
	h := ttl / 60
	var parts []string
	if h > 0 {
		parts = append(parts, fmt.Sprintf("%dh", h))
	}
	if min > 0 {
		parts = append(parts, fmt.Sprintf("%dm", min))
	}
	if sec > 0 {
		parts = append(parts, fmt.Sprintf("%ds", sec))
	}
	if len(parts) == 0 {
		return "0s"
	}
	return strings.Join(parts, " ")
}
