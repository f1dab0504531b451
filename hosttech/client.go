// Package hosttech is a client for the hosttech name server's legacy
// SOAP/WSDL API.
package hosttech

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dnstools/hosttech-dns-sync/metrics"
	"github.com/dnstools/hosttech-dns-sync/provider"
	"github.com/dnstools/hosttech-dns-sync/wsdl"
)

const DefaultEndpoint = "https://ns1.hosttech.eu/public/api"

type resultKind int

const (
	kindInt resultKind = iota
	kindBool
	kindMap
)

func (k resultKind) String() string {
	switch k {
	case kindInt:
		return "int"
	case kindBool:
		return "boolean"
	default:
		return "map"
	}
}

// Client talks to the remote API. One method per WSDL operation; every call
// authenticates, verifies the auth response header and checks the result
// kind.
type Client struct {
	api       string
	username  string
	password  string
	transport Transport
	logger    *slog.Logger
	metrics   *metrics.Metrics
}

func New(api, username, password string, transport Transport, logger *slog.Logger, m *metrics.Metrics) *Client {
	if api == "" {
		api = DefaultEndpoint
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		api:       api,
		username:  username,
		password:  password,
		transport: transport,
		logger:    logger,
		metrics:   m,
	}
}

var _ provider.Provider = (*Client)(nil)

// CountZones returns the number of zones of the authenticated user
// (getNumberOfZones).
func (c *Client) CountZones(ctx context.Context) (int, error) {
	res, err := c.call(ctx, "getNumberOfZones", kindInt)
	if err != nil {
		return 0, err
	}
	return res.(int), nil
}

// GetZone searches a zone by name or id (getZone). A missing zone comes back
// as a nil zone, not an error; the service reports it as a fault with a
// well-known message.
func (c *Client) GetZone(ctx context.Context, search string) (*provider.Zone, error) {
	res, err := c.call(ctx, "getZone", kindMap, wsdl.Param{Name: "search", Value: search})
	if err != nil {
		var fault *wsdl.Fault
		if errors.As(err, &fault) && fault.Origin == "server" && fault.Message == "zone not found" {
			return nil, nil
		}
		return nil, err
	}
	return decodeZone(res.(*wsdl.Map))
}

// GetRecord fetches one record by id (getRecord).
func (c *Client) GetRecord(ctx context.Context, id int) (provider.Record, error) {
	if id == 0 {
		return provider.Record{}, &provider.PreconditionError{Message: "need record id to get record"}
	}
	res, err := c.call(ctx, "getRecord", kindMap, wsdl.Param{Name: "recordId", Value: id})
	if err != nil {
		return provider.Record{}, err
	}
	return decodeRecord(res.(*wsdl.Map))
}

// AddRecord creates a record in the zone matched by the search key
// (addRecord) and returns it with its server-assigned id.
func (c *Client) AddRecord(ctx context.Context, zone string, record provider.Record) (provider.Record, error) {
	res, err := c.call(ctx, "addRecord", kindMap,
		wsdl.Param{Name: "search", Value: zone},
		wsdl.Param{Name: "recorddata", Value: encodeRecord(record, false)},
	)
	if err != nil {
		return provider.Record{}, err
	}
	return decodeRecord(res.(*wsdl.Map))
}

// UpdateRecord rewrites an existing record (updateRecord).
func (c *Client) UpdateRecord(ctx context.Context, record provider.Record) (provider.Record, error) {
	if record.ID == 0 {
		return provider.Record{}, &provider.PreconditionError{Message: "need record id to update record"}
	}
	res, err := c.call(ctx, "updateRecord", kindMap,
		wsdl.Param{Name: "recordId", Value: record.ID},
		wsdl.Param{Name: "recorddata", Value: encodeRecord(record, false)},
	)
	if err != nil {
		return provider.Record{}, err
	}
	return decodeRecord(res.(*wsdl.Map))
}

// DeleteRecord removes a record by id (deleteRecord).
func (c *Client) DeleteRecord(ctx context.Context, id int) (bool, error) {
	if id == 0 {
		return false, &provider.PreconditionError{Message: "need record id to delete record"}
	}
	res, err := c.call(ctx, "deleteRecord", kindBool, wsdl.Param{Name: "recordId", Value: id})
	if err != nil {
		return false, err
	}
	return res.(bool), nil
}

// ChangeIP replaces an IP across all records of the user (changeIp) and
// returns the number of records touched.
func (c *Client) ChangeIP(ctx context.Context, from, to string) (int, error) {
	res, err := c.call(ctx, "changeIp", kindInt,
		wsdl.Param{Name: "currentIp", Value: from},
		wsdl.Param{Name: "newIp", Value: to},
	)
	if err != nil {
		return 0, err
	}
	return res.(int), nil
}

// ChangeTTL replaces the TTL on all records carrying the given IP (changeTTL)
// and returns the number of records touched.
func (c *Client) ChangeTTL(ctx context.Context, ip string, ttl int) (int, error) {
	res, err := c.call(ctx, "changeTTL", kindInt,
		wsdl.Param{Name: "ip", Value: ip},
		wsdl.Param{Name: "ttl", Value: ttl},
	)
	if err != nil {
		return 0, err
	}
	return res.(int), nil
}

func (c *Client) call(ctx context.Context, op string, want resultKind, params ...wsdl.Param) (any, error) {
	res, err := c.doCall(ctx, op, want, params)
	c.metrics.IncRPCRequest(op, err == nil)
	return res, err
}

func (c *Client) doCall(ctx context.Context, op string, want resultKind, params []wsdl.Param) (any, error) {
	comp := wsdl.NewComposer(c.api)
	comp.AddAuth(c.username, c.password)
	if err := comp.AddOperation(op, params...); err != nil {
		return nil, err
	}
	payload, err := comp.Payload()
	if err != nil {
		return nil, fmt.Errorf("%s: serialize request: %w", op, err)
	}
	c.logger.Debug("sending rpc request", "operation", op, "bytes", len(payload))
	status, body, err := c.transport.Send(ctx, payload)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if status < 200 || status >= 300 {
		// The error body is a fault document, not a value document.
		if _, perr := wsdl.ParseResponse(c.api, body); perr != nil {
			var fault *wsdl.Fault
			if errors.As(perr, &fault) {
				return nil, fault
			}
		}
		return nil, &wsdl.Fault{Origin: "server", Message: fmt.Sprintf("unexpected status %d while executing %s", status, op)}
	}
	resp, err := wsdl.ParseResponse(c.api, body)
	if err != nil {
		return nil, err
	}
	authed, err := resp.HeaderResult("authenticateResponse")
	if err != nil || authed != true {
		return nil, &AuthError{}
	}
	res, err := resp.BodyResult(op + "Response")
	if err != nil {
		return nil, err
	}
	if !kindMatches(res, want) {
		return nil, &TypeMismatchError{Operation: op, Want: want.String(), Got: res}
	}
	c.logger.Debug("rpc result extracted", "operation", op)
	return res, nil
}

func kindMatches(v any, want resultKind) bool {
	switch want {
	case kindInt:
		_, ok := v.(int)
		return ok
	case kindBool:
		_, ok := v.(bool)
		return ok
	default:
		_, ok := v.(*wsdl.Map)
		return ok
	}
}
