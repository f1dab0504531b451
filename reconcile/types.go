package reconcile

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/dnstools/hosttech-dns-sync/provider"
)

// State selects the convergence target for a record group.
type State string

const (
	StatePresent State = "present"
	StateAbsent  State = "absent"
)

func ParseState(s string) (State, error) {
	switch State(s) {
	case StatePresent, StateAbsent:
		return State(s), nil
	}
	return "", &provider.PreconditionError{Message: fmt.Sprintf("unknown state %q", s)}
}

// Value is one desired (priority, target) pair. Priority is nil for types
// that do not carry one.
type Value struct {
	Priority *int
	Target   string
}

func (v Value) String() string {
	if v.Priority == nil {
		return v.Target
	}
	return strconv.Itoa(*v.Priority) + " " + v.Target
}

func (v Value) equal(priority *int, target string) bool {
	if target != v.Target {
		return false
	}
	if (v.Priority == nil) != (priority == nil) {
		return false
	}
	return v.Priority == nil || *v.Priority == *priority
}

// ParseValue parses a value string. Priority-bearing types expect
// "priority target", everything else a bare target.
func ParseValue(t provider.RecordType, s string) (Value, error) {
	if !t.HasPriority() {
		return Value{Target: s}, nil
	}
	prio, target, found := strings.Cut(s, " ")
	if !found {
		return Value{}, &provider.PreconditionError{Message: fmt.Sprintf("%s value %q must be \"priority target\"", t, s)}
	}
	n, err := strconv.Atoi(prio)
	if err != nil {
		return Value{}, &provider.PreconditionError{Message: fmt.Sprintf("%s value %q has non-numeric priority", t, s)}
	}
	return Value{Priority: &n, Target: target}, nil
}

// Desired is the declared target state of one record group. Values behave as
// a set: NewDesired collapses duplicates.
type Desired struct {
	Prefix    *string
	Type      provider.RecordType
	TTL       int
	Values    []Value
	Overwrite bool
}

func NewDesired(prefix *string, t provider.RecordType, ttl int, values []Value, overwrite bool) Desired {
	var dedup []Value
	for _, v := range values {
		if indexOfValue(dedup, v.Priority, v.Target) < 0 {
			dedup = append(dedup, v)
		}
	}
	return Desired{Prefix: prefix, Type: t, TTL: ttl, Values: dedup, Overwrite: overwrite}
}

// Plan is the ordered operation list converging a record group. Deletes are
// issued first, then updates, then creates, so transient duplicate keys never
// exist on the remote side.
type Plan struct {
	Delete []provider.Record
	Update []provider.Record
	Create []provider.Record
}

func (p Plan) IsEmpty() bool {
	return len(p.Delete) == 0 && len(p.Update) == 0 && len(p.Create) == 0
}

type Results struct {
	Created  []provider.Record
	Updated  []provider.Record
	Deleted  []provider.Record
	Failures []OperationResult
}

type OperationResult struct {
	Record provider.Record
	Op     string
	Error  string
}

// ConflictError means a record group exists with different values and
// overwrite permission was not given. No operations are issued.
type ConflictError struct {
	Prefix *string
	Type   provider.RecordType
}

func (e *ConflictError) Error() string {
	name := "@"
	if e.Prefix != nil {
		name = *e.Prefix
	}
	return fmt.Sprintf("record group %s/%s already exists with different values; set overwrite to replace it", name, e.Type)
}

// RecordSet is the read surface of a record group. TTL is the minimum
// observed TTL; TTLs lists the full set when the group's records disagree.
type RecordSet struct {
	Record string
	Type   provider.RecordType
	TTL    int
	TTLs   []int
	Values []string
}

// Summarize aggregates the candidates of one group for read-only queries.
// Returns nil when the group has no records.
func Summarize(recordName string, t provider.RecordType, candidates []provider.Record) *RecordSet {
	if len(candidates) == 0 {
		return nil
	}
	seen := make(map[int]bool)
	set := &RecordSet{Record: recordName, Type: t, TTL: candidates[0].TTL}
	for _, r := range candidates {
		if r.TTL < set.TTL {
			set.TTL = r.TTL
		}
		seen[r.TTL] = true
		set.Values = append(set.Values, Value{Priority: r.Priority, Target: r.Target}.String())
	}
	if len(seen) > 1 {
		for ttl := range seen {
			set.TTLs = append(set.TTLs, ttl)
		}
		sort.Ints(set.TTLs)
	}
	return set
}
