package reconcile

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/dnstools/hosttech-dns-sync/provider"
)

func intPtr(n int) *int       { return &n }
func strPtr(s string) *string { return &s }

func record(id int, prefix *string, t provider.RecordType, target string, ttl int, priority *int) provider.Record {
	return provider.Record{ID: id, Zone: 7, Type: t, Prefix: prefix, Target: target, TTL: ttl, Priority: priority}
}

func aRecord(id int, target string, ttl int) provider.Record {
	return record(id, nil, provider.TypeA, target, ttl, nil)
}

func values(targets ...string) []Value {
	out := make([]Value, len(targets))
	for i, tgt := range targets {
		out[i] = Value{Target: tgt}
	}
	return out
}

func TestDiff(t *testing.T) {
	tests := []struct {
		name       string
		candidates []provider.Record
		desired    Desired
		state      State
		want       Plan
		wantErr    bool
	}{
		{
			name: "present converged is a no-op",
			candidates: []provider.Record{
				aRecord(1, "1.1.1.1", 3600),
				aRecord(2, "2.2.2.2", 3600),
			},
			desired: NewDesired(nil, provider.TypeA, 3600, values("2.2.2.2", "1.1.1.1"), false),
			state:   StatePresent,
			want:    Plan{},
		},
		{
			name:       "present mismatch without overwrite conflicts",
			candidates: []provider.Record{aRecord(1, "1.1.1.1", 7200)},
			desired:    NewDesired(nil, provider.TypeA, 3600, values("1.1.1.1"), false),
			state:      StatePresent,
			wantErr:    true,
		},
		{
			name:       "present addition to existing group needs overwrite",
			candidates: []provider.Record{aRecord(1, "1.1.1.1", 3600)},
			desired:    NewDesired(nil, provider.TypeA, 3600, values("1.1.1.1", "2.2.2.2"), false),
			state:      StatePresent,
			wantErr:    true,
		},
		{
			name:       "present overwrite reuses slots",
			candidates: []provider.Record{aRecord(1, "1.1.1.1", 3600)},
			desired:    NewDesired(nil, provider.TypeA, 7200, values("2.2.2.2"), true),
			state:      StatePresent,
			want: Plan{
				Update: []provider.Record{
					{ID: 1, Zone: 7, Type: provider.TypeA, Target: "2.2.2.2", TTL: 7200},
				},
			},
		},
		{
			name: "present overwrite deletes excess records",
			candidates: []provider.Record{
				aRecord(1, "1.1.1.1", 3600),
				aRecord(2, "2.2.2.2", 3600),
				aRecord(3, "3.3.3.3", 3600),
			},
			desired: NewDesired(nil, provider.TypeA, 7200, values("9.9.9.9"), true),
			state:   StatePresent,
			want: Plan{
				Update: []provider.Record{
					{ID: 1, Zone: 7, Type: provider.TypeA, Target: "9.9.9.9", TTL: 7200},
				},
				Delete: []provider.Record{
					aRecord(2, "2.2.2.2", 3600),
					aRecord(3, "3.3.3.3", 3600),
				},
			},
		},
		{
			name:       "bulk excess creates without overwrite",
			candidates: nil,
			desired:    NewDesired(nil, provider.TypeA, 3600, values("1.1.1.1", "2.2.2.2", "3.3.3.3"), false),
			state:      StatePresent,
			want: Plan{
				Create: []provider.Record{
					{Type: provider.TypeA, Target: "1.1.1.1", TTL: 3600},
					{Type: provider.TypeA, Target: "2.2.2.2", TTL: 3600},
					{Type: provider.TypeA, Target: "3.3.3.3", TTL: 3600},
				},
			},
		},
		{
			name: "present partial match only fills the gap",
			candidates: []provider.Record{
				aRecord(1, "1.1.1.1", 3600),
			},
			desired: NewDesired(nil, provider.TypeA, 3600, values("1.1.1.1", "2.2.2.2"), true),
			state:   StatePresent,
			want: Plan{
				Create: []provider.Record{
					{Type: provider.TypeA, Target: "2.2.2.2", TTL: 3600},
				},
			},
		},
		{
			name: "absent exact match deletes all",
			candidates: []provider.Record{
				aRecord(1, "1.1.1.1", 3600),
				aRecord(2, "2.2.2.2", 3600),
			},
			desired: NewDesired(nil, provider.TypeA, 3600, values("1.1.1.1", "2.2.2.2"), false),
			state:   StateAbsent,
			want: Plan{
				Delete: []provider.Record{
					aRecord(1, "1.1.1.1", 3600),
					aRecord(2, "2.2.2.2", 3600),
				},
			},
		},
		{
			name: "absent partial match is a no-op",
			candidates: []provider.Record{
				aRecord(1, "1.1.1.1", 3600),
				aRecord(2, "2.2.2.2", 3600),
			},
			desired: NewDesired(nil, provider.TypeA, 3600, values("1.1.1.1"), false),
			state:   StateAbsent,
			want:    Plan{},
		},
		{
			name: "absent ttl mismatch is a no-op",
			candidates: []provider.Record{
				aRecord(1, "1.1.1.1", 600),
			},
			desired: NewDesired(nil, provider.TypeA, 3600, values("1.1.1.1"), false),
			state:   StateAbsent,
			want:    Plan{},
		},
		{
			name: "priority distinguishes values",
			candidates: []provider.Record{
				record(1, nil, provider.TypeMX, "mx1.example.com", 3600, intPtr(10)),
			},
			desired: Desired{
				Type: provider.TypeMX, TTL: 3600,
				Values:    []Value{{Priority: intPtr(20), Target: "mx1.example.com"}},
				Overwrite: true,
			},
			state: StatePresent,
			want: Plan{
				Update: []provider.Record{
					{ID: 1, Zone: 7, Type: provider.TypeMX, Target: "mx1.example.com", TTL: 3600, Priority: intPtr(20)},
				},
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Diff(tt.candidates, tt.desired, tt.state)
			if tt.wantErr {
				var conflict *ConflictError
				if !errors.As(err, &conflict) {
					t.Fatalf("expected ConflictError, got %v", err)
				}
				if !got.IsEmpty() {
					t.Fatalf("conflict must emit no operations, got %+v", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("Diff: %v", err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("plan mismatch:\ngot  %+v\nwant %+v", got, tt.want)
			}
		})
	}
}

// applyPlan simulates the remote service applying a plan to a record set.
func applyPlan(records []provider.Record, plan Plan) []provider.Record {
	nextID := 1000
	var out []provider.Record
	for _, r := range records {
		deleted := false
		for _, d := range plan.Delete {
			if d.ID == r.ID {
				deleted = true
				break
			}
		}
		if deleted {
			continue
		}
		for _, u := range plan.Update {
			if u.ID == r.ID {
				r = u
				break
			}
		}
		out = append(out, r)
	}
	for _, c := range plan.Create {
		c.ID = nextID
		nextID++
		out = append(out, c)
	}
	return out
}

func TestDiffIdempotent(t *testing.T) {
	tests := []struct {
		name       string
		candidates []provider.Record
		desired    Desired
		state      State
	}{
		{
			name: "present with overwrite",
			candidates: []provider.Record{
				aRecord(1, "1.1.1.1", 3600),
				aRecord(2, "2.2.2.2", 600),
			},
			desired: NewDesired(nil, provider.TypeA, 7200, values("2.2.2.2", "3.3.3.3", "4.4.4.4"), true),
			state:   StatePresent,
		},
		{
			name:       "creation from scratch",
			candidates: nil,
			desired:    NewDesired(nil, provider.TypeA, 3600, values("1.1.1.1"), false),
			state:      StatePresent,
		},
		{
			name: "absent",
			candidates: []provider.Record{
				aRecord(1, "1.1.1.1", 3600),
			},
			desired: NewDesired(nil, provider.TypeA, 3600, values("1.1.1.1"), false),
			state:   StateAbsent,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			plan, err := Diff(tt.candidates, tt.desired, tt.state)
			if err != nil {
				t.Fatalf("Diff: %v", err)
			}
			after := applyPlan(tt.candidates, plan)
			again, err := Diff(after, tt.desired, tt.state)
			if err != nil {
				t.Fatalf("second Diff: %v", err)
			}
			if !again.IsEmpty() {
				t.Fatalf("re-running diff after apply must be empty, got %+v", again)
			}
		})
	}
}

func TestSelect(t *testing.T) {
	records := []provider.Record{
		record(1, nil, provider.TypeA, "1.1.1.1", 3600, nil),
		record(2, strPtr("www"), provider.TypeA, "1.1.1.1", 3600, nil),
		record(3, strPtr("www"), provider.TypeAAAA, "::1", 3600, nil),
		record(4, strPtr("mail"), provider.TypeA, "2.2.2.2", 3600, nil),
	}
	got := Select(records, strPtr("www"), provider.TypeA)
	if len(got) != 1 || got[0].ID != 2 {
		t.Fatalf("unexpected selection: %+v", got)
	}
	apex := Select(records, nil, provider.TypeA)
	if len(apex) != 1 || apex[0].ID != 1 {
		t.Fatalf("unexpected apex selection: %+v", apex)
	}
}

func TestSummarize(t *testing.T) {
	if got := Summarize("www.example.com", provider.TypeA, nil); got != nil {
		t.Fatalf("expected nil for empty group, got %+v", got)
	}

	uniform := Summarize("www.example.com", provider.TypeA, []provider.Record{
		aRecord(1, "1.1.1.1", 3600),
		aRecord(2, "2.2.2.2", 3600),
	})
	if uniform.TTL != 3600 || uniform.TTLs != nil {
		t.Fatalf("uniform ttl group must not report a ttl set: %+v", uniform)
	}
	if !reflect.DeepEqual(uniform.Values, []string{"1.1.1.1", "2.2.2.2"}) {
		t.Fatalf("unexpected values: %+v", uniform.Values)
	}

	mixed := Summarize("example.com", provider.TypeMX, []provider.Record{
		record(1, nil, provider.TypeMX, "mx1.example.com", 7200, intPtr(10)),
		record(2, nil, provider.TypeMX, "mx2.example.com", 3600, intPtr(20)),
	})
	if mixed.TTL != 3600 {
		t.Fatalf("expected minimum ttl 3600, got %d", mixed.TTL)
	}
	if !reflect.DeepEqual(mixed.TTLs, []int{3600, 7200}) {
		t.Fatalf("expected full ttl set, got %v", mixed.TTLs)
	}
	if !reflect.DeepEqual(mixed.Values, []string{"10 mx1.example.com", "20 mx2.example.com"}) {
		t.Fatalf("unexpected values: %+v", mixed.Values)
	}
}

func TestNewDesiredCollapsesDuplicates(t *testing.T) {
	d := NewDesired(nil, provider.TypeA, 3600, values("1.1.1.1", "1.1.1.1", "2.2.2.2"), false)
	if len(d.Values) != 2 {
		t.Fatalf("expected duplicates to collapse, got %+v", d.Values)
	}
}

func TestParseValue(t *testing.T) {
	v, err := ParseValue(provider.TypeMX, "10 mx1.example.com")
	if err != nil {
		t.Fatalf("ParseValue: %v", err)
	}
	if v.Priority == nil || *v.Priority != 10 || v.Target != "mx1.example.com" {
		t.Fatalf("unexpected value: %+v", v)
	}

	if _, err := ParseValue(provider.TypeMX, "mx1.example.com"); err == nil {
		t.Fatal("expected error for MX value without priority")
	}
	if _, err := ParseValue(provider.TypeMX, "x mx1.example.com"); err == nil {
		t.Fatal("expected error for non-numeric priority")
	}

	plain, err := ParseValue(provider.TypeA, "1.1.1.1")
	if err != nil {
		t.Fatalf("ParseValue: %v", err)
	}
	if plain.Priority != nil || plain.Target != "1.1.1.1" {
		t.Fatalf("unexpected value: %+v", plain)
	}
}

type mockProvider struct {
	zone      *provider.Zone
	ops       []string
	nextID    int
	deleteErr error
}

func (m *mockProvider) GetZone(ctx context.Context, search string) (*provider.Zone, error) {
	return m.zone, nil
}

func (m *mockProvider) AddRecord(ctx context.Context, zone string, r provider.Record) (provider.Record, error) {
	m.ops = append(m.ops, "create:"+r.Target)
	m.nextID++
	r.ID = m.nextID
	return r, nil
}

func (m *mockProvider) UpdateRecord(ctx context.Context, r provider.Record) (provider.Record, error) {
	m.ops = append(m.ops, "update:"+r.Target)
	return r, nil
}

func (m *mockProvider) DeleteRecord(ctx context.Context, id int) (bool, error) {
	if m.deleteErr != nil {
		m.ops = append(m.ops, "delete-failed")
		return false, m.deleteErr
	}
	m.ops = append(m.ops, "delete")
	return true, nil
}

func testZone(records ...provider.Record) *provider.Zone {
	return &provider.Zone{ID: 7, Name: "example.com", Records: records}
}

func TestEngineExecutionOrder(t *testing.T) {
	// Three stale candidates against one desired value: two deletes and
	// one update, issued deletes first.
	mock := &mockProvider{zone: testZone(
		aRecord(1, "1.1.1.1", 600),
		aRecord(2, "2.2.2.2", 600),
		aRecord(3, "3.3.3.3", 600),
	)}
	engine := NewEngine(mock, nil, nil, false)
	desired := NewDesired(nil, provider.TypeA, 3600, values("9.9.9.9"), true)

	results, err := engine.Reconcile(context.Background(), mock.zone, desired, StatePresent)
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	want := []string{"delete", "delete", "update:9.9.9.9"}
	if !reflect.DeepEqual(mock.ops, want) {
		t.Fatalf("operation order mismatch: got %v, want %v", mock.ops, want)
	}
	if len(results.Deleted) != 2 || len(results.Updated) != 1 || len(results.Created) != 0 {
		t.Fatalf("unexpected results: %+v", results)
	}
}

func TestEngineDryRun(t *testing.T) {
	mock := &mockProvider{zone: testZone()}
	engine := NewEngine(mock, nil, nil, true)
	desired := NewDesired(nil, provider.TypeA, 3600, values("1.1.1.1"), false)

	results, err := engine.Reconcile(context.Background(), mock.zone, desired, StatePresent)
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if len(mock.ops) != 0 {
		t.Fatalf("dry run must not issue operations, got %v", mock.ops)
	}
	if len(results.Created) != 1 {
		t.Fatalf("dry run must still report the plan, got %+v", results)
	}
}

func TestEngineCollectsFailures(t *testing.T) {
	mock := &mockProvider{
		zone:      testZone(aRecord(1, "1.1.1.1", 3600)),
		deleteErr: errors.New("boom"),
	}
	engine := NewEngine(mock, nil, nil, false)
	desired := NewDesired(nil, provider.TypeA, 3600, values("1.1.1.1"), false)

	results, err := engine.Reconcile(context.Background(), mock.zone, desired, StateAbsent)
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if len(results.Failures) != 1 || results.Failures[0].Op != "delete" {
		t.Fatalf("expected one delete failure, got %+v", results)
	}
}
