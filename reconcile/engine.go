// Package reconcile computes and applies the minimal operation list that
// converges a zone's records toward a desired record group state.
package reconcile

import (
	"context"
	"log/slog"
	"time"

	"github.com/dnstools/hosttech-dns-sync/journal"
	"github.com/dnstools/hosttech-dns-sync/metrics"
	"github.com/dnstools/hosttech-dns-sync/provider"
)

// Select restricts a zone's records to the group matching (prefix, type).
// Diff assumes its candidates were filtered this way.
func Select(records []provider.Record, prefix *string, t provider.RecordType) []provider.Record {
	var out []provider.Record
	for _, r := range records {
		if r.Type != t {
			continue
		}
		if (r.Prefix == nil) != (prefix == nil) {
			continue
		}
		if r.Prefix != nil && *r.Prefix != *prefix {
			continue
		}
		out = append(out, r)
	}
	return out
}

// Diff computes the plan converging candidates toward desired. It is pure:
// no I/O, no mutation of its inputs. Its only failure mode is the overwrite
// policy conflict.
//
// Matching keeps a multiset of the desired (priority, target) pairs. A
// candidate with the right TTL consumes a matching pair; every other
// candidate must be replaced. Under present-with-overwrite, replaced
// candidates are paired with leftover desired pairs and rewritten in place,
// which keeps the operation count minimal versus delete plus create.
func Diff(candidates []provider.Record, desired Desired, state State) (Plan, error) {
	pool := append([]Value(nil), desired.Values...)
	var toReplace []provider.Record
	for _, cand := range candidates {
		if cand.TTL == desired.TTL {
			if i := indexOfValue(pool, cand.Priority, cand.Target); i >= 0 {
				pool = append(pool[:i], pool[i+1:]...)
				continue
			}
		}
		toReplace = append(toReplace, cand)
	}
	mismatch := len(toReplace) > 0 || len(pool) > 0

	var plan Plan
	switch state {
	case StatePresent:
		if !mismatch {
			return plan, nil
		}
		// A conflict needs existing records; filling an empty group is
		// always allowed.
		if len(candidates) > 0 && !desired.Overwrite {
			return plan, &ConflictError{Prefix: desired.Prefix, Type: desired.Type}
		}
		for len(toReplace) > 0 && len(pool) > 0 {
			cand := toReplace[0]
			toReplace = toReplace[1:]
			val := pool[0]
			pool = pool[1:]
			rec := desiredRecord(desired, val)
			rec.ID = cand.ID
			rec.Zone = cand.Zone
			plan.Update = append(plan.Update, rec)
		}
		plan.Delete = append(plan.Delete, toReplace...)
		for _, val := range pool {
			plan.Create = append(plan.Create, desiredRecord(desired, val))
		}
	case StateAbsent:
		// Refuse to delete a group that does not exactly match what was
		// asked to be removed.
		if mismatch {
			return plan, nil
		}
		plan.Delete = append(plan.Delete, candidates...)
	}
	return plan, nil
}

func desiredRecord(desired Desired, val Value) provider.Record {
	return provider.Record{
		Type:     desired.Type,
		Prefix:   desired.Prefix,
		Target:   val.Target,
		TTL:      desired.TTL,
		Priority: val.Priority,
	}
}

func indexOfValue(values []Value, priority *int, target string) int {
	for i, v := range values {
		if v.equal(priority, target) {
			return i
		}
	}
	return -1
}

// Engine wires the pure diff to a provider, the run journal and metrics.
type Engine struct {
	provider provider.Provider
	journal  *journal.Journal
	metrics  *metrics.Metrics
	dryRun   bool
}

func NewEngine(p provider.Provider, j *journal.Journal, m *metrics.Metrics, dryRun bool) *Engine {
	return &Engine{provider: p, journal: j, metrics: m, dryRun: dryRun}
}

// Reconcile converges one record group of the given zone. The zone snapshot
// must be freshly read; there is no optimistic-concurrency detection, so a
// failed run is simply re-run and diffed again.
func (e *Engine) Reconcile(ctx context.Context, zone *provider.Zone, desired Desired, state State) (Results, error) {
	candidates := Select(zone.Records, desired.Prefix, desired.Type)
	plan, err := Diff(candidates, desired, state)
	if err != nil {
		return Results{}, err
	}
	recordName := provider.JoinRecordName(desired.Prefix, zone.Name)
	if plan.IsEmpty() {
		slog.Debug("record group already converged", "record", recordName, "type", desired.Type)
		return Results{}, nil
	}
	results := e.executePlan(ctx, zone.Name, plan)
	e.appendJournal(ctx, zone.Name, recordName, desired.Type, state, results)
	return results, nil
}

// executePlan issues deletes first, then updates, then creates. Operations
// are not atomic as a group; failures are collected and the rest of the plan
// still runs, leaving a state that the next run converges from.
func (e *Engine) executePlan(ctx context.Context, zoneName string, plan Plan) Results {
	var results Results
	if e.dryRun {
		slog.Info("dry run, skipping plan execution",
			"delete", len(plan.Delete), "update", len(plan.Update), "create", len(plan.Create))
		results.Deleted = append(results.Deleted, plan.Delete...)
		results.Updated = append(results.Updated, plan.Update...)
		results.Created = append(results.Created, plan.Create...)
		return results
	}

	for _, record := range plan.Delete {
		slog.Debug("deleting record", "id", record.ID, "type", record.Type, "target", record.Target)
		_, err := e.provider.DeleteRecord(ctx, record.ID)
		e.metrics.IncReconcileOp("delete", err == nil)
		if err != nil {
			slog.Error("failed to delete record", "id", record.ID, "error", err)
			results.Failures = append(results.Failures, OperationResult{Record: record, Op: "delete", Error: err.Error()})
			continue
		}
		results.Deleted = append(results.Deleted, record)
	}

	for _, record := range plan.Update {
		slog.Debug("updating record", "id", record.ID, "type", record.Type, "target", record.Target)
		updated, err := e.provider.UpdateRecord(ctx, record)
		e.metrics.IncReconcileOp("update", err == nil)
		if err != nil {
			slog.Error("failed to update record", "id", record.ID, "error", err)
			results.Failures = append(results.Failures, OperationResult{Record: record, Op: "update", Error: err.Error()})
			continue
		}
		results.Updated = append(results.Updated, updated)
	}

	for _, record := range plan.Create {
		slog.Debug("creating record", "type", record.Type, "target", record.Target)
		created, err := e.provider.AddRecord(ctx, zoneName, record)
		e.metrics.IncReconcileOp("create", err == nil)
		if err != nil {
			slog.Error("failed to create record", "type", record.Type, "target", record.Target, "error", err)
			results.Failures = append(results.Failures, OperationResult{Record: record, Op: "create", Error: err.Error()})
			continue
		}
		results.Created = append(results.Created, created)
	}

	return results
}

func (e *Engine) appendJournal(ctx context.Context, zoneName, recordName string, t provider.RecordType, state State, results Results) {
	if e.journal == nil || e.dryRun {
		return
	}
	entry := journal.Entry{
		Zone:    zoneName,
		Record:  recordName,
		Type:    string(t),
		Action:  string(state),
		At:      time.Now().Unix(),
		Created: len(results.Created),
		Updated: len(results.Updated),
		Deleted: len(results.Deleted),
		Failed:  len(results.Failures),
	}
	if err := e.journal.Append(ctx, entry); err != nil {
		slog.Warn("failed to append journal entry", "error", err)
	}
}
