// Package source loads the declared desired record state consumed by watch
// mode and the sync command.
package source

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/dnstools/hosttech-dns-sync/provider"
	"github.com/dnstools/hosttech-dns-sync/reconcile"
)

const defaultTTL = 3600

// File is a desired-state document: one zone and the record groups it should
// converge to.
type File struct {
	Zone    string       `yaml:"zone"`
	Records []RecordSpec `yaml:"records"`
}

// RecordSpec is one declared record group. Record is the fully-qualified
// name; values follow the "priority target" convention for MX/PTR.
type RecordSpec struct {
	Record    string   `yaml:"record"`
	Type      string   `yaml:"type"`
	TTL       int      `yaml:"ttl"`
	Values    []string `yaml:"values"`
	State     string   `yaml:"state"`
	Overwrite bool     `yaml:"overwrite"`
}

func Load(path string) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var file File
	if err := yaml.NewDecoder(f).Decode(&file); err != nil {
		return nil, fmt.Errorf("parse desired state file %s: %w", path, err)
	}
	if file.Zone == "" {
		return nil, fmt.Errorf("desired state file %s has no zone", path)
	}
	file.Zone = provider.NormalizeName(file.Zone)
	return &file, nil
}

// Desired validates and converts one spec entry into the engine's input.
func (r RecordSpec) Desired(zone string) (reconcile.Desired, reconcile.State, error) {
	state := reconcile.StatePresent
	if r.State != "" {
		var err error
		if state, err = reconcile.ParseState(r.State); err != nil {
			return reconcile.Desired{}, "", err
		}
	}
	t, err := provider.ParseRecordType(r.Type)
	if err != nil {
		return reconcile.Desired{}, "", err
	}
	prefix, err := provider.SplitRecordName(r.Record, zone)
	if err != nil {
		return reconcile.Desired{}, "", err
	}
	ttl := r.TTL
	if ttl == 0 {
		ttl = defaultTTL
	}
	var values []reconcile.Value
	for _, raw := range r.Values {
		v, err := reconcile.ParseValue(t, raw)
		if err != nil {
			return reconcile.Desired{}, "", err
		}
		values = append(values, v)
	}
	if len(values) == 0 {
		return reconcile.Desired{}, "", &provider.PreconditionError{Message: fmt.Sprintf("record %s has no values", r.Record)}
	}
	return reconcile.NewDesired(prefix, t, ttl, values, r.Overwrite), state, nil
}
