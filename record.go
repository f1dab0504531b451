package main

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dnstools/hosttech-dns-sync/provider"
	"github.com/dnstools/hosttech-dns-sync/reconcile"
)

type recordFlags struct {
	zone      string
	record    string
	rtype     string
	ttl       int
	values    []string
	overwrite bool
}

func (f *recordFlags) register(cmd *cobra.Command, withValues bool) {
	cmd.Flags().StringVar(&f.zone, "zone", "", "DNS zone to modify")
	cmd.Flags().StringVar(&f.record, "record", "", "fully-qualified record name")
	cmd.Flags().StringVar(&f.rtype, "type", "", "record type (A, AAAA, CNAME, MX, TXT, PTR, SRV, SPF, NS, CAA)")
	cmd.MarkFlagRequired("zone")
	cmd.MarkFlagRequired("record")
	cmd.MarkFlagRequired("type")
	if withValues {
		cmd.Flags().IntVar(&f.ttl, "ttl", 3600, "record TTL in seconds")
		cmd.Flags().StringArrayVar(&f.values, "value", nil, "record value, repeatable (\"priority target\" for MX/PTR)")
		cmd.MarkFlagRequired("value")
	}
}

// desired validates the flags and builds the engine input. All validation
// happens before any network call.
func (f *recordFlags) desired() (zone string, d reconcile.Desired, err error) {
	zone = provider.NormalizeName(f.zone)
	t, err := provider.ParseRecordType(f.rtype)
	if err != nil {
		return "", reconcile.Desired{}, err
	}
	prefix, err := provider.SplitRecordName(f.record, zone)
	if err != nil {
		return "", reconcile.Desired{}, err
	}
	var values []reconcile.Value
	for _, raw := range f.values {
		v, err := reconcile.ParseValue(t, raw)
		if err != nil {
			return "", reconcile.Desired{}, err
		}
		values = append(values, v)
	}
	return zone, reconcile.NewDesired(prefix, t, f.ttl, values, f.overwrite), nil
}

func newSetCommand() *cobra.Command {
	var flags recordFlags
	cmd := &cobra.Command{
		Use:   "set",
		Short: "Converge a record group to the given values",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp(cmd)
			if err != nil {
				return err
			}
			return app.converge(cmd.Context(), &flags, reconcile.StatePresent)
		},
	}
	flags.register(cmd, true)
	cmd.Flags().BoolVar(&flags.overwrite, "overwrite", false, "replace existing records with different values")
	return cmd
}

func newUnsetCommand() *cobra.Command {
	var flags recordFlags
	cmd := &cobra.Command{
		Use:   "unset",
		Short: "Delete a record group, but only when it matches the given values exactly",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp(cmd)
			if err != nil {
				return err
			}
			return app.converge(cmd.Context(), &flags, reconcile.StateAbsent)
		},
	}
	flags.register(cmd, true)
	return cmd
}

func newGetCommand() *cobra.Command {
	var flags recordFlags
	cmd := &cobra.Command{
		Use:   "get",
		Short: "Show the current state of a record group",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp(cmd)
			if err != nil {
				return err
			}
			return app.get(cmd.Context(), &flags)
		},
	}
	flags.register(cmd, false)
	return cmd
}

func (a *app) converge(ctx context.Context, flags *recordFlags, state reconcile.State) error {
	zoneName, desired, err := flags.desired()
	if err != nil {
		return err
	}
	zone, err := a.client.GetZone(ctx, zoneName)
	if err != nil {
		return err
	}
	if zone == nil {
		return fmt.Errorf("zone %s not found", zoneName)
	}
	jrnl, err := a.openJournal()
	if err != nil {
		return err
	}
	defer jrnl.Close()

	engine := reconcile.NewEngine(a.client, jrnl, a.metrics, a.cfg.DryRun)
	results, err := engine.Reconcile(ctx, zone, desired, state)
	if err != nil {
		return err
	}
	slog.Info("reconciliation finished",
		"record", provider.JoinRecordName(desired.Prefix, zone.Name),
		"type", desired.Type,
		"created", len(results.Created),
		"updated", len(results.Updated),
		"deleted", len(results.Deleted),
		"failed", len(results.Failures))
	if len(results.Failures) > 0 {
		return fmt.Errorf("%d operations failed", len(results.Failures))
	}
	return nil
}

func (a *app) get(ctx context.Context, flags *recordFlags) error {
	zoneName := provider.NormalizeName(flags.zone)
	t, err := provider.ParseRecordType(flags.rtype)
	if err != nil {
		return err
	}
	prefix, err := provider.SplitRecordName(flags.record, zoneName)
	if err != nil {
		return err
	}
	zone, err := a.client.GetZone(ctx, zoneName)
	if err != nil {
		return err
	}
	if zone == nil {
		return fmt.Errorf("zone %s not found", zoneName)
	}
	recordName := provider.JoinRecordName(prefix, zone.Name)
	set := reconcile.Summarize(recordName, t, reconcile.Select(zone.Records, prefix, t))
	if set == nil {
		fmt.Printf("%s %s: no records\n", recordName, t)
		return nil
	}
	fmt.Printf("record: %s\n", set.Record)
	fmt.Printf("type:   %s\n", set.Type)
	fmt.Printf("ttl:    %d (%s)\n", set.TTL, provider.FormatTTL(set.TTL))
	if len(set.TTLs) > 0 {
		fmt.Printf("ttls:   %s\n", joinInts(set.TTLs))
	}
	for _, v := range set.Values {
		fmt.Printf("value:  %s\n", v)
	}
	return nil
}

func joinInts(ns []int) string {
	parts := make([]string, len(ns))
	for i, n := range ns {
		parts[i] = fmt.Sprintf("%d", n)
	}
	return strings.Join(parts, ", ")
}
