package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

func newZonesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "zones",
		Short: "Show the number of zones of the authenticated user",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp(cmd)
			if err != nil {
				return err
			}
			count, err := app.client.CountZones(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Println(count)
			return nil
		},
	}
}

func newChangeIPCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "change-ip OLD NEW",
		Short: "Replace an IP address in all records of the user",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp(cmd)
			if err != nil {
				return err
			}
			count, err := app.client.ChangeIP(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			fmt.Printf("changed %d records\n", count)
			return nil
		},
	}
}

func newChangeTTLCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "change-ttl IP TTL",
		Short: "Replace the TTL on all records carrying the given IP",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp(cmd)
			if err != nil {
				return err
			}
			ttl, err := strconv.Atoi(args[1])
			if err != nil || ttl <= 0 {
				return fmt.Errorf("ttl must be a positive integer, got %q", args[1])
			}
			count, err := app.client.ChangeTTL(cmd.Context(), args[0], ttl)
			if err != nil {
				return err
			}
			fmt.Printf("changed %d records\n", count)
			return nil
		},
	}
}
