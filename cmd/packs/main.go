// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package main provides the packs CLI for the reward inventory.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/relabs-tech/gesture_engine/internal/config"
	"github.com/relabs-tech/gesture_engine/internal/inventory"
)

const defaultHistoryLimit = 20

var (
	configPath string
	dbPath     string

	historyLimit int
)

func main() {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "packs",
		Short:         "Inspect and adjust the capsule pack inventory",
		SilenceUsage:  true,
		SilenceErrors: false,
		Args:          cobra.NoArgs,
		RunE:          runCountCmd,
	}

	rootCmd.PersistentFlags().StringVar(&configPath, "config", "./gesture_config.txt", "path to configuration file")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "inventory database, overrides INVENTORY_DB")

	rootCmd.AddCommand(newCountCmd())
	rootCmd.AddCommand(newHistoryCmd())
	rootCmd.AddCommand(newGrantCmd())
	rootCmd.AddCommand(newConsumeCmd())

	return rootCmd
}

// openStore resolves the database path from --db or the config file.
func openStore() (*inventory.Store, error) {
	path := dbPath
	if path == "" {
		cfg, err := config.Load(configPath)
		if err != nil {
			return nil, err
		}
		path = cfg.InventoryDB
	}
	return inventory.Open(path)
}

func newCountCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "count",
		Short: "Print the number of packs owned",
		Args:  cobra.NoArgs,
		RunE:  runCountCmd,
	}
}

func runCountCmd(cmd *cobra.Command, _ []string) error {
	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	n, err := store.Count(cmd.Context())
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), n)
	return nil
}

func newHistoryCmd() *cobra.Command {
	historyCmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent inventory changes, newest first",
		Args:  cobra.NoArgs,
		RunE:  runHistoryCmd,
	}
	historyCmd.Flags().IntVar(&historyLimit, "limit", defaultHistoryLimit, "number of entries to show")
	return historyCmd
}

func runHistoryCmd(cmd *cobra.Command, _ []string) error {
	if historyLimit <= 0 {
		return fmt.Errorf("--limit must be positive")
	}
	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	entries, err := store.History(cmd.Context(), historyLimit)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No inventory changes yet.")
		return nil
	}
	return printHistory(cmd.OutOrStdout(), entries)
}

func printHistory(w io.Writer, entries []inventory.Entry) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "WHEN\tDELTA\tREASON\tID")
	for _, e := range entries {
		fmt.Fprintf(tw, "%s\t%+d\t%s\t%s\n", e.CreatedAt.Local().Format(time.DateTime), e.Delta, e.Reason, e.ID)
	}
	return tw.Flush()
}

func newGrantCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "grant <n>",
		Short: "Add packs outside of a capsule opening",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return adjust(cmd, args[0], func(ctx context.Context, s *inventory.Store, n int) (int, error) {
				return s.Grant(ctx, n)
			})
		},
	}
}

func newConsumeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "consume <n>",
		Short: "Spend packs",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return adjust(cmd, args[0], func(ctx context.Context, s *inventory.Store, n int) (int, error) {
				return s.Consume(ctx, n)
			})
		},
	}
}

func adjust(cmd *cobra.Command, arg string, fn func(context.Context, *inventory.Store, int) (int, error)) error {
	n, err := strconv.Atoi(arg)
	if err != nil || n <= 0 {
		return fmt.Errorf("expected a positive count, got %q", arg)
	}
	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	total, err := fn(cmd.Context(), store, n)
	if errors.Is(err, inventory.ErrInsufficient) {
		return fmt.Errorf("not enough packs: %w", err)
	}
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "packs: %d\n", total)
	return nil
}
