// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package restore

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/luxfi/log"

	"github.com/luxfi/surety/vms/suretyvm/cmd/flags"
	"github.com/luxfi/surety/vms/suretyvm/snapshot"
)

const InputKey = "input"

func Command() *cobra.Command {
	c := &cobra.Command{
		Use:   "import",
		Short: "Restores a snapshot file into an empty node database",
		RunE:  importFunc,
	}
	flags.AddFlags(c.Flags())
	c.Flags().StringP(InputKey, "i", "surety.snapshot", "Snapshot file to restore")
	return c
}

func importFunc(c *cobra.Command, _ []string) error {
	cfg, err := flags.Load(c.Flags())
	if err != nil {
		return err
	}
	input, err := c.Flags().GetString(InputKey)
	if err != nil {
		return err
	}

	logger := log.NewLogger("surety")
	snap, err := snapshot.New(snapshot.DefaultMaxSize, logger)
	if err != nil {
		return err
	}

	f, err := os.Open(input)
	if err != nil {
		return fmt.Errorf("open snapshot file: %w", err)
	}
	defer f.Close()

	db, err := flags.OpenDB(cfg.DataDir)
	if err != nil {
		return err
	}
	defer db.Close()

	count, err := snap.Import(c.Context(), f, db)
	if err != nil {
		return err
	}

	logger.Info("snapshot imported", "path", input, "records", count)
	return nil
}
