// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package export

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/luxfi/log"

	"github.com/luxfi/surety/vms/suretyvm/cmd/flags"
	"github.com/luxfi/surety/vms/suretyvm/snapshot"
)

const OutputKey = "output"

func Command() *cobra.Command {
	c := &cobra.Command{
		Use:   "export",
		Short: "Writes the node database to a compressed snapshot file",
		RunE:  exportFunc,
	}
	flags.AddFlags(c.Flags())
	c.Flags().StringP(OutputKey, "o", "surety.snapshot", "Snapshot file to create")
	return c
}

func exportFunc(c *cobra.Command, _ []string) error {
	cfg, err := flags.Load(c.Flags())
	if err != nil {
		return err
	}
	output, err := c.Flags().GetString(OutputKey)
	if err != nil {
		return err
	}

	logger := log.NewLogger("surety")
	snap, err := snapshot.New(snapshot.DefaultMaxSize, logger)
	if err != nil {
		return err
	}

	db, err := flags.OpenDB(cfg.DataDir)
	if err != nil {
		return err
	}
	defer db.Close()

	f, err := os.OpenFile(output, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		return fmt.Errorf("create snapshot file: %w", err)
	}
	count, err := snap.Export(c.Context(), db, f)
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		_ = os.Remove(output)
		return err
	}

	logger.Info("snapshot exported", "path", output, "records", count)
	return nil
}
