// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/luxfi/surety/vms/suretyvm"
	"github.com/luxfi/surety/vms/suretyvm/cmd/export"
	"github.com/luxfi/surety/vms/suretyvm/cmd/restore"
	"github.com/luxfi/surety/vms/suretyvm/cmd/run"
	"github.com/luxfi/surety/vms/suretyvm/cmd/token"
)

func init() {
	cobra.EnablePrefixMatching = true
}

func main() {
	cmd := &cobra.Command{
		Use:     "suretyvm",
		Short:   "Runs and maintains a Surety flight-delay insurance node",
		Version: suretyvm.Version.String(),
	}
	cmd.AddCommand(
		run.Command(),
		export.Command(),
		restore.Command(),
		token.Command(),
	)
	cmd.SilenceUsage = true

	if err := cmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "command failed %v\n", err)
		os.Exit(1)
	}
}
