// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/luxfi/ids"

	"github.com/luxfi/surety/vms/suretyvm/api"
	"github.com/luxfi/surety/vms/suretyvm/cmd/flags"
)

const (
	SubjectKey = "subject"
	TTLKey     = "ttl"
)

var errMissingSubject = errors.New("--subject is required")

func Command() *cobra.Command {
	c := &cobra.Command{
		Use:   "token",
		Short: "Issues a bearer token for an address using the configured JWT secret",
		RunE:  tokenFunc,
	}
	flags.AddFlags(c.Flags())
	c.Flags().String(SubjectKey, "", "Address the token authenticates (required)")
	c.Flags().Duration(TTLKey, 24*time.Hour, "Token lifetime; 0 issues a token without expiry")
	return c
}

func tokenFunc(c *cobra.Command, _ []string) error {
	cfg, err := flags.Load(c.Flags())
	if err != nil {
		return err
	}
	subjectStr, err := c.Flags().GetString(SubjectKey)
	if err != nil {
		return err
	}
	if subjectStr == "" {
		return errMissingSubject
	}
	subject, err := ids.ShortFromString(subjectStr)
	if err != nil {
		return fmt.Errorf("parse subject: %w", err)
	}
	ttl, err := c.Flags().GetDuration(TTLKey)
	if err != nil {
		return err
	}

	auth, err := api.NewAuthenticator(cfg.JWTSecret)
	if err != nil {
		return err
	}
	token, err := auth.IssueToken(subject, ttl)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(c.OutOrStdout(), token)
	return err
}
