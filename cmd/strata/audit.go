// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Strata Contributors

package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	strataerr "github.com/strata-dev/strata/pkg/errors"
)

func newAuditCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "audit",
		Short: "Check stored embeddings for drift against the model registry",
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := wireApp(viper.GetViper())
			if err != nil {
				return err
			}
			defer func() { _ = app.Close() }()

			report, err := app.Auditor.Audit(cmd.Context())
			if err != nil {
				return err
			}

			out, err := json.MarshalIndent(report, "", "  ")
			if err != nil {
				return strataerr.Errorf(strataerr.CodeCLISetupFailure, "encoding report: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(out))

			if !report.Valid {
				return strataerr.Errorf(strataerr.CodeAuditQueryFailure,
					"consistency audit found %d error(s)", len(report.Errors))
			}
			return nil
		},
	}
}
