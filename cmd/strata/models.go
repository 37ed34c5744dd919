// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Strata Contributors

package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/strata-dev/strata/internal/config"
	"github.com/strata-dev/strata/internal/registry"
	strataerr "github.com/strata-dev/strata/pkg/errors"
)

func newModelsCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "models",
		Short: "List supported embedding models and the active selection",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.FromViper(viper.GetViper())
			if err != nil {
				return err
			}
			reg := registry.Builtin()
			profile := reg.Profile(cfg)

			if asJSON {
				out, err := json.MarshalIndent(profile, "", "  ")
				if err != nil {
					return strataerr.Errorf(strataerr.CodeCLISetupFailure, "encoding profile: %w", err)
				}
				fmt.Fprintln(cmd.OutOrStdout(), string(out))
				return nil
			}

			fmt.Fprintf(cmd.OutOrStdout(), "environment: %s\nprovider:    %s\nactive:      %s (dim %d)\n\n",
				profile.Environment, profile.Provider,
				profile.CurrentModel.Name, profile.CurrentModel.Dimension)
			for _, m := range profile.Supported {
				marker := " "
				if m.Default {
					marker = "*"
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s %-28s %-13s dim %d\n", marker, m.Name, m.Provider, m.Dimension)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "emit the profile as JSON")
	return cmd
}
