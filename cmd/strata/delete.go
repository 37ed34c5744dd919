// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Strata Contributors

package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/strata-dev/strata/internal/store"
)

func newDeleteCmd() *cobra.Command {
	var (
		sourceTable string
		sourceField string
		actorType   string
		actorID     string
		clientID    string
		model       string
	)

	cmd := &cobra.Command{
		Use:   "delete",
		Short: "Delete embeddings matching the given filters",
		Long:  "Delete embeddings matching the given filters. At least one filter is required; an unscoped delete is refused.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := wireApp(viper.GetViper())
			if err != nil {
				return err
			}
			defer func() { _ = app.Close() }()

			deleted, err := app.Store.Delete(cmd.Context(), store.DeleteFilter{
				SourceTable: sourceTable,
				SourceField: sourceField,
				ActorType:   store.ActorType(actorType),
				ActorID:     actorID,
				ClientID:    clientID,
				Model:       model,
			})
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "deleted %d embedding(s)\n", deleted)
			return nil
		},
	}

	cmd.Flags().StringVar(&sourceTable, "table", "", "source table filter")
	cmd.Flags().StringVar(&sourceField, "field", "", "source field filter")
	cmd.Flags().StringVar(&actorType, "actor-type", "", "actor type filter")
	cmd.Flags().StringVar(&actorID, "actor-id", "", "actor ID filter")
	cmd.Flags().StringVar(&clientID, "client", "", "tenant filter")
	cmd.Flags().StringVar(&model, "model", "", "embedding model filter")
	return cmd
}
