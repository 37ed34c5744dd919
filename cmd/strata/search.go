// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Strata Contributors

package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/strata-dev/strata/internal/store"
	strataerr "github.com/strata-dev/strata/pkg/errors"
)

func newSearchCmd() *cobra.Command {
	var (
		model       string
		vectorFile  string
		actorTypes  []string
		actorIDs    []string
		clientID    string
		sourceTable string
		limit       int
		threshold   float64
	)

	cmd := &cobra.Command{
		Use:   "search",
		Short: "Run a hierarchical similarity search with a query vector from a JSON file",
		RunE: func(cmd *cobra.Command, _ []string) error {
			vector, err := readVector(vectorFile)
			if err != nil {
				return err
			}

			app, err := wireApp(viper.GetViper())
			if err != nil {
				return err
			}
			defer func() { _ = app.Close() }()

			if model == "" {
				model = app.Registry.Resolve(app.Config).Name
			}

			types := make([]store.ActorType, 0, len(actorTypes))
			for _, at := range actorTypes {
				types = append(types, store.ActorType(at))
			}

			results, err := app.Engine.Search(cmd.Context(), store.SearchQuery{
				Vector:      vector,
				Model:       model,
				ActorTypes:  types,
				ActorIDs:    actorIDs,
				ClientID:    clientID,
				SourceTable: sourceTable,
				Limit:       limit,
				Threshold:   threshold,
			})
			if err != nil {
				return err
			}

			if len(results) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "no matches")
				return nil
			}
			for _, r := range results {
				fmt.Fprintf(cmd.OutOrStdout(), "%d  %.4f  %-12s %-20s %s.%s (%s)\n",
					r.Priority, r.Similarity,
					r.Record.ActorType, r.Record.ActorID,
					r.Record.SourceTable, r.Record.SourceField, r.Record.SourceID)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&model, "model", "", "embedding model of the query vector (default: active model)")
	cmd.Flags().StringVar(&vectorFile, "vector-file", "", "path to a JSON array of floats (required)")
	cmd.Flags().StringSliceVar(&actorTypes, "actor-type", nil, "restrict to these actor types")
	cmd.Flags().StringSliceVar(&actorIDs, "actor-id", nil, "restrict to these actor IDs")
	cmd.Flags().StringVar(&clientID, "client", "", "restrict to one tenant")
	cmd.Flags().StringVar(&sourceTable, "table", "", "restrict to one source table")
	cmd.Flags().IntVar(&limit, "limit", 0, "maximum results (default 10)")
	cmd.Flags().Float64Var(&threshold, "threshold", 0, "minimum similarity (default 0.7)")
	_ = cmd.MarkFlagRequired("vector-file")
	return cmd
}

// readVector loads a query vector from a JSON array file.
func readVector(path string) ([]float32, error) {
	if path == "" {
		return nil, strataerr.New(strataerr.CodeCLIInputInvalid, "a query vector file is required")
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, strataerr.Errorf(strataerr.CodeCLIInputInvalid, "reading vector file: %w", err)
	}
	var vector []float32
	if err := json.Unmarshal(raw, &vector); err != nil {
		return nil, strataerr.Errorf(strataerr.CodeCLIInputInvalid, "parsing vector file: %w", err)
	}
	return vector, nil
}
