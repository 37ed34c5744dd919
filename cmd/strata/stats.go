// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Strata Contributors

package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/strata-dev/strata/internal/store"
	strataerr "github.com/strata-dev/strata/pkg/errors"
)

func newStatsCmd() *cobra.Command {
	var (
		clientID  string
		actorType string
		actorID   string
	)

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show embedding store statistics",
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := wireApp(viper.GetViper())
			if err != nil {
				return err
			}
			defer func() { _ = app.Close() }()

			stats, err := app.Store.Stats(cmd.Context(), store.StatsFilter{
				ClientID:  clientID,
				ActorType: store.ActorType(actorType),
				ActorID:   actorID,
			})
			if err != nil {
				return err
			}

			out, err := json.MarshalIndent(statsView(stats), "", "  ")
			if err != nil {
				return strataerr.Errorf(strataerr.CodeCLISetupFailure, "encoding stats: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(out))
			return nil
		},
	}

	cmd.Flags().StringVar(&clientID, "client", "", "restrict to one tenant")
	cmd.Flags().StringVar(&actorType, "actor-type", "", "restrict to one actor type")
	cmd.Flags().StringVar(&actorID, "actor-id", "", "restrict to one actor")
	return cmd
}

// statsView shapes Stats for JSON output.
func statsView(s *store.Stats) map[string]any {
	byActor := make(map[string]int64, len(s.ByActorType))
	for at, count := range s.ByActorType {
		byActor[string(at)] = count
	}
	return map[string]any{
		"total_embeddings":         s.Total,
		"embeddings_by_table":      s.BySourceTable,
		"embeddings_by_model":      s.ByModel,
		"embeddings_by_actor_type": byActor,
	}
}
