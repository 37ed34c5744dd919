// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Strata Contributors

package store

import (
	strataerr "github.com/strata-dev/strata/pkg/errors"
)

// ValidateUpsert enforces the write-path invariants shared by every
// backend. Fail fast, first failure wins: input shape, then model
// governance, then tenancy scope.
func ValidateUpsert(v ModelValidator, req *UpsertRequest) error {
	if req.SourceTable == "" || req.SourceID == "" || req.SourceField == "" {
		return strataerr.New(strataerr.CodeStoreInvalidInput,
			"source_table, source_id, and source_field are required")
	}
	if req.ActorID == "" {
		return strataerr.New(strataerr.CodeStoreInvalidInput, "actor_id is required")
	}
	if !req.ActorType.Valid() {
		return strataerr.New(strataerr.CodeStoreInvalidInput,
			"unknown actor_type", strataerr.FieldActorType(string(req.ActorType)))
	}
	if len(req.Vector) == 0 {
		return strataerr.New(strataerr.CodeStoreInvalidInput, "embedding vector must be non-empty")
	}

	if !v.Validate(req.Model, len(req.Vector)) {
		return strataerr.New(strataerr.CodeStoreModelUnknown,
			"embedding model not registered for this dimension",
			strataerr.FieldModel(req.Model),
			strataerr.FieldDimension(len(req.Vector)),
		)
	}

	return ValidateScope(req.ActorType, req.ClientID)
}

// ValidateScope enforces the tenancy invariant: client_id is required
// for tenant-scoped realms (client, synth) and forbidden for shared
// realms (synth_class, skill_module).
func ValidateScope(actorType ActorType, clientID string) error {
	if actorType.RequiresClient() && clientID == "" {
		return strataerr.New(strataerr.CodeStoreScopeInvalid,
			"client_id is required for this actor_type",
			strataerr.FieldActorType(string(actorType)),
		)
	}
	if !actorType.RequiresClient() && clientID != "" {
		return strataerr.New(strataerr.CodeStoreScopeInvalid,
			"client_id must be absent for this actor_type",
			strataerr.FieldActorType(string(actorType)),
			strataerr.FieldClientID(clientID),
		)
	}
	return nil
}

// ValidateDelete refuses a filterless delete outright; no partial
// deletion ever occurs.
func ValidateDelete(filter DeleteFilter) error {
	if filter.Empty() {
		return strataerr.New(strataerr.CodeStoreDeleteUnscoped,
			"at least one filter is required to delete embeddings")
	}
	if filter.ActorType != "" && !filter.ActorType.Valid() {
		return strataerr.New(strataerr.CodeStoreInvalidInput,
			"unknown actor_type", strataerr.FieldActorType(string(filter.ActorType)))
	}
	return nil
}
