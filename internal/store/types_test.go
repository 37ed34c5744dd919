// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Strata Contributors

package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestActorTypeValid(t *testing.T) {
	assert.True(t, ActorClient.Valid())
	assert.True(t, ActorSynth.Valid())
	assert.True(t, ActorSynthClass.Valid())
	assert.True(t, ActorSkillModule.Valid())

	assert.False(t, ActorType("").Valid())
	assert.False(t, ActorType("human").Valid())
	assert.False(t, ActorType("CLIENT").Valid())
}

func TestActorTypePriority(t *testing.T) {
	// The search order contract: client outranks synth outranks
	// synth_class outranks skill_module.
	assert.Equal(t, 1, ActorClient.Priority())
	assert.Equal(t, 2, ActorSynth.Priority())
	assert.Equal(t, 3, ActorSynthClass.Priority())
	assert.Equal(t, 4, ActorSkillModule.Priority())

	// Unknown types sort after every real realm.
	assert.Equal(t, 5, ActorType("other").Priority())
}

func TestActorTypeRequiresClient(t *testing.T) {
	assert.True(t, ActorClient.RequiresClient())
	assert.True(t, ActorSynth.RequiresClient())
	assert.False(t, ActorSynthClass.RequiresClient())
	assert.False(t, ActorSkillModule.RequiresClient())
}

func TestDeleteFilterEmpty(t *testing.T) {
	assert.True(t, DeleteFilter{}.Empty())
	assert.False(t, DeleteFilter{SourceTable: "memories"}.Empty())
	assert.False(t, DeleteFilter{ActorType: ActorSynth}.Empty())
	assert.False(t, DeleteFilter{Model: "text-embedding-3-small"}.Empty())
}
