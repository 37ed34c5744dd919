// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Strata Contributors

package main

import (
	"github.com/spf13/viper"
	"github.com/strata-dev/strata/internal/audit"
	"github.com/strata-dev/strata/internal/config"
	"github.com/strata-dev/strata/internal/registry"
	"github.com/strata-dev/strata/internal/search"
	"github.com/strata-dev/strata/internal/store"
	_ "github.com/strata-dev/strata/internal/store/sqlite" // register sqlite backend
	strataerr "github.com/strata-dev/strata/pkg/errors"
)

// App holds all wired subsystems and manages their lifecycle.
type App struct {
	Config   *config.Config
	Registry *registry.Registry
	Store    store.EmbeddingStore
	Engine   *search.Engine
	Auditor  *audit.Auditor
}

// wireApp constructs registry → store → engine → auditor from the
// viper configuration. The registry is built once here and handed to
// the store and engine by reference; nothing mutates it afterwards.
func wireApp(v *viper.Viper) (*App, error) {
	cfg, err := config.FromViper(v)
	if err != nil {
		return nil, err
	}

	reg := registry.Builtin()

	st, err := store.Open(&store.Config{
		Backend: cfg.Storage.Backend,
		Path:    cfg.Storage.Path,
	}, reg)
	if err != nil {
		return nil, strataerr.Wrap(err, strataerr.CodeCLISetupFailure, "opening embedding store")
	}

	active := reg.Resolve(cfg)

	return &App{
		Config:   cfg,
		Registry: reg,
		Store:    st,
		Engine:   search.NewEngine(st, reg),
		Auditor:  audit.New(st, reg, active.Name),
	}, nil
}

// Close releases the app's resources.
func (a *App) Close() error {
	return a.Store.Close()
}
