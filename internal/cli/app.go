package cli

import (
	"fmt"
	"os"

	"github.com/roach88/pxengine/internal/engine"
	"github.com/roach88/pxengine/internal/px"
	"github.com/roach88/pxengine/internal/relindex"
	"github.com/roach88/pxengine/internal/settings"
	"github.com/roach88/pxengine/internal/store"
)

// app is the engine stack behind the database commands.
type app struct {
	store    *store.Store
	settings *settings.Service
	calc     *px.Calculator
	engine   *engine.Engine
	writer   *engine.Writer
	index    *relindex.Index
}

// openApp opens the database at dbPath, or the configured default when
// dbPath is empty. With mustExist a missing file is a command error
// instead of a fresh database. Engine options apply after the configured
// worker count and mode.
func openApp(opts *RootOptions, dbPath string, mustExist bool, engineOpts ...engine.Option) (*app, error) {
	path := dbPath
	if path == "" {
		path = opts.Config.DBPath
	}
	if mustExist {
		if _, err := os.Stat(path); err != nil {
			return nil, NewExitError(ExitCommandError, fmt.Sprintf("database not found: %s", path))
		}
	}

	st, err := store.Open(path)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "open database", err)
	}

	cfg := settings.New(st)
	calc := px.New(st, cfg)
	eng := engine.New(calc, st, append([]engine.Option{
		engine.WithWorkers(opts.Config.Workers),
		engine.WithAsync(opts.Config.Async),
	}, engineOpts...)...)

	idx := relindex.New(st)
	idx.Attach(eng)

	return &app{
		store:    st,
		settings: cfg,
		calc:     calc,
		engine:   eng,
		writer:   engine.NewWriter(st, cfg, calc, eng),
		index:    idx,
	}, nil
}

func (a *app) Close() error {
	return a.store.Close()
}
