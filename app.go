package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"strings"

	"github.com/chazu/ezsplit/pkg/assets"
	"github.com/chazu/ezsplit/pkg/config"
	"github.com/chazu/ezsplit/pkg/engine"
	"github.com/chazu/ezsplit/pkg/ezsplit"
	"github.com/chazu/ezsplit/pkg/kernel/sdfx"
	"github.com/chazu/ezsplit/pkg/logging"
	"github.com/chazu/ezsplit/pkg/scene"
)

// App is the command line backend. It owns the asset store, the scene and
// the script engine, and saves the scene after every command that changes it.
type App struct {
	cfg       config.Config
	store     *assets.DiskStore
	scene     *scene.Scene
	scenePath string
	sess      *ezsplit.Session
	engine    *engine.Engine
}

// EvalErrorData is a script error or warning.
type EvalErrorData struct {
	Line    int    `json:"line"`
	Col     int    `json:"col"`
	Message string `json:"message"`
}

// EvalResult is the outcome of running one script.
type EvalResult struct {
	Value    string          `json:"value"`
	Selected []string        `json:"selected"` // labels of the final selection
	Created  []string        `json:"created"`  // asset paths committed by split and merge
	Errors   []EvalErrorData `json:"errors"`
	Warnings []EvalErrorData `json:"warnings"`
}

// NewApp opens the store and scene named by cfg. A missing scene file starts
// an empty scene.
func NewApp(cfg config.Config) (*App, error) {
	sessCfg, err := sessionConfig(cfg)
	if err != nil {
		return nil, err
	}
	timeout, err := cfg.EvalTimeout()
	if err != nil {
		return nil, err
	}

	sc, err := scene.Load(cfg.Store.Scene)
	if errors.Is(err, os.ErrNotExist) {
		sc, err = scene.New(), nil
	}
	if err != nil {
		return nil, err
	}

	store := assets.NewDiskStore(cfg.Store.Root, cfg.Store.STL)
	k := sdfx.NewWithCells(cfg.Engine.MeshCells)
	sess := ezsplit.NewSession(store, sc, sessCfg)
	eng := engine.NewEngine(sess, sc, store, k)
	eng.Timeout = timeout

	return &App{
		cfg:       cfg,
		store:     store,
		scene:     sc,
		scenePath: cfg.Store.Scene,
		sess:      sess,
		engine:    eng,
	}, nil
}

func sessionConfig(cfg config.Config) (ezsplit.Config, error) {
	strategy, err := cfg.Strategy()
	if err != nil {
		return ezsplit.Config{}, err
	}
	settings, err := cfg.MergeSettings()
	if err != nil {
		return ezsplit.Config{}, err
	}
	return ezsplit.Config{
		Split: ezsplit.Options{Strategy: strategy},
		Merge: settings,
	}, nil
}

// Save writes the scene file.
func (a *App) Save() error {
	return a.scene.Save(a.scenePath)
}

// Evaluate runs a script. The scene is saved even when the script fails part
// way, since earlier operations have already changed the store.
func (a *App) Evaluate(ctx context.Context, source string) EvalResult {
	result := EvalResult{
		Errors:   []EvalErrorData{},
		Warnings: []EvalErrorData{},
	}

	res, evalErrs, err := a.engine.Evaluate(ctx, source)
	if saveErr := a.Save(); saveErr != nil {
		logging.Error("save scene: %v", saveErr)
	}
	if err != nil {
		logging.Error("evaluate: %v", err)
		result.Errors = append(result.Errors, EvalErrorData{Message: err.Error()})
		return result
	}
	for _, e := range evalErrs {
		result.Errors = append(result.Errors, EvalErrorData{Line: e.Line, Col: e.Col, Message: e.Message})
	}
	if res == nil {
		return result
	}

	result.Value = res.Value
	for _, id := range res.Selection {
		if act := a.scene.Get(id); act != nil {
			result.Selected = append(result.Selected, act.Label)
		}
	}
	for _, r := range res.Reports {
		result.Created = append(result.Created, r.Created...)
	}
	for _, w := range res.Warnings {
		result.Warnings = append(result.Warnings, EvalErrorData{Message: w.Message})
	}
	return result
}

// Split splits the actors with the given labels.
func (a *App) Split(ctx context.Context, labels []string) (*ezsplit.Report, error) {
	ids, err := a.resolve(labels)
	if err != nil {
		return nil, err
	}
	r, err := a.sess.Split(ctx, ids)
	return r, a.saveAfter(err)
}

// Merge merges the actors with the given labels into one.
func (a *App) Merge(ctx context.Context, labels []string) (*ezsplit.Report, error) {
	ids, err := a.resolve(labels)
	if err != nil {
		return nil, err
	}
	r, err := a.sess.Merge(ctx, ids)
	return r, a.saveAfter(err)
}

// Import places an actor for a mesh file dropped into the inbox and splits
// it. It is the watch command's handler.
func (a *App) Import(ctx context.Context, file string) error {
	assetPath, err := a.store.AssetPath(file)
	if err != nil {
		return err
	}
	_, name := path.Split(assetPath)
	folder := strings.Trim(a.cfg.Watch.Inbox, "/")
	id, err := a.scene.Spawn(name, folder, assetPath)
	if err != nil {
		return err
	}
	r, err := a.sess.Split(ctx, []scene.ActorID{id})
	if len(r.Spawned) == 0 {
		// The imported actor stays in the scene unsplit.
		logging.Warn("import %s: nothing split", assetPath)
	} else {
		logging.Info("imported %s as %d parts", assetPath, len(r.Spawned))
	}
	return a.saveAfter(err)
}

// Actors returns every actor in the scene.
func (a *App) Actors() []*scene.Actor {
	return a.scene.Actors()
}

func (a *App) resolve(labels []string) ([]scene.ActorID, error) {
	ids := make([]scene.ActorID, 0, len(labels))
	for _, l := range labels {
		act := a.scene.Lookup(l)
		if act == nil {
			return nil, &ezsplit.SelectionError{Reason: fmt.Sprintf("no actor labelled %q", l)}
		}
		ids = append(ids, act.ID)
	}
	return ids, nil
}

func (a *App) saveAfter(opErr error) error {
	if err := a.Save(); err != nil {
		return errors.Join(opErr, fmt.Errorf("save scene: %w", err))
	}
	return opErr
}
