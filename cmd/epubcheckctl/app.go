package main

import (
	"fmt"

	"github.com/analekt/epubcheck-mcp/internal/engine"
	"github.com/analekt/epubcheck-mcp/internal/model"
	"github.com/analekt/epubcheck-mcp/internal/release"
	"github.com/analekt/epubcheck-mcp/internal/version"
)

func newInvoker(cfg model.Config) *engine.Invoker {
	locator := engine.NewLocator(cfg.EnginePath(), cfg.JavaPath())
	return engine.NewInvoker(locator,
		engine.WithScratchDir(cfg.ScratchDir()),
		engine.WithTimeout(cfg.EngineTimeout()),
		engine.WithVersionTimeout(cfg.VersionTimeout()),
	)
}

// newVersionService wires the update check. The release client and the
// disk store exist only if update checks are enabled.
func newVersionService(cfg model.Config, querier version.Querier) (*version.Service, error) {
	opts := []version.Option{
		version.WithTTL(cfg.CheckTTL()),
		version.WithFetchTimeout(cfg.CheckTimeout()),
		version.WithUpdateCheck(cfg.UpdateCheckEnabled()),
	}
	if !cfg.UpdateCheckEnabled() {
		return version.New(querier, nil, nil, opts...), nil
	}

	client, err := release.NewClient(cfg.ReleaseURL(), release.WithUserAgent("epubcheckctl/"+buildVersion()))
	if err != nil {
		return nil, fmt.Errorf("configuring release client: %w", err)
	}
	store, err := version.NewFileStore(cfg.CacheDir())
	if err != nil {
		return nil, fmt.Errorf("configuring version cache: %w", err)
	}
	return version.New(querier, client, store, opts...), nil
}
