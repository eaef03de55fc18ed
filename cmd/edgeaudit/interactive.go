package main

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/jask/edgeaudit/internal/api"
	"github.com/jask/edgeaudit/internal/logging"
	"github.com/jask/edgeaudit/internal/tui"
)

func (c *cli) runInteractive(ctx context.Context, open string) error {
	sort, err := api.ParseSortKey(c.cfg.UI.DefaultSort)
	if err != nil {
		return err
	}
	opts := tui.Options{
		PageSize:       c.cfg.UI.PageSize,
		DefaultSort:    sort,
		FilterDebounce: c.cfg.UI.FilterDebounce,
		SuccessDelay:   c.cfg.UI.SuccessDelay,
		RequestTimeout: c.cfg.API.RequestTimeout,
		Route:          tui.ParseRoute(open),
		Logger:         logging.Named("tui"),
	}
	journal, err := c.openJournal()
	if err != nil {
		c.logger.Warn("submission journal unavailable", zap.Error(err))
	} else if journal != nil {
		opts.OnOutcome = journal.Recorder(ctx)
	}

	app := tui.New(ctx, c.client, opts)
	defer app.Close()
	if _, err := tea.NewProgram(app, tea.WithAltScreen(), tea.WithContext(ctx)).Run(); err != nil {
		return fmt.Errorf("ui: %w", err)
	}
	return nil
}
