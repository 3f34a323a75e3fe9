package main

import (
	"go.uber.org/zap"

	"github.com/praetorian-inc/sieve"
	"github.com/praetorian-inc/sieve/pkg/rule"
	"github.com/praetorian-inc/sieve/pkg/store"
	"github.com/praetorian-inc/sieve/pkg/types"
)

// journaled records each load and clear passed through to target.
type journaled struct {
	target  rule.Target
	journal store.Store
	source  string
	logger  *zap.Logger
}

func (j *journaled) LoadPatterns(route types.RouteID, patterns []string) error {
	err := j.target.LoadPatterns(route, patterns)

	e := &store.Entry{
		Op:     store.OpLoad,
		Route:  store.RouteRef(route),
		Status: sieve.StatusCode(err),
		Source: j.source,
	}
	if err != nil {
		e.Error = err.Error()
	} else {
		e.Patterns = len(patterns)
	}
	j.record(e)
	return err
}

func (j *journaled) ClearRoute(route types.RouteID) bool {
	removed := j.target.ClearRoute(route)
	j.record(&store.Entry{
		Op:     store.OpClear,
		Route:  store.RouteRef(route),
		Status: types.StatusOK,
		Source: j.source,
	})
	return removed
}

func (j *journaled) record(e *store.Entry) {
	if err := j.journal.Record(e); err != nil {
		j.logger.Warn("journal write failed", zap.String("op", e.Op), zap.Error(err))
	}
}
