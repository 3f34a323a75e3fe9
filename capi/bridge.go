// Command capi builds the engine as a C shared library for gateways that
// embed it in-process:
//
//	go build -buildmode=c-shared -o libsieve.so ./capi
//
// The exported symbols live in exports.go. Everything here is plain Go so
// it can be tested without a C toolchain.
package main

import (
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/praetorian-inc/sieve"
	"github.com/praetorian-inc/sieve/pkg/metrics"
	"github.com/praetorian-inc/sieve/pkg/types"
)

var (
	processOnce   sync.Once
	processBridge *bridge
)

// process returns the bridge shared by every export, creating it on first use.
func process() *bridge {
	processOnce.Do(func() {
		engine, err := sieve.NewEngine(
			sieve.WithMetrics(metrics.New(prometheus.NewRegistry())),
		)
		processBridge = &bridge{engine: engine, err: err}
	})
	return processBridge
}

// bridge adapts engine calls to the status codes of the C interface.
// Panics never cross it.
type bridge struct {
	engine *sieve.Engine
	err    error // set when the engine could not be created
}

func newBridge(engine *sieve.Engine) *bridge {
	return &bridge{engine: engine}
}

func (b *bridge) ready() bool {
	return b.err == nil && b.engine != nil
}

func (b *bridge) loadRouteRules(route uint32, blob []byte) (status int32) {
	defer func() {
		if r := recover(); r != nil {
			status = types.StatusBuildFailed
		}
	}()

	if !b.ready() {
		return types.StatusBuildFailed
	}
	return sieve.StatusCode(b.engine.LoadRoute(types.RouteID(route), blob))
}

func (b *bridge) clearRouteRules(route uint32) int32 {
	if b.ready() {
		b.engine.ClearRoute(types.RouteID(route))
	}
	return types.StatusOK
}

func (b *bridge) clearAllRules() int32 {
	if b.ready() {
		b.engine.ClearAll()
	}
	return types.StatusOK
}

func (b *bridge) checkResponseForRoute(route uint32, text []byte) (result int32) {
	defer func() {
		if r := recover(); r != nil {
			result = types.CheckClean
		}
	}()

	if !b.ready() {
		return types.CheckClean
	}
	if b.engine.Check(types.RouteID(route), text) {
		return types.CheckMatched
	}
	return types.CheckClean
}

func (b *bridge) routePatternCount(route uint32) int32 {
	if !b.ready() {
		return -1
	}
	info, ok := b.engine.Route(types.RouteID(route))
	if !ok {
		return -1
	}
	return int32(info.PatternCount)
}

func (b *bridge) routeCount() int32 {
	if !b.ready() {
		return 0
	}
	return int32(b.engine.RouteCount())
}

func (b *bridge) String() string {
	if !b.ready() {
		return fmt.Sprintf("sieve bridge (unavailable: %v)", b.err)
	}
	return fmt.Sprintf("sieve bridge (%s, %d routes)", b.engine.Backend(), b.engine.RouteCount())
}

func main() {}
