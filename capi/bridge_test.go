package main

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/praetorian-inc/sieve"
	"github.com/praetorian-inc/sieve/pkg/types"
)

func testBridge(t *testing.T) *bridge {
	t.Helper()
	engine, err := sieve.NewEngine()
	require.NoError(t, err)
	return newBridge(engine)
}

func encode(s string) []byte {
	return []byte(base64.StdEncoding.EncodeToString([]byte(s)))
}

func TestBridge_LoadStatus(t *testing.T) {
	tests := []struct {
		name string
		blob []byte
		want int32
	}{
		{"null pointer", nil, types.StatusEmptyInput},
		{"zero length", []byte{}, types.StatusEmptyInput},
		{"invalid utf8", []byte{0xff}, types.StatusInvalidEncoding},
		{"not base64", []byte("not base64!"), types.StatusInvalidEncoding},
		{"not an array", encode(`{"rules":[]}`), types.StatusInvalidPayload},
		{"non-string element", encode(`["a",1]`), types.StatusInvalidPayload},
		{"ok", encode(`["DROP TABLE"]`), types.StatusOK},
		{"empty set", encode(`[]`), types.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := testBridge(t)
			assert.Equal(t, tt.want, b.loadRouteRules(1, tt.blob))
		})
	}
}

func TestBridge_Scenario(t *testing.T) {
	b := testBridge(t)

	require.Equal(t, types.StatusOK, b.loadRouteRules(1, encode(`["DROP TABLE"]`)))
	assert.Equal(t, types.CheckClean, b.checkResponseForRoute(1, []byte("SELECT * WHERE x")))
	assert.Equal(t, types.CheckMatched, b.checkResponseForRoute(1, []byte("please DROP TABLE users")))

	require.Equal(t, types.StatusOK, b.loadRouteRules(2, encode(`[]`)))
	assert.Equal(t, types.CheckClean, b.checkResponseForRoute(2, []byte("anything")))

	assert.Equal(t, types.StatusOK, b.clearRouteRules(1))
	assert.Equal(t, types.CheckClean, b.checkResponseForRoute(1, []byte("DROP TABLE")))
}

func TestBridge_ClearAlwaysOK(t *testing.T) {
	b := testBridge(t)

	assert.Equal(t, types.StatusOK, b.clearRouteRules(123))
	assert.Equal(t, types.StatusOK, b.clearAllRules())

	require.Equal(t, types.StatusOK, b.loadRouteRules(5, encode(`["x"]`)))
	assert.Equal(t, types.StatusOK, b.clearAllRules())
	assert.Equal(t, int32(0), b.routeCount())
}

func TestBridge_NullText(t *testing.T) {
	b := testBridge(t)
	require.Equal(t, types.StatusOK, b.loadRouteRules(1, encode(`[""]`)))

	assert.Equal(t, types.CheckClean, b.checkResponseForRoute(1, nil))
	assert.Equal(t, types.CheckMatched, b.checkResponseForRoute(1, []byte{}))
}

func TestBridge_Introspection(t *testing.T) {
	b := testBridge(t)

	assert.Equal(t, int32(-1), b.routePatternCount(3))
	require.Equal(t, types.StatusOK, b.loadRouteRules(3, encode(`["a","b","c"]`)))
	assert.Equal(t, int32(3), b.routePatternCount(3))
	assert.Equal(t, int32(1), b.routeCount())
}

func TestBridge_Unavailable(t *testing.T) {
	b := &bridge{err: sieve.ErrBackendUnavailable}

	assert.Equal(t, types.StatusBuildFailed, b.loadRouteRules(1, encode(`["x"]`)))
	assert.Equal(t, types.CheckClean, b.checkResponseForRoute(1, []byte("x")))
	assert.Equal(t, types.StatusOK, b.clearRouteRules(1))
	assert.Equal(t, int32(-1), b.routePatternCount(1))
	assert.Contains(t, b.String(), "unavailable")
}

func TestProcess_SharedAcrossCalls(t *testing.T) {
	p := process()
	require.True(t, p.ready())
	assert.Same(t, p, process())

	require.Equal(t, types.StatusOK, p.loadRouteRules(uint32(types.DefaultRoute), encode(`["legacy"]`)))
	assert.Equal(t, types.CheckMatched, p.checkResponseForRoute(0, []byte("a legacy call")))
	p.clearAllRules()
}
