package api

import (
	"context"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mnehpets/onerpc/dispatch"
	"github.com/mnehpets/onerpc/endpoint"
	"github.com/mnehpets/onerpc/jsonrpc"
)

func newEvaluator(t *testing.T, namespace string, opts ...dispatch.MapperOption) *dispatch.Evaluator {
	t.Helper()
	reg := dispatch.NewRegistry()
	require.NoError(t, Register(reg, namespace))
	m, err := dispatch.NewMapper(reg, append([]dispatch.MapperOption{dispatch.WithNamespace(namespace)}, opts...)...)
	require.NoError(t, err)
	return dispatch.NewEvaluator(m)
}

func TestRegister(t *testing.T) {
	reg := dispatch.NewRegistry()
	require.NoError(t, Register(reg, "API"))
	assert.Equal(t, []string{"API.Math", "API.Offsite", "API.Share.Nas"}, reg.Groups())
	_, ok := reg.Type(TypeDeviceIdentifier)
	assert.True(t, ok)

	err := Register(reg, "API")
	assert.ErrorIs(t, err, dispatch.ErrDuplicateGroup)

	bare := dispatch.NewRegistry()
	require.NoError(t, Register(bare, ""))
	assert.Equal(t, []string{"Math", "Offsite", "Share.Nas"}, bare.Groups())
}

func TestMath(t *testing.T) {
	ev := newEvaluator(t, "API")
	ctx := context.Background()

	tests := []struct {
		method string
		args   dispatch.Arguments
		want   any
	}{
		{"math/subtract", dispatch.Positional(3, 2), int64(1)},
		{"math/subtract", dispatch.Named(map[string]any{"b": 2, "a": 3}), int64(1)},
		{"math/multiply", dispatch.Positional(4, 5), int64(20)},
		{"math/divide", dispatch.Positional(1, 4), 0.25},
		{"math/pow", dispatch.Positional(3), 9.0},
		{"math/pow", dispatch.Positional(2, 10), 1024.0},
	}
	for _, tt := range tests {
		got, err := ev.Evaluate(ctx, tt.method, tt.args)
		require.NoError(t, err, tt.method)
		assert.Equal(t, tt.want, got, tt.method)
	}
}

func TestMathFailures(t *testing.T) {
	ev := newEvaluator(t, "API")
	ctx := context.Background()

	_, err := ev.Evaluate(ctx, "math/add", dispatch.Positional(1, 2))
	rpcErr, ok := dispatch.AsError(err)
	require.True(t, ok)
	assert.Equal(t, -32001, rpcErr.Code)
	assert.Equal(t, "Not supported.", rpcErr.Message)
	assert.Equal(t, dispatch.KindApplication, rpcErr.Kind)

	_, err = ev.Evaluate(ctx, "math/divide", dispatch.Positional(1, 0))
	rpcErr, ok = dispatch.AsError(err)
	require.True(t, ok)
	assert.Equal(t, dispatch.KindEvaluation, rpcErr.Kind)
	assert.Equal(t, "Division by zero.", rpcErr.Message)

	_, err = ev.Evaluate(ctx, "math/subtract", dispatch.Positional(1.5, 1))
	assert.True(t, dispatch.IsKind(err, dispatch.KindArgument))

	_, err = ev.Evaluate(ctx, "math/subtract", dispatch.Positional(1))
	rpcErr, ok = dispatch.AsError(err)
	require.True(t, ok)
	assert.Equal(t, "missing param: b", rpcErr.Message)
}

func TestMathIntegerOverflow(t *testing.T) {
	ev := newEvaluator(t, "API")
	ctx := context.Background()

	tests := []struct {
		name   string
		method string
		a, b   int64
	}{
		{"SubtractBelowMin", "math/subtract", math.MinInt64, 1},
		{"SubtractAboveMax", "math/subtract", math.MaxInt64, -1},
		{"MultiplyAboveMax", "math/multiply", math.MaxInt64, 2},
		{"MultiplyBelowMin", "math/multiply", math.MinInt64, 2},
		{"MultiplyNegateMin", "math/multiply", math.MinInt64, -1},
		{"MultiplyMinByNegativeOne", "math/multiply", -1, math.MinInt64},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ev.Evaluate(ctx, tt.method, dispatch.Positional(tt.a, tt.b))
			assert.Nil(t, got)
			rpcErr, ok := dispatch.AsError(err)
			require.True(t, ok, "got %v", err)
			assert.Equal(t, dispatch.KindEvaluation, rpcErr.Kind)
			assert.Equal(t, "Integer overflow.", rpcErr.Message)
		})
	}

	// Results at the edges of the range are still exact.
	got, err := ev.Evaluate(ctx, "math/subtract", dispatch.Positional(int64(math.MinInt64+1), 1))
	require.NoError(t, err)
	assert.Equal(t, int64(math.MinInt64), got)

	got, err = ev.Evaluate(ctx, "math/multiply", dispatch.Positional(int64(math.MinInt64/2), 2))
	require.NoError(t, err)
	assert.Equal(t, int64(math.MinInt64), got)

	got, err = ev.Evaluate(ctx, "math/multiply", dispatch.Positional(int64(math.MaxInt64), -1))
	require.NoError(t, err)
	assert.Equal(t, int64(-math.MaxInt64), got)
}

func TestParseDeviceIdentifier(t *testing.T) {
	tests := []struct {
		in      string
		id, mac string
		wantErr bool
	}{
		{in: "id{42}", id: "42", mac: "dummy"},
		{in: "mac{0A1B2C}", id: "dummy", mac: "0a1b2c"},
		{in: "MAC{ff}", id: "dummy", mac: "ff"},
		{in: "id{}", wantErr: true},
		{in: "id{99999999999999999999999}", wantErr: true},
		{in: "mac{xyz}", wantErr: true},
		{in: "serial{1}", wantErr: true},
	}
	for _, tt := range tests {
		got, err := ParseDeviceIdentifier(tt.in)
		if tt.wantErr {
			assert.Error(t, err, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.id, got.DeviceID, tt.in)
		assert.Equal(t, tt.mac, got.MACAddress, tt.in)
	}

	_, err := NewDeviceIdentifier(42)
	assert.Error(t, err)
}

func TestOffsite(t *testing.T) {
	ev := newEvaluator(t, "API")
	ctx := context.Background()

	got, err := ev.Evaluate(ctx, "offsite/getTargetType", dispatch.Positional("id{7}"))
	require.NoError(t, err)
	assert.Equal(t, "deviceID=7, mac=dummy", got)

	got, err = ev.Evaluate(ctx, "offsite/getTargetType", dispatch.Named(map[string]any{"identifier": "mac{AABB}"}))
	require.NoError(t, err)
	assert.Equal(t, "deviceID=dummy, mac=aabb", got)

	_, err = ev.Evaluate(ctx, "offsite/getTargetType", dispatch.Positional("nonsense"))
	rpcErr, ok := dispatch.AsError(err)
	require.True(t, ok)
	assert.Equal(t, dispatch.CodeInvalidParams, rpcErr.Code)
	assert.Equal(t, "invalid param: identifier", rpcErr.Message)
}

func TestShareNas(t *testing.T) {
	ev := newEvaluator(t, "Test", dispatch.WithSeparator("."))
	ctx := context.Background()

	got, err := ev.Evaluate(ctx, "Share.Nas.add", dispatch.Positional(2, 3))
	require.NoError(t, err)
	assert.Equal(t, int64(5), got)

	got, err = ev.Evaluate(ctx, "share.nas.describe", dispatch.Named(map[string]any{"name": "backups"}))
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"name": "backups", "readOnly": false}, got)

	_, err = ev.Evaluate(ctx, "share/nas/add", dispatch.Positional(2, 3))
	assert.True(t, dispatch.IsKind(err, dispatch.KindMethod))
}

func TestOverHTTP(t *testing.T) {
	h := endpoint.Handler(jsonrpc.NewEndpoint(newEvaluator(t, "API")).Endpoint)

	body := `[
		{"jsonrpc": "2.0", "method": "math/subtract", "params": [5, 3], "id": 1},
		{"jsonrpc": "2.0", "method": "math/add", "params": [1, 2], "id": 2},
		{"jsonrpc": "2.0", "method": "share/nas/add", "params": {"a": 1, "b": 1}, "id": 3}
	]`
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[
		{"jsonrpc": "2.0", "result": 2, "id": 1},
		{"jsonrpc": "2.0", "error": {"code": -32001, "message": "Not supported."}, "id": 2},
		{"jsonrpc": "2.0", "result": 2, "id": 3}
	]`, rec.Body.String())
}
