package store

import (
	"context"
	"errors"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/betbot/gridhedge/internal/domain"
	"github.com/betbot/gridhedge/internal/editor"
	"github.com/betbot/gridhedge/internal/mockserver"
	"github.com/betbot/gridhedge/pkg/sdk/api"
	sdkhttp "github.com/betbot/gridhedge/pkg/sdk/http"
)

var (
	btcSpec = domain.SymbolSpec{Symbol: "BTCUSDT", TickSize: 0.1, QtyStep: 0.001, PriceDecimals: 2, VolumeDecimals: 3}
	ethSpec = domain.SymbolSpec{Symbol: "ETHUSDT", TickSize: 0.01, QtyStep: 0.01, PriceDecimals: 2, VolumeDecimals: 2}
)

func newMock() *api.MockClient {
	m := api.NewMockClient(btcSpec, ethSpec)
	m.Instruments = []domain.Instrument{
		domain.DefaultInstrument("ETHUSDT", ethSpec),
	}
	return m
}

func TestInitializeSelectsFirst(t *testing.T) {
	ctx := context.Background()
	s := New(newMock())

	require.NoError(t, s.Initialize(ctx))
	cur, ok := s.Current()
	require.True(t, ok)
	assert.Equal(t, "ETHUSDT", cur.Symbol)

	spec, ok := s.Spec("BTCUSDT")
	require.True(t, ok)
	assert.Equal(t, 3, spec.VolumeDecimals)
}

func TestInitializeIsIdempotent(t *testing.T) {
	ctx := context.Background()
	m := newMock()
	s := New(m)

	require.NoError(t, s.Initialize(ctx))
	require.NoError(t, s.Initialize(ctx))
	assert.Equal(t, 1, m.CallCount("GetSpecs"))
	assert.Equal(t, 1, m.CallCount("ListInstruments"))
}

func TestInitializeFailureRetries(t *testing.T) {
	ctx := context.Background()
	m := newMock()
	m.FailNext("GetSpecs", errors.New("connection refused"))
	s := New(m)

	require.Error(t, s.Initialize(ctx))
	assert.False(t, s.Loaded())
	require.NoError(t, s.Initialize(ctx))
	assert.True(t, s.Loaded())
}

func TestAddValidation(t *testing.T) {
	ctx := context.Background()
	m := newMock()
	s := New(m)

	_, err := s.Add(ctx, "btc")
	assert.ErrorIs(t, err, ErrInvalidSymbol)
	assert.Equal(t, 0, m.CallCount("GetSpecs"))

	_, err = s.Add(ctx, "DOGEUSDT")
	assert.ErrorIs(t, err, ErrUnknownSymbol)
	assert.True(t, s.Loaded())

	_, err = s.Add(ctx, "ethusdt")
	assert.ErrorIs(t, err, ErrDuplicateSymbol)
	assert.Equal(t, 0, m.CallCount("CreateInstrument"))
}

func TestAddAppends(t *testing.T) {
	ctx := context.Background()
	s := New(newMock())

	inst, err := s.Add(ctx, " btcusdt ")
	require.NoError(t, err)
	assert.Equal(t, "BTCUSDT", inst.Symbol)
	assert.Equal(t, 2, inst.PriceDecimals)

	list := s.List()
	require.Len(t, list, 2)
	assert.Equal(t, "ETHUSDT", list[0].Symbol)
	assert.Equal(t, "BTCUSDT", list[1].Symbol)
}

func TestRemoveReselects(t *testing.T) {
	ctx := context.Background()
	s := New(newMock())
	require.NoError(t, s.Initialize(ctx))
	_, err := s.Add(ctx, "BTCUSDT")
	require.NoError(t, err)

	require.NoError(t, s.Select("ETHUSDT"))
	require.NoError(t, s.Remove(ctx, "ETHUSDT"))
	cur, ok := s.Current()
	require.True(t, ok)
	assert.Equal(t, "BTCUSDT", cur.Symbol)

	require.NoError(t, s.Remove(ctx, "BTCUSDT"))
	_, ok = s.Current()
	assert.False(t, ok)
	assert.Empty(t, s.List())
}

func TestRemoveKeepsOtherSelection(t *testing.T) {
	ctx := context.Background()
	s := New(newMock())
	_, err := s.Add(ctx, "BTCUSDT")
	require.NoError(t, err)
	require.NoError(t, s.Select("BTCUSDT"))

	require.NoError(t, s.Remove(ctx, "ETHUSDT"))
	cur, ok := s.Current()
	require.True(t, ok)
	assert.Equal(t, "BTCUSDT", cur.Symbol)
}

func TestSelectUnknown(t *testing.T) {
	s := New(newMock())
	require.NoError(t, s.Initialize(context.Background()))
	assert.ErrorIs(t, s.Select("XRPUSDT"), ErrNotFound)
	require.NoError(t, s.Select(""))
	_, ok := s.Current()
	assert.False(t, ok)
}

func TestUpdateReplacesEntry(t *testing.T) {
	ctx := context.Background()
	m := newMock()
	s := New(m)
	require.NoError(t, s.Initialize(ctx))

	price := 2500.5
	updated, err := s.Update(ctx, "ETHUSDT", domain.InstrumentPatch{EntryPriceUsdt: &price})
	require.NoError(t, err)
	assert.Equal(t, price, updated.EntryPriceUsdt)
	got, ok := s.Get("ETHUSDT")
	require.True(t, ok)
	assert.Equal(t, price, got.EntryPriceUsdt)

	m.FailNext("UpdateInstrument", errors.New("boom"))
	other := 1.0
	_, err = s.Update(ctx, "ETHUSDT", domain.InstrumentPatch{EntryPriceUsdt: &other})
	require.Error(t, err)
	got, _ = s.Get("ETHUSDT")
	assert.Equal(t, price, got.EntryPriceUsdt)
}

// 通过真实 HTTP 客户端与内存后端跑一遍完整的编辑流程
func TestStoreWithEditorOverHTTP(t *testing.T) {
	ctx := context.Background()
	srv, err := mockserver.New(mockserver.Config{AdminPassword: "pw"})
	require.NoError(t, err)
	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	opts := sdkhttp.DefaultOptions()
	opts.RetryCount = 0
	s := New(api.NewClient(ts.URL+"/api", opts))
	inst, err := s.Add(ctx, "BTCUSDT")
	require.NoError(t, err)
	require.NoError(t, s.Select(inst.Symbol))

	sess := editor.NewSession(s, s)
	cur, _ := s.Current()
	sess.Select(&cur)

	require.NoError(t, sess.OnFieldChange(editor.FieldTp1Volume, "70"))
	require.NoError(t, sess.OnFieldCommit(ctx, editor.FieldTp1Volume))
	assert.Equal(t, "30", sess.Text(editor.FieldTp2Volume))

	got, _ := s.Get("BTCUSDT")
	assert.Equal(t, 70.0, got.TpLevels[0].VolumePercent)
	assert.Equal(t, 30.0, got.TpLevels[1].VolumePercent)

	err = sess.SetActive(ctx, true)
	assert.ErrorIs(t, err, editor.ErrCredentialsMissing)
}
