package editor

import (
	"context"
	"errors"
	"testing"

	"github.com/betbot/gridhedge/internal/domain"
)

type fakeUpdater struct {
	inst    domain.Instrument
	err     error
	patches []domain.InstrumentPatch
	// during 在往返期间调用，模拟用户继续输入
	during func()
}

func (f *fakeUpdater) Update(_ context.Context, symbol string, patch domain.InstrumentPatch) (domain.Instrument, error) {
	f.patches = append(f.patches, patch)
	if f.during != nil {
		f.during()
	}
	if f.err != nil {
		return domain.Instrument{}, f.err
	}
	if symbol != f.inst.Symbol {
		return domain.Instrument{}, errors.New("not found")
	}
	f.inst = f.inst.Apply(patch)
	return f.inst, nil
}

type fakeGate bool

func (g fakeGate) SettingsConfigured(context.Context) (bool, error) { return bool(g), nil }

func newTestSession(inst domain.Instrument) (*Session, *fakeUpdater) {
	up := &fakeUpdater{inst: inst}
	s := NewSession(up, fakeGate(true))
	s.Select(&inst)
	return s, up
}

func TestInitializeDraftFormatsByCategory(t *testing.T) {
	inst := readyInstrument()
	inst.EntryVolumeUsdt = 0.5
	d := InitializeDraft(inst)
	want := map[Field]string{
		FieldEntryPrice:       "27000.00",
		FieldEntryVolume:      "0.500",
		FieldTp1Volume:        "50",
		FieldSlLongCount:      "5",
		FieldRefillLongVolume: "0.000",
	}
	for f, w := range want {
		if got := d.Get(f); got != w {
			t.Fatalf("%s got=%q want=%q", f, got, w)
		}
	}
	for _, f := range Fields() {
		if EmptyDraft().Get(f) != "" {
			t.Fatalf("empty draft has text for %s", f)
		}
	}
}

func TestDraftIsolation(t *testing.T) {
	s, up := newTestSession(readyInstrument())

	if err := s.OnFieldChange(FieldEntryPrice, "abc"); err != nil {
		t.Fatalf("OnFieldChange: %v", err)
	}
	if len(up.patches) != 0 {
		t.Fatalf("keystroke produced %d updates", len(up.patches))
	}
	inst, _ := s.Instrument()
	if inst.EntryPriceUsdt != 27000 {
		t.Fatalf("committed value changed before commit: %v", inst.EntryPriceUsdt)
	}
	if s.Text(FieldEntryPrice) != "abc" {
		t.Fatalf("draft text got=%q want=abc", s.Text(FieldEntryPrice))
	}

	if err := s.OnFieldCommit(context.Background(), FieldEntryPrice); err != nil {
		t.Fatalf("commit: %v", err)
	}
	inst, _ = s.Instrument()
	if inst.EntryPriceUsdt != 0 || s.Text(FieldEntryPrice) != "0.00" {
		t.Fatalf("non-numeric commit got=%v/%q want=0/0.00", inst.EntryPriceUsdt, s.Text(FieldEntryPrice))
	}
}

func TestCommitNormalizesSignAndDecimals(t *testing.T) {
	s, up := newTestSession(readyInstrument())
	_ = s.OnFieldChange(FieldSlShortStep, "-12.345")
	if err := s.OnFieldCommit(context.Background(), FieldSlShortStep); err != nil {
		t.Fatalf("commit: %v", err)
	}
	if len(up.patches) != 1 || up.patches[0].SlShort == nil {
		t.Fatalf("expected one SlShort patch, got %+v", up.patches)
	}
	if got := up.patches[0].SlShort; got.StepUsdt != 12.35 || got.Count != 5 {
		t.Fatalf("patch got=%+v want step=12.35 count=5", *got)
	}
	if s.Text(FieldSlShortStep) != "12.35" {
		t.Fatalf("draft got=%q want=12.35", s.Text(FieldSlShortStep))
	}
}

func TestCommitTakeProfitVolumes(t *testing.T) {
	s, up := newTestSession(readyInstrument())
	ctx := context.Background()

	_ = s.OnFieldChange(FieldTp1Volume, "70")
	if err := s.OnFieldCommit(ctx, FieldTp1Volume); err != nil {
		t.Fatalf("commit: %v", err)
	}
	if len(up.patches) != 1 {
		t.Fatalf("updates got=%d want=1", len(up.patches))
	}
	inst, _ := s.Instrument()
	if inst.TpLevels[0].VolumePercent != 70 || inst.TpLevels[1].VolumePercent != 30 {
		t.Fatalf("tp got=%+v want 70/30", inst.TpLevels)
	}
	if inst.TpLevels[0].StepUsdt != 50 || inst.TpLevels[1].StepUsdt != 100 {
		t.Fatalf("tp steps lost: %+v", inst.TpLevels)
	}
	if s.Text(FieldTp2Volume) != "30" {
		t.Fatalf("tp2 draft got=%q want=30", s.Text(FieldTp2Volume))
	}

	_ = s.OnFieldChange(FieldTp1Volume, "150")
	_ = s.OnFieldCommit(ctx, FieldTp1Volume)
	inst, _ = s.Instrument()
	if inst.TpLevels[0].VolumePercent != 99 || inst.TpLevels[1].VolumePercent != 1 {
		t.Fatalf("tp got=%+v want 99/1", inst.TpLevels)
	}

	_ = s.OnFieldChange(FieldTp2Volume, "29.7")
	_ = s.OnFieldCommit(ctx, FieldTp2Volume)
	inst, _ = s.Instrument()
	if inst.TpLevels[0].VolumePercent != 70.3 || inst.TpLevels[1].VolumePercent != 29.7 {
		t.Fatalf("tp got=%+v want 70.3/29.7", inst.TpLevels)
	}
	if s.Text(FieldTp1Volume) != "70.3" {
		t.Fatalf("tp1 draft got=%q want=70.3", s.Text(FieldTp1Volume))
	}
	if err := inst.CheckConsistency(); err != nil {
		t.Fatalf("inconsistent after commit: %v", err)
	}
}

func TestCommitStopLossCounts(t *testing.T) {
	s, up := newTestSession(readyInstrument())
	ctx := context.Background()

	_ = s.OnFieldChange(FieldSlLongCount, "8")
	if err := s.OnFieldCommit(ctx, FieldSlLongCount); err != nil {
		t.Fatalf("commit: %v", err)
	}
	p := up.patches[0]
	if p.SlLong == nil || p.SlShort == nil {
		t.Fatalf("paired commit must carry both sides: %+v", p)
	}
	inst, _ := s.Instrument()
	if inst.SlLong.Count != 8 || inst.SlShort.Count != 2 {
		t.Fatalf("sl got=%d/%d want=8/2", inst.SlLong.Count, inst.SlShort.Count)
	}

	_ = s.OnFieldChange(FieldSlShortCount, "1")
	_ = s.OnFieldCommit(ctx, FieldSlShortCount)
	inst, _ = s.Instrument()
	if inst.SlLong.Count != 8 || inst.SlShort.Count != 1 {
		t.Fatalf("sl got=%d/%d want=8/1", inst.SlLong.Count, inst.SlShort.Count)
	}
	if s.Text(FieldSlShortCount) != "1" || s.Text(FieldSlLongCount) != "8" {
		t.Fatalf("draft got=%q/%q", s.Text(FieldSlLongCount), s.Text(FieldSlShortCount))
	}
}

func TestCommitFailureKeepsDraftAndModel(t *testing.T) {
	s, up := newTestSession(readyInstrument())
	up.err = errors.New("backend down")

	_ = s.OnFieldChange(FieldTp1Volume, "150")
	err := s.OnFieldCommit(context.Background(), FieldTp1Volume)
	var ce *CommitError
	if !errors.As(err, &ce) || ce.Field != FieldTp1Volume {
		t.Fatalf("err got=%v want CommitError on tp1Volume", err)
	}
	if !errors.Is(err, up.err) {
		t.Fatalf("CommitError must wrap the update error")
	}
	if s.Text(FieldTp1Volume) != "150" || s.Text(FieldTp2Volume) != "50" {
		t.Fatalf("draft reset on failure: %q/%q", s.Text(FieldTp1Volume), s.Text(FieldTp2Volume))
	}
	inst, _ := s.Instrument()
	if inst.TpLevels[0].VolumePercent != 50 {
		t.Fatalf("model changed on failure: %+v", inst.TpLevels)
	}
}

func TestActiveInstrumentIsReadOnly(t *testing.T) {
	inst := readyInstrument()
	inst.IsActive = true
	s, up := newTestSession(inst)

	if err := s.OnFieldChange(FieldEntryPrice, "1"); !errors.Is(err, ErrReadOnly) {
		t.Fatalf("OnFieldChange err got=%v want ErrReadOnly", err)
	}
	if err := s.OnFieldCommit(context.Background(), FieldEntryPrice); !errors.Is(err, ErrReadOnly) {
		t.Fatalf("OnFieldCommit err got=%v want ErrReadOnly", err)
	}
	if err := s.SetRefillEnabled(context.Background(), true); !errors.Is(err, ErrReadOnly) {
		t.Fatalf("SetRefillEnabled err got=%v want ErrReadOnly", err)
	}
	if len(up.patches) != 0 {
		t.Fatalf("read-only instrument received updates")
	}
}

func TestSetActiveGate(t *testing.T) {
	ctx := context.Background()

	inst := readyInstrument()
	inst.EntryPriceUsdt = 0
	s, up := newTestSession(inst)
	err := s.SetActive(ctx, true)
	var ae *ActivationError
	if !errors.As(err, &ae) || ae.Field != "entryPriceUsdt" {
		t.Fatalf("err got=%v want ActivationError(entryPriceUsdt)", err)
	}
	if len(up.patches) != 0 {
		t.Fatalf("blocked activation must not update")
	}

	ready := readyInstrument()
	up2 := &fakeUpdater{inst: ready}
	noKeys := NewSession(up2, fakeGate(false))
	noKeys.Select(&ready)
	if err := noKeys.SetActive(ctx, true); !errors.Is(err, ErrCredentialsMissing) {
		t.Fatalf("err got=%v want ErrCredentialsMissing", err)
	}

	s3, up3 := newTestSession(readyInstrument())
	if err := s3.SetActive(ctx, true); err != nil {
		t.Fatalf("activate: %v", err)
	}
	if got, _ := s3.Instrument(); !got.IsActive || !up3.inst.IsActive {
		t.Fatalf("instrument not active after SetActive(true)")
	}
}

func TestDeactivationIsNeverGated(t *testing.T) {
	inst := domain.DefaultInstrument("ETHUSDT", domain.SymbolSpec{})
	inst.IsActive = true
	up := &fakeUpdater{inst: inst}
	s := NewSession(up, fakeGate(false))
	s.Select(&inst)

	if err := s.SetActive(context.Background(), false); err != nil {
		t.Fatalf("deactivate: %v", err)
	}
	if got, _ := s.Instrument(); got.IsActive {
		t.Fatalf("still active")
	}
}

func TestSelectResetsDraftOnlyOnSymbolChange(t *testing.T) {
	a := readyInstrument()
	s, _ := newTestSession(a)
	_ = s.OnFieldChange(FieldEntryVolume, "12")

	refreshed := a
	refreshed.EntryPriceUsdt = 1
	s.Select(&refreshed)
	if s.Text(FieldEntryVolume) != "12" {
		t.Fatalf("same-symbol refresh lost draft text")
	}

	b := domain.DefaultInstrument("ETHUSDT", domain.SymbolSpec{VolumeDecimals: 2})
	s.Select(&b)
	if s.Text(FieldEntryVolume) != "0.00" {
		t.Fatalf("draft not reinitialized: %q", s.Text(FieldEntryVolume))
	}

	s.Select(nil)
	if _, ok := s.Instrument(); ok || s.Text(FieldEntryVolume) != "" {
		t.Fatalf("nil selection must clear session")
	}
	if err := s.OnFieldCommit(context.Background(), FieldEntryVolume); !errors.Is(err, ErrNoInstrument) {
		t.Fatalf("err got=%v want ErrNoInstrument", err)
	}
}

func TestSetRefillEnabled(t *testing.T) {
	s, up := newTestSession(readyInstrument())
	if err := s.SetRefillEnabled(context.Background(), true); err != nil {
		t.Fatalf("toggle refill: %v", err)
	}
	if !up.inst.Refill.Enabled {
		t.Fatalf("refill not enabled")
	}
	if res := ValidateBeforeActivation(up.inst); res.Valid || res.Field != "refillLongPrice" {
		t.Fatalf("enabled empty refill must block activation, got %+v", res)
	}
}

func TestCommitHugeStopLossCountClampsToMax(t *testing.T) {
	for _, raw := range []string{"1e20", "99999999999999999999"} {
		s, _ := newTestSession(readyInstrument())
		_ = s.OnFieldChange(FieldSlLongCount, raw)
		if err := s.OnFieldCommit(context.Background(), FieldSlLongCount); err != nil {
			t.Fatalf("%s: commit: %v", raw, err)
		}
		inst, _ := s.Instrument()
		if inst.SlLong.Count != 10 || inst.SlShort.Count != 1 {
			t.Fatalf("%s: sl got=%d/%d want=10/1", raw, inst.SlLong.Count, inst.SlShort.Count)
		}
		if s.Text(FieldSlLongCount) != "10" {
			t.Fatalf("%s: draft got=%q want=10", raw, s.Text(FieldSlLongCount))
		}
	}
}

func TestPairedCommitKeepsCounterpartTypedDuringRoundTrip(t *testing.T) {
	s, up := newTestSession(readyInstrument())
	up.during = func() { _ = s.OnFieldChange(FieldTp2Volume, "4") }

	_ = s.OnFieldChange(FieldTp1Volume, "70")
	if err := s.OnFieldCommit(context.Background(), FieldTp1Volume); err != nil {
		t.Fatalf("commit: %v", err)
	}
	if got := s.Text(FieldTp1Volume); got != "70" {
		t.Fatalf("tp1 text got=%q want=70", got)
	}
	if got := s.Text(FieldTp2Volume); got != "4" {
		t.Fatalf("tp2 text got=%q want=4 (typed during commit)", got)
	}
	inst, _ := s.Instrument()
	if inst.TpLevels[1].VolumePercent != 30 {
		t.Fatalf("tp2 committed got=%v want=30", inst.TpLevels[1].VolumePercent)
	}
}
