package domain

import "testing"

func TestDefaultInstrumentIsConsistent(t *testing.T) {
	inst := DefaultInstrument("BTCUSDT", SymbolSpec{Symbol: "BTCUSDT", TickSize: 0.1, QtyStep: 0.001, PriceDecimals: 1, VolumeDecimals: 3})
	if err := inst.CheckConsistency(); err != nil {
		t.Fatalf("default instrument inconsistent: %v", err)
	}
	if inst.IsActive || inst.Refill.Enabled {
		t.Fatalf("default instrument must be inactive with refill disabled: %+v", inst)
	}
	if inst.PriceDecimals != 1 || inst.VolumeDecimals != 3 {
		t.Fatalf("decimals got=%d/%d want=1/3", inst.PriceDecimals, inst.VolumeDecimals)
	}
}

func TestApplyDoesNotMutateReceiver(t *testing.T) {
	base := DefaultInstrument("ETHUSDT", SymbolSpec{})
	price := 2500.5
	levels := [2]TakeProfitLevel{{StepUsdt: 10, VolumePercent: 70}, {StepUsdt: 20, VolumePercent: 30}}
	active := true

	out := base.Apply(InstrumentPatch{EntryPriceUsdt: &price, TpLevels: &levels, IsActive: &active})

	if base.EntryPriceUsdt != 0 || base.TpLevels[0].VolumePercent != 50 || base.IsActive {
		t.Fatalf("receiver mutated: %+v", base)
	}
	if out.EntryPriceUsdt != price || out.TpLevels != levels || !out.IsActive {
		t.Fatalf("patch not applied: %+v", out)
	}
	levels[0].VolumePercent = 1
	if out.TpLevels[0].VolumePercent != 70 {
		t.Fatalf("result shares storage with patch")
	}
}

func TestCheckConsistency(t *testing.T) {
	cases := []struct {
		name    string
		mutate  func(*Instrument)
		wantErr bool
	}{
		{"tp sum below 100", func(i *Instrument) { i.TpLevels[1].VolumePercent = 40 }, true},
		{"tp split 70.3/29.7", func(i *Instrument) {
			i.TpLevels[0].VolumePercent = 70.3
			i.TpLevels[1].VolumePercent = 29.7
		}, false},
		{"sl count zero", func(i *Instrument) { i.SlLong.Count = 0 }, true},
		{"sl total 11", func(i *Instrument) { i.SlLong.Count = 6 }, true},
		{"sl total 9", func(i *Instrument) { i.SlLong.Count = 8; i.SlShort.Count = 1 }, false},
	}
	for _, tc := range cases {
		inst := DefaultInstrument("SOLUSDT", SymbolSpec{})
		tc.mutate(&inst)
		err := inst.CheckConsistency()
		if (err != nil) != tc.wantErr {
			t.Fatalf("%s: err=%v wantErr=%v", tc.name, err, tc.wantErr)
		}
	}
}
