package mockserver

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/betbot/gridhedge/internal/domain"
	"github.com/betbot/gridhedge/pkg/sdk/api"
)

// DefaultSpecs 内置的交易对步长
func DefaultSpecs() []api.SymbolSpec {
	return []api.SymbolSpec{
		{Symbol: "BTCUSDT", TickSize: "0.10", QtyStep: "0.001"},
		{Symbol: "ETHUSDT", TickSize: "0.01", QtyStep: "0.01"},
		{Symbol: "SOLUSDT", TickSize: "0.010", QtyStep: "0.1"},
		{Symbol: "XRPUSDT", TickSize: "0.0001", QtyStep: "1"},
	}
}

type specFile struct {
	Specs []struct {
		Symbol   string `yaml:"symbol"`
		TickSize string `yaml:"tick_size"`
		QtyStep  string `yaml:"qty_step"`
	} `yaml:"specs"`
}

// LoadSpecs 从 YAML 文件读取步长列表。
// 步长按字符串读取，保留 "0.10" 这类末尾的 0。
func LoadSpecs(path string) ([]api.SymbolSpec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read specs file: %w", err)
	}
	var f specFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse specs file: %w", err)
	}
	if len(f.Specs) == 0 {
		return nil, fmt.Errorf("specs file %s has no entries", path)
	}
	out := make([]api.SymbolSpec, 0, len(f.Specs))
	for _, s := range f.Specs {
		out = append(out, api.SymbolSpec{Symbol: s.Symbol, TickSize: s.TickSize, QtyStep: s.QtyStep})
	}
	return out, nil
}

func defaultInstrument(spec api.SymbolSpec) domain.Instrument {
	return domain.DefaultInstrument(spec.Symbol, spec.ToDomain())
}
