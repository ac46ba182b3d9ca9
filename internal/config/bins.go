package config

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"net/url"

	"gopkg.in/yaml.v3"
)

//go:embed bins.yaml
var binsYAML []byte

// BinConfig ties one sensor slot to its feed field and physical location.
type BinConfig struct {
	Slot  string `yaml:"slot"`
	Field string `yaml:"field"`
	Name  string `yaml:"name"`
	URL   string `yaml:"url"`
}

type binTable struct {
	Bins []BinConfig `yaml:"bins"`
}

// MustLoadBins returns the bin table compiled into the binary.
func MustLoadBins() []BinConfig {
	bins, err := ParseBins(binsYAML)
	if err != nil {
		panic("failed to read bin table: " + err.Error())
	}
	return bins
}

func ParseBins(data []byte) ([]BinConfig, error) {
	var table binTable
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&table); err != nil {
		return nil, fmt.Errorf("failed to decode bin table: %w", err)
	}

	if len(table.Bins) == 0 {
		return nil, errors.New("bin table is empty")
	}

	slots := make(map[string]struct{}, len(table.Bins))
	fields := make(map[string]struct{}, len(table.Bins))
	for i, b := range table.Bins {
		if b.Slot == "" || b.Field == "" || b.Name == "" {
			return nil, fmt.Errorf("bin %d: slot, field and name are required", i+1)
		}
		if _, dup := slots[b.Slot]; dup {
			return nil, fmt.Errorf("bin %d: duplicate slot %q", i+1, b.Slot)
		}
		if _, dup := fields[b.Field]; dup {
			return nil, fmt.Errorf("bin %d: duplicate field %q", i+1, b.Field)
		}
		u, err := url.Parse(b.URL)
		if err != nil || !u.IsAbs() {
			return nil, fmt.Errorf("bin %d: url must be absolute: %q", i+1, b.URL)
		}
		slots[b.Slot] = struct{}{}
		fields[b.Field] = struct{}{}
	}

	return table.Bins, nil
}
