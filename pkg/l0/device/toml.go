package device

import (
	"fmt"

	"github.com/BurntSushi/toml"
)

type tomlTable struct {
	Device []Descriptor `toml:"device"`
}

// Merge adds or replaces descriptors.
func (r *Registry) Merge(ds ...Descriptor) error {
	for _, d := range ds {
		if err := r.Set(d); err != nil {
			return err
		}
	}
	return nil
}

// LoadTOML reads [[device]] tables and merges them into r.
func (r *Registry) LoadTOML(data string) error {
	var table tomlTable
	if _, err := toml.Decode(data, &table); err != nil {
		return fmt.Errorf("parsing device table: %w", err)
	}
	return r.Merge(table.Device...)
}
