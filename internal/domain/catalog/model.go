package catalog

import (
	"github.com/Spok95/stockbook/internal/domain/bundles"
	"github.com/Spok95/stockbook/internal/domain/materials"
)

// Snapshot материалы и наборы на момент чтения, по id. Себестоимость и
// списания считаются только по снапшоту, без обращений к хранилищу.
type Snapshot struct {
	Materials map[string]materials.Material
	Bundles   map[string]bundles.Bundle
}

func NewSnapshot(mats []materials.Material, bs []bundles.Bundle) Snapshot {
	s := Snapshot{
		Materials: make(map[string]materials.Material, len(mats)),
		Bundles:   make(map[string]bundles.Bundle, len(bs)),
	}
	for _, m := range mats {
		s.Materials[m.ID] = m
	}
	for _, b := range bs {
		s.Bundles[b.ID] = b
	}
	return s
}

func (s Snapshot) Material(id string) (materials.Material, bool) {
	m, ok := s.Materials[id]
	return m, ok
}

func (s Snapshot) Bundle(id string) (bundles.Bundle, bool) {
	b, ok := s.Bundles[id]
	return b, ok
}
