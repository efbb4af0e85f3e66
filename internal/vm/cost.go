package vm

// CostModel prices interpreter operations. Reads and writes have a cold
// price and a warm price; cached operations that hit the read cache are
// charged warm.
type CostModel struct {
	Dup    uint64
	Push   uint64
	Popeq  uint64
	Size   uint64
	Member uint64
	Eq     uint64

	ReadCold  uint64
	ReadWarm  uint64
	WriteCold uint64
	WriteWarm uint64
}

// DummyCostModel returns the flat development pricing used when no real
// pricing is configured.
func DummyCostModel() CostModel {
	return CostModel{
		Dup:       1,
		Push:      1,
		Popeq:     1,
		Size:      1,
		Member:    1,
		Eq:        1,
		ReadCold:  10,
		ReadWarm:  2,
		WriteCold: 20,
		WriteWarm: 5,
	}
}

func (c CostModel) read(warm bool) uint64 {
	if warm {
		return c.ReadWarm
	}
	return c.ReadCold
}

func (c CostModel) write(warm bool) uint64 {
	if warm {
		return c.WriteWarm
	}
	return c.WriteCold
}
