package unitcell

import (
	"encoding/binary"
	"hash/fnv"
	"strconv"

	"github.com/roach88/livecode/internal/evalctx"
)

// DefaultPrefix is used when a repeat block doesn't name its own.
const DefaultPrefix = "i_"

// RandomDraws is the number of rnK bindings each index exports.
const RandomDraws = 6

// Index is a position inside a repeat's iteration space. Pure value type.
type Index struct {
	X, Y, Z                int
	TotalX, TotalY, TotalZ int
	Seed                   uint32
}

// NewIndex creates an Index and derives its seed from the coordinates.
// Totals below 1 are treated as 1.
func NewIndex(x, y, z, totalX, totalY, totalZ int) Index {
	idx := Index{
		X: x, Y: y, Z: z,
		TotalX: max(totalX, 1), TotalY: max(totalY, 1), TotalZ: max(totalZ, 1),
	}
	idx.Seed = seedFor(idx)
	return idx
}

// seedFor hashes the position and extent so identical specs always produce
// identical seeds.
func seedFor(idx Index) uint32 {
	h := fnv.New32a()
	var buf [4]byte
	for _, v := range []int{idx.X, idx.Y, idx.Z, idx.TotalX, idx.TotalY, idx.TotalZ} {
		binary.LittleEndian.PutUint32(buf[:], uint32(v))
		h.Write(buf[:])
	}
	return h.Sum32()
}

// Within returns i with its seed mixed with the seed of the enclosing
// index, so every outer cell draws different rnK values for its inner cells.
// The prefix plays no part: renaming a repeat keeps its draws.
func (i Index) Within(outer Index) Index {
	h := fnv.New32a()
	var buf [8]byte
	binary.LittleEndian.PutUint32(buf[:4], outer.Seed)
	binary.LittleEndian.PutUint32(buf[4:], i.Seed)
	h.Write(buf[:])
	i.Seed = h.Sum32()
	return i
}

// Linear returns the x-fastest flat position.
func (i Index) Linear() int {
	return i.X + i.Y*i.TotalX + i.Z*i.TotalX*i.TotalY
}

// Total returns the number of cells in the iteration space.
func (i Index) Total() int {
	return i.TotalX * i.TotalY * i.TotalZ
}

// Frac is Linear()/Total(), in [0, 1).
func (i Index) Frac() float64 {
	return float64(i.Linear()) / float64(i.Total())
}

// Rn returns the k-th deterministic pseudo-random draw for this cell.
func (i Index) Rn(k int) float64 {
	return evalctx.Rn(float64(i.Seed), k)
}

// unit maps a coordinate to [0, 1] inclusive of both ends.
func unit(v, total int) float64 {
	if total <= 1 {
		return 0
	}
	return float64(v) / float64(total-1)
}

// Bindings returns the index variables without a prefix:
// x, y, z in [0, 1]; x_i, y_i, z_i; x_total, y_total, z_total; seed; frac; rn0..rn5.
func (i Index) Bindings() []evalctx.Binding {
	b := []evalctx.Binding{
		evalctx.Num("x", unit(i.X, i.TotalX)),
		evalctx.Num("y", unit(i.Y, i.TotalY)),
		evalctx.Num("z", unit(i.Z, i.TotalZ)),
		evalctx.Num("x_i", float64(i.X)),
		evalctx.Num("y_i", float64(i.Y)),
		evalctx.Num("z_i", float64(i.Z)),
		evalctx.Num("x_total", float64(i.TotalX)),
		evalctx.Num("y_total", float64(i.TotalY)),
		evalctx.Num("z_total", float64(i.TotalZ)),
		evalctx.Num("seed", float64(i.Seed)),
		evalctx.Num("frac", i.Frac()),
	}
	for k := 0; k < RandomDraws; k++ {
		b = append(b, evalctx.Num("rn"+strconv.Itoa(k), i.Rn(k)))
	}
	return b
}

// Layer returns the bindings as a definition layer under prefix.
// An empty prefix means DefaultPrefix.
func (i Index) Layer(prefix string) (*evalctx.Layer, error) {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return evalctx.NewBindings(prefix, i.Bindings()...)
}
