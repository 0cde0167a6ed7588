package evalctx

import (
	"math"
	"math/rand/v2"
)

// perm is the doubled permutation table for Perlin noise. It comes from a
// fixed PCG seed so every process produces the same field.
var perm = func() [512]int {
	var p [512]int
	r := rand.New(rand.NewPCG(0x6c69766563, 0x6f6465))
	for i, v := range r.Perm(256) {
		p[i] = v
		p[i+256] = v
	}
	return p
}()

// Perlin returns improved Perlin noise at (x, y, z), roughly in [-1, 1].
func Perlin(x, y, z float64) float64 {
	fx, fy, fz := math.Floor(x), math.Floor(y), math.Floor(z)
	X, Y, Z := int(fx)&255, int(fy)&255, int(fz)&255
	x, y, z = x-fx, y-fy, z-fz
	u, v, w := fade(x), fade(y), fade(z)

	a := perm[X] + Y
	aa := perm[a] + Z
	ab := perm[a+1] + Z
	b := perm[X+1] + Y
	ba := perm[b] + Z
	bb := perm[b+1] + Z

	return Lerp(
		Lerp(
			Lerp(grad(perm[aa], x, y, z), grad(perm[ba], x-1, y, z), u),
			Lerp(grad(perm[ab], x, y-1, z), grad(perm[bb], x-1, y-1, z), u),
			v),
		Lerp(
			Lerp(grad(perm[aa+1], x, y, z-1), grad(perm[ba+1], x-1, y, z-1), u),
			Lerp(grad(perm[ab+1], x, y-1, z-1), grad(perm[bb+1], x-1, y-1, z-1), u),
			v),
		w)
}

func fade(t float64) float64 {
	return t * t * t * (t*(t*6-15) + 10)
}

func grad(hash int, x, y, z float64) float64 {
	h := hash & 15
	u := x
	if h >= 8 {
		u = y
	}
	var v float64
	switch {
	case h < 4:
		v = y
	case h == 12 || h == 14:
		v = x
	default:
		v = z
	}
	if h&1 != 0 {
		u = -u
	}
	if h&2 != 0 {
		v = -v
	}
	return u + v
}

// Rn returns the idx-th deterministic pseudo-random draw for seed, in [0, 1).
// The generator is keyed on (seed, idx) alone, so any draw can be taken
// without producing the ones before it.
func Rn(seed float64, idx int) float64 {
	r := rand.New(rand.NewPCG(math.Float64bits(seed), uint64(idx)))
	return r.Float64()
}
