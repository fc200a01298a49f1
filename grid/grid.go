// Package grid provides the uniform spatial hash index rebuilt every
// sub-step. Particle positions hash to cells by positive modulo, the
// cell/particle id pairs are radix-sorted by cell, and cellStart gives the
// first sorted index per cell. Wrapping keeps out-of-domain particles
// hashable; it does not implement toroidal physics.
package grid

import (
	"github.com/PeterZhouSZ/brasstower/vecmath"
)

// NoCell is the cellStart sentinel for an empty cell.
const NoCell int32 = -1

// Grid is the uniform spatial index.
type Grid struct {
	dimX, dimY, dimZ int
	cellSize         float32
	invCellSize      float32
	origin           vecmath.Vec3
	maxPerCell       int

	// Per-particle pair stream, unsorted then sorted by cell id.
	CellIDs           []int32
	ParticleIDs       []int32
	SortedCellIDs     []int32
	SortedParticleIDs []int32

	// CellStart[c] is the first sorted index with cell id c, or NoCell.
	CellStart []int32

	n    int
	sort radixScratch
}

// New creates a grid of dimX*dimY*dimZ cells with the given cell size and
// origin, able to index up to maxParticles particles. maxPerCell caps how many
// particles a neighbour scan visits in one cell; over-dense cells are silently
// truncated.
func New(dimX, dimY, dimZ int, cellSize float32, origin vecmath.Vec3, maxParticles, maxPerCell int) *Grid {
	return &Grid{
		dimX:              dimX,
		dimY:              dimY,
		dimZ:              dimZ,
		cellSize:          cellSize,
		invCellSize:       1 / cellSize,
		origin:            origin,
		maxPerCell:        maxPerCell,
		CellIDs:           make([]int32, maxParticles),
		ParticleIDs:       make([]int32, maxParticles),
		SortedCellIDs:     make([]int32, maxParticles),
		SortedParticleIDs: make([]int32, maxParticles),
		CellStart:         make([]int32, dimX*dimY*dimZ),
	}
}

// CellCoords returns the wrapped cell coordinates for position p.
func (g *Grid) CellCoords(p vecmath.Vec3) (int, int, int) {
	x := wrap(int(vecmath.Floor((p.X-g.origin.X)*g.invCellSize)), g.dimX)
	y := wrap(int(vecmath.Floor((p.Y-g.origin.Y)*g.invCellSize)), g.dimY)
	z := wrap(int(vecmath.Floor((p.Z-g.origin.Z)*g.invCellSize)), g.dimZ)
	return x, y, z
}

// CellIndex returns the flat cell id for wrapped coordinates.
func (g *Grid) CellIndex(x, y, z int) int32 {
	return int32((z*g.dimY+y)*g.dimX + x)
}

// CellID returns the flat cell id for position p.
func (g *Grid) CellID(p vecmath.Vec3) int32 {
	x, y, z := g.CellCoords(p)
	return g.CellIndex(x, y, z)
}

// wrap maps c into [0, dim) by positive modulo.
func wrap(c, dim int) int {
	c %= dim
	if c < 0 {
		c += dim
	}
	return c
}

// Update rebuilds the index over the first n entries of positions.
func (g *Grid) Update(positions []vecmath.Vec3, n int) {
	g.n = n

	for i := range g.CellStart {
		g.CellStart[i] = NoCell
	}

	for i := 0; i < n; i++ {
		g.CellIDs[i] = g.CellID(positions[i])
		g.ParticleIDs[i] = int32(i)
	}

	g.sort.sortPairs(g.CellIDs[:n], g.ParticleIDs[:n], g.SortedCellIDs[:n], g.SortedParticleIDs[:n])

	if n > 0 {
		g.CellStart[g.SortedCellIDs[0]] = 0
		for i := 1; i < n; i++ {
			if g.SortedCellIDs[i] != g.SortedCellIDs[i-1] {
				g.CellStart[g.SortedCellIDs[i]] = int32(i)
			}
		}
	}
}

// NeighborsInto appends to dst the particle ids in the (2k+1)³ cell
// neighbourhood around p, where k is the search radius in cells. Each cell's
// scan stops at the per-cell cap. Reuse dst across calls to avoid allocations.
func (g *Grid) NeighborsInto(dst []int32, p vecmath.Vec3, k int) []int32 {
	cx, cy, cz := g.CellCoords(p)

	for dz := -k; dz <= k; dz++ {
		z := wrap(cz+dz, g.dimZ)
		for dy := -k; dy <= k; dy++ {
			y := wrap(cy+dy, g.dimY)
			for dx := -k; dx <= k; dx++ {
				x := wrap(cx+dx, g.dimX)
				cell := g.CellIndex(x, y, z)

				start := g.CellStart[cell]
				if start == NoCell {
					continue
				}
				end := int(start) + g.maxPerCell
				if end > g.n {
					end = g.n
				}
				for i := int(start); i < end && g.SortedCellIDs[i] == cell; i++ {
					dst = append(dst, g.SortedParticleIDs[i])
				}
			}
		}
	}
	return dst
}

// radixScratch holds the monotonically growing temp buffers for the pair
// sort. It is an LSD byte-radix sort over the 32-bit cell ids.
type radixScratch struct {
	tmpKeys []int32
	tmpVals []int32
}

// ensure grows the temp buffers to at least n entries. They never shrink.
func (r *radixScratch) ensure(n int) {
	if cap(r.tmpKeys) < n {
		r.tmpKeys = make([]int32, n)
		r.tmpVals = make([]int32, n)
	}
	r.tmpKeys = r.tmpKeys[:n]
	r.tmpVals = r.tmpVals[:n]
}

// sortPairs radix-sorts (keys, vals) by key ascending into (outKeys, outVals).
// Cell ids are non-negative, so four unsigned byte passes suffice.
func (r *radixScratch) sortPairs(keys, vals, outKeys, outVals []int32) {
	n := len(keys)
	if n == 0 {
		return
	}
	r.ensure(n)

	// Sort ping-pongs between the output buffers and the scratch pair; the
	// unsorted input stays intact. Four passes land the result in out.
	copy(outKeys, keys)
	copy(outVals, vals)
	src, srcV := outKeys, outVals
	dst, dstV := r.tmpKeys, r.tmpVals

	var counts [256]int
	for shift := 0; shift < 32; shift += 8 {
		for i := range counts {
			counts[i] = 0
		}
		for _, k := range src {
			counts[(uint32(k)>>shift)&0xff]++
		}
		sum := 0
		for i := range counts {
			c := counts[i]
			counts[i] = sum
			sum += c
		}
		for i, k := range src {
			b := (uint32(k) >> shift) & 0xff
			dst[counts[b]] = k
			dstV[counts[b]] = srcV[i]
			counts[b]++
		}
		src, dst = dst, src
		srcV, dstV = dstV, srcV
	}
}
