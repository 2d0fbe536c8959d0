package store

import (
	"crypto/sha256"
	"encoding/binary"
	"sort"

	"voxelportals.ai/internal/sim/geom"
)

func (s *ChunkStore) InBounds(y int) bool {
	return y >= s.Gen.MinY && y < s.Gen.MaxY
}

func (s *ChunkStore) LoadedChunkKeys() []ChunkKey {
	keys := make([]ChunkKey, 0, len(s.Chunks))
	for k := range s.Chunks {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].CY != keys[j].CY {
			return keys[i].CY < keys[j].CY
		}
		if keys[i].CX != keys[j].CX {
			return keys[i].CX < keys[j].CX
		}
		return keys[i].CZ < keys[j].CZ
	})
	return keys
}

func split(pos geom.Vec3i) (ChunkKey, int, int, int) {
	k := ChunkKey{
		CX: geom.FloorDiv(pos.X, Size),
		CY: geom.FloorDiv(pos.Y, Size),
		CZ: geom.FloorDiv(pos.Z, Size),
	}
	return k, geom.Mod(pos.X, Size), geom.Mod(pos.Y, Size), geom.Mod(pos.Z, Size)
}

func (s *ChunkStore) GetBlock(pos geom.Vec3i) uint16 {
	if !s.InBounds(pos.Y) {
		return s.Gen.Air
	}
	k, lx, ly, lz := split(pos)
	return s.GetOrGenChunk(k).Get(lx, ly, lz)
}

// SetBlock writes a block; writes outside the height range are ignored.
func (s *ChunkStore) SetBlock(pos geom.Vec3i, b uint16) {
	if !s.InBounds(pos.Y) {
		return
	}
	k, lx, ly, lz := split(pos)
	s.GetOrGenChunk(k).Set(lx, ly, lz, b)
}

// HasCollision reports whether any non-air voxel overlaps box.
func (s *ChunkStore) HasCollision(box geom.AABB) bool {
	lo, hi, ok := box.Voxels()
	if !ok {
		return false
	}
	if lo.Y < s.Gen.MinY {
		lo.Y = s.Gen.MinY
	}
	if hi.Y >= s.Gen.MaxY {
		hi.Y = s.Gen.MaxY - 1
	}
	for y := lo.Y; y <= hi.Y; y++ {
		for z := lo.Z; z <= hi.Z; z++ {
			for x := lo.X; x <= hi.X; x++ {
				if s.GetBlock(geom.Vec3i{X: x, Y: y, Z: z}) != s.Gen.Air {
					return true
				}
			}
		}
	}
	return false
}

func (s *ChunkStore) GetOrGenChunk(k ChunkKey) *Chunk {
	if ch, ok := s.Chunks[k]; ok {
		return ch
	}
	ch := newChunk(k)
	s.GenerateChunk(ch)
	ch.dirty = true
	_ = ch.Digest()
	s.Chunks[k] = ch
	return ch
}

func (s *ChunkStore) GenerateChunk(ch *Chunk) {
	g := s.Gen
	if g.Floor == g.Air {
		return
	}
	for ly := 0; ly < Size; ly++ {
		y := ch.Key.CY*Size + ly
		if y < g.MinY || y > g.FloorY || y >= g.MaxY {
			continue
		}
		for i := ly * Size * Size; i < (ly+1)*Size*Size; i++ {
			ch.Blocks[i] = g.Floor
		}
	}
}

// Digest hashes all loaded chunks in key order.
func (s *ChunkStore) Digest() [32]byte {
	h := sha256.New()
	var tmp [8]byte
	for _, k := range s.LoadedChunkKeys() {
		for _, v := range []int{k.CX, k.CY, k.CZ} {
			binary.LittleEndian.PutUint64(tmp[:], uint64(int64(v)))
			h.Write(tmp[:])
		}
		d := s.Chunks[k].Digest()
		h.Write(d[:])
	}
	var out [32]byte
	copy(out[:], h.Sum(nil))
	return out
}
