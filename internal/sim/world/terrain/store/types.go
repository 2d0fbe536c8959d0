package store

import (
	"crypto/sha256"
	"encoding/binary"
)

// Size is the edge length of a cubic chunk.
const Size = 16

type ChunkKey struct {
	CX int
	CY int
	CZ int
}

type Chunk struct {
	Key    ChunkKey
	Blocks []uint16 // len = 16*16*16

	dirty bool
	hash  [32]byte
}

func newChunk(k ChunkKey) *Chunk {
	return &Chunk{Key: k, Blocks: make([]uint16, Size*Size*Size)}
}

func (c *Chunk) index(x, y, z int) int {
	// x fastest, then z, then y
	return x + z*Size + y*Size*Size
}

func (c *Chunk) Get(x, y, z int) uint16 {
	return c.Blocks[c.index(x, y, z)]
}

func (c *Chunk) Set(x, y, z int, b uint16) {
	i := c.index(x, y, z)
	if c.Blocks[i] == b {
		return
	}
	c.Blocks[i] = b
	c.dirty = true
}

func (c *Chunk) Digest() [32]byte {
	if c.dirty || c.hash == ([32]byte{}) {
		h := sha256.New()
		var tmp [2]byte
		for _, v := range c.Blocks {
			binary.LittleEndian.PutUint16(tmp[:], v)
			h.Write(tmp[:])
		}
		copy(c.hash[:], h.Sum(nil))
		c.dirty = false
	}
	return c.hash
}

// Gen fills fresh chunks. Voxels with MinY <= y <= FloorY get Floor.
type Gen struct {
	MinY   int
	MaxY   int
	FloorY int
	Floor  uint16
	Air    uint16
}

type ChunkStore struct {
	Gen    Gen
	Chunks map[ChunkKey]*Chunk
}

func NewChunkStore(gen Gen) *ChunkStore {
	return &ChunkStore{
		Gen:    gen,
		Chunks: map[ChunkKey]*Chunk{},
	}
}
