package store

import (
	"fmt"

	snapv1 "voxelportals.ai/internal/persistence/snapshot"
)

// ExportLoadedChunks converts loaded chunk data into snapshot chunks.
func ExportLoadedChunks(chunks map[ChunkKey]*Chunk, keys []ChunkKey) []snapv1.ChunkV1 {
	out := make([]snapv1.ChunkV1, 0, len(keys))
	for _, k := range keys {
		ch := chunks[k]
		if ch == nil {
			continue
		}
		blocks := make([]uint16, len(ch.Blocks))
		copy(blocks, ch.Blocks)
		out = append(out, snapv1.ChunkV1{
			CX:     k.CX,
			CY:     k.CY,
			CZ:     k.CZ,
			Blocks: blocks,
		})
	}
	return out
}

// ImportChunks rebuilds a chunk store from snapshot chunks.
func ImportChunks(gen Gen, chunks []snapv1.ChunkV1) (*ChunkStore, error) {
	store := NewChunkStore(gen)
	for _, ch := range chunks {
		if len(ch.Blocks) != Size*Size*Size {
			return nil, fmt.Errorf("snapshot chunk blocks length mismatch: got %d want %d", len(ch.Blocks), Size*Size*Size)
		}
		k := ChunkKey{CX: ch.CX, CY: ch.CY, CZ: ch.CZ}
		if _, dup := store.Chunks[k]; dup {
			return nil, fmt.Errorf("duplicate snapshot chunk %d,%d,%d", k.CX, k.CY, k.CZ)
		}
		c := newChunk(k)
		copy(c.Blocks, ch.Blocks)
		_ = c.Digest()
		store.Chunks[k] = c
	}
	return store, nil
}
