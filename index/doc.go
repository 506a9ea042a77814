// Package index builds the local document index used for retrieval.
//
// The Builder reads markdown documents from a corpus directory, splits
// them on headings and then into overlapping fixed-size chunks, embeds
// every chunk through an ai.Embedder, and persists the result in a
// storage.ChunkRepository. Chunk tags are assigned in document order and
// stay stable across rebuilds of the same corpus, which lets generated
// answers cite them.
package index
