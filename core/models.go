package core

import (
	"encoding/binary"

	"github.com/go-crypt/x/blake2b"
)

// ID is a unique identifier for persisted index records.
// It is generated using content-based hashing.
type ID uint64

// IDFromContent generates a deterministic ID from text content using BLAKE2b hashing.
// This ensures that identical content produces identical IDs.
func IDFromContent(text string) ID {
	h, _ := blake2b.New(8, nil) // 8 bytes = 64 bits
	h.Write([]byte(text))
	sum := h.Sum(nil)
	return ID(binary.LittleEndian.Uint64(sum))
}

// Policy identifies which retrieval backend(s) to run for a query.
type Policy string

const (
	// PolicyLocal consults only the local knowledge index.
	PolicyLocal Policy = "local"
	// PolicyWeb consults only live web search.
	PolicyWeb Policy = "web"
	// PolicyHybrid consults both backends concurrently.
	PolicyHybrid Policy = "hybrid"
)

// RoutingDecision is the outcome of routing a query.
// It is produced once per query and is immutable afterwards.
type RoutingDecision struct {
	Policy    Policy `json:"policy"`
	Rationale string `json:"rationale"`
}

// LocalEvidence is a ranked chunk retrieved from the local index.
type LocalEvidence struct {
	Type    string  `json:"type"` // always "local"
	Ref     string  `json:"ref,omitempty"`
	ChunkId string  `json:"chunk_id"`
	Section string  `json:"section"`
	Excerpt string  `json:"excerpt"`
	Score   float64 `json:"score"`
	Text    string  `json:"-"` // full chunk text, used for scoring only
}

// SourceTag returns the evidence source tag.
func (e LocalEvidence) SourceTag() string { return "local" }

// WebEvidence is a ranked hit retrieved from live web search.
type WebEvidence struct {
	Type    string  `json:"type"` // always "web"
	Ref     string  `json:"ref,omitempty"`
	Title   string  `json:"title"`
	URL     string  `json:"url"`
	Snippet string  `json:"snippet"`
	Time    string  `json:"time"`
	Score   float64 `json:"score"`
}

// SourceTag returns the evidence source tag.
func (e WebEvidence) SourceTag() string { return "web" }

// Evidence is a single retrieved item, local chunk or web hit.
type Evidence interface {
	SourceTag() string
}

// NormalizedContext is the uniform, generation-ready representation of all
// evidence collected for a request. LocalBlock and WebBlock are deterministic
// textual renderings used verbatim in the generation prompt; an empty source
// sequence always yields an empty block.
type NormalizedContext struct {
	LocalSources []LocalEvidence
	WebSources   []WebEvidence
	LocalBlock   string
	WebBlock     string
}

// SynthResult is the parsed output of the generation stage.
type SynthResult struct {
	Answer     string   `json:"answer"`
	Sources    []string `json:"sources"`
	Confidence float64  `json:"confidence"`
}

// LatencyBreakdown reports per-stage elapsed time in milliseconds.
type LatencyBreakdown struct {
	Retrieve int64 `json:"retrieve"`
	Rerank   int64 `json:"rerank"`
	Generate int64 `json:"generate"`
	Total    int64 `json:"total"`
}

// FinalResponse is the caller-facing answer payload. Every request yields a
// well-formed FinalResponse, including failed ones.
type FinalResponse struct {
	Answer     string           `json:"answer"`
	Sources    []Evidence       `json:"sources"`
	Routing    RoutingDecision  `json:"routing"`
	LatencyMS  LatencyBreakdown `json:"latency_ms"`
	Confidence float64          `json:"confidence"`
}

// Chunk is a persisted index record: one split of a source document,
// enriched with its embedding vector.
type Chunk struct {
	Id      ID
	Tag     string // human-readable chunk id, e.g. "chunk-0004"
	Section string // heading of the source section the chunk came from
	Text    string
	Vector  []float32
}

// ChunkMatch is a chunk match from vector similarity search.
type ChunkMatch struct {
	Chunk *Chunk
	Score float32
}
