// Package constants provides shared constants used across the codebase.
// Centralizing these values ensures consistency and makes them easier to modify.
package constants

// Face matching constants
const (
	// DefaultDistanceThreshold is the default maximum Euclidean distance for a face match.
	// Lower values = stricter matching
	DefaultDistanceThreshold = 0.5

	// DefaultEmbeddingDim is the descriptor length produced by the face recognition model
	DefaultEmbeddingDim = 128

	// DuplicateSearchK is the number of neighbours inspected when checking a new
	// enrollment against existing identities
	DuplicateSearchK = 5

	// HNSWMaxNeighbors is the M parameter of the enrollment HNSW graph
	HNSWMaxNeighbors = 16
)

// Processing constants
const (
	// MaxImageSize is the maximum dimension (width or height) sent to the extraction service
	MaxImageSize = 1920

	// MaxImagePixels caps width*height of an upload before it is decoded (50 MP)
	MaxImagePixels = 50_000_000

	// DefaultImportConcurrency is the number of parallel extraction calls during bulk import
	DefaultImportConcurrency = 4
)

// Advisor constants
const (
	// NoAnswer is returned when the generator replies without any text
	NoAnswer = "No se obtuvo respuesta"
)
