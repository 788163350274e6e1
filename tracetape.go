// package tracetape compiles numeric functions with branches into flat instruction tapes.
//
// Functions are traced with package trace, tapes are encoded by package tape,
// evaluated by package tapevm, and stored by package tapestore.
package tracetape

import (
	"lukechampine.com/blake3"

	"tracetape.org/tracetape/internal/cadata"
)

const (
	// MaxTapeBytes is the largest encoded tape accepted by a store.
	MaxTapeBytes = 1 << 26
)

type (
	// CID is a Content ID
	CID = cadata.ID

	Store  = cadata.Store
	Getter = cadata.Getter
	Poster = cadata.Poster
)

// Hash calculates the content ID of x.
func Hash(x []byte) CID {
	return blake3.Sum256(x)
}
