package tarview

import "github.com/meigma/tarview/internal/ustar"

// Re-export types from internal/ustar for public API.
type (
	// Entry describes one archive member: its stored name, kind, payload size
	// and header offset.
	Entry = ustar.Entry

	// Kind is the raw tar type flag of an entry.
	Kind = ustar.Kind
)

// Kind constants. Any other type flag is kept as its raw byte.
const (
	KindFile      = ustar.KindFile
	KindDirectory = ustar.KindDirectory
)

// BlockSize is the tar block size. Headers occupy one block and payloads are
// padded to a whole number of blocks.
const BlockSize = ustar.BlockSize

// Normalize returns the lookup form of a stored entry name: everything up to
// and including the first "/" is removed. Names without "/" are unchanged.
var Normalize = ustar.Normalize
