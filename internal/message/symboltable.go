package message

import (
	"fmt"

	binpkg "github.com/robert-malhotra/h5view/internal/binary"
)

// SymbolTable locates the B-tree and local heap of an old-style group.
type SymbolTable struct {
	BTreeAddress     uint64
	LocalHeapAddress uint64
}

func (m *SymbolTable) Type() Type { return TypeSymbolTable }

func parseSymbolTable(data []byte, r *binpkg.Reader) (*SymbolTable, error) {
	c := newCursor(data, r)
	st := &SymbolTable{BTreeAddress: c.offset(), LocalHeapAddress: c.offset()}
	if c.err != nil {
		return nil, fmt.Errorf("symbol table message: %w", c.err)
	}
	return st, nil
}
