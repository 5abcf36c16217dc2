package btree

import (
	"encoding/binary"
	"fmt"

	binpkg "github.com/robert-malhotra/h5view/internal/binary"
	"github.com/robert-malhotra/h5view/internal/heap"
)

// GroupEntry is one member of a symbol-table group.
type GroupEntry struct {
	Name          string
	ObjectAddress uint64
	LinkType      uint32 // 0 hard, 1 soft
	SoftLinkValue string
}

// cacheSoftLink marks a symbol table entry whose scratch pad holds the
// heap offset of a soft link's target.
const cacheSoftLink = 2

// ReadGroupEntries lists the members of the group whose B-tree is at addr.
// Names resolve through the group's local heap.
func ReadGroupEntries(r *binpkg.Reader, addr uint64, names *heap.LocalHeap) ([]GroupEntry, error) {
	var entries []GroupEntry
	err := walkV1(r, addr, nodeGroup, r.LengthSize(), 0, func(_ []byte, snod uint64) error {
		found, err := readSymbolNode(r, snod, names)
		if err != nil {
			return fmt.Errorf("reading symbol table node: %w", err)
		}
		entries = append(entries, found...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return entries, nil
}

// readSymbolNode reads an "SNOD" node: version 1, a reserved byte, the
// symbol count, then that many symbol table entries.
func readSymbolNode(r *binpkg.Reader, addr uint64, names *heap.LocalHeap) ([]GroupEntry, error) {
	nr := r.At(int64(addr))
	head, err := nr.ReadBytes(8)
	if err != nil {
		return nil, fmt.Errorf("reading SNOD signature: %w", err)
	}
	if string(head[:4]) != "SNOD" {
		return nil, fmt.Errorf("invalid symbol table node signature: got %q, expected \"SNOD\"", head[:4])
	}
	if head[4] != 1 {
		return nil, fmt.Errorf("unsupported symbol table node version: %d", head[4])
	}
	count := int(binary.LittleEndian.Uint16(head[6:]))

	osz := r.OffsetSize()
	entrySize := 2*osz + 24
	body, err := nr.ReadBytes(count * entrySize)
	if err != nil {
		return nil, fmt.Errorf("reading %d symbol table entries: %w", count, err)
	}

	var entries []GroupEntry
	for i := 0; i < count; i++ {
		e := body[i*entrySize : (i+1)*entrySize]
		entry := GroupEntry{
			Name:          names.GetString(r.Uint(e[:osz])),
			ObjectAddress: r.Uint(e[osz : 2*osz]),
		}
		if entry.Name == "" {
			continue
		}
		if binary.LittleEndian.Uint32(e[2*osz:]) == cacheSoftLink {
			scratch := e[2*osz+8:]
			entry.LinkType = 1
			entry.SoftLinkValue = names.GetString(uint64(binary.LittleEndian.Uint32(scratch)))
			entry.ObjectAddress = 0
		}
		entries = append(entries, entry)
	}
	return entries, nil
}
