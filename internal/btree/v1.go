package btree

import (
	"fmt"

	"github.com/robert-malhotra/h5view/internal/binary"
)

const (
	nodeGroup uint8 = 0
	nodeChunk uint8 = 1
)

// maxDepth bounds recursion through malformed or cyclic trees.
const maxDepth = 64

// v1Node is one "TREE" node. Child i sits between keys i and i+1.
type v1Node struct {
	level    uint8
	keys     [][]byte
	children []uint64
}

func readV1Node(r *binary.Reader, addr uint64, nodeType uint8, keySize int) (*v1Node, error) {
	nr := r.At(int64(addr))
	head, err := nr.ReadBytes(8)
	if err != nil {
		return nil, fmt.Errorf("reading btree signature: %w", err)
	}
	if string(head[:4]) != "TREE" {
		return nil, fmt.Errorf("invalid B-tree signature: got %q, expected \"TREE\"", head[:4])
	}
	if head[4] != nodeType {
		return nil, fmt.Errorf("unexpected B-tree node type %d, want %d", head[4], nodeType)
	}
	used := int(head[6]) | int(head[7])<<8
	nr.Skip(2 * int64(r.OffsetSize()))

	osz := r.OffsetSize()
	body, err := nr.ReadBytes(used*(keySize+osz) + keySize)
	if err != nil {
		return nil, fmt.Errorf("reading B-tree node at %d: %w", addr, err)
	}
	n := &v1Node{level: head[5]}
	for i := 0; i <= used; i++ {
		at := i * (keySize + osz)
		n.keys = append(n.keys, body[at:at+keySize])
		if i < used {
			n.children = append(n.children, r.Uint(body[at+keySize:at+keySize+osz]))
		}
	}
	return n, nil
}

// walkV1 calls leaf for every child of every leaf node under addr, with the
// key to its left.
func walkV1(r *binary.Reader, addr uint64, nodeType uint8, keySize, depth int, leaf func(key []byte, child uint64) error) error {
	if depth > maxDepth {
		return fmt.Errorf("B-tree deeper than %d levels", maxDepth)
	}
	n, err := readV1Node(r, addr, nodeType, keySize)
	if err != nil {
		return err
	}
	for i, child := range n.children {
		if n.level == 0 {
			err = leaf(n.keys[i], child)
		} else {
			err = walkV1(r, child, nodeType, keySize, depth+1, leaf)
		}
		if err != nil {
			return err
		}
	}
	return nil
}
