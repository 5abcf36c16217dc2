package message

import (
	"bytes"
	"fmt"

	binpkg "github.com/robert-malhotra/h5view/internal/binary"
)

type LinkType uint8

const (
	LinkTypeHard     LinkType = 0
	LinkTypeSoft     LinkType = 1
	LinkTypeExternal LinkType = 64
)

// Link is a link message from a compact or dense group.
type Link struct {
	Version  uint8
	LinkType LinkType
	Name     string

	ObjectAddress uint64 // hard
	SoftLinkValue string // soft
	ExternalFile  string // external
	ExternalPath  string
}

func (m *Link) Type() Type { return TypeLink }

func (m *Link) IsHard() bool     { return m.LinkType == LinkTypeHard }
func (m *Link) IsSoft() bool     { return m.LinkType == LinkTypeSoft }
func (m *Link) IsExternal() bool { return m.LinkType == LinkTypeExternal }

func parseLink(data []byte, r *binpkg.Reader) (*Link, error) {
	c := newCursor(data, r)
	link := &Link{Version: c.u8()}
	flags := c.u8()

	if flags&0x08 != 0 {
		link.LinkType = LinkType(c.u8())
	}
	if flags&0x04 != 0 {
		c.take(8) // creation order
	}
	if flags&0x10 != 0 {
		c.u8() // name charset
	}
	nameLen := c.uint(1 << (flags & 0x03))
	link.Name = string(c.take(int(nameLen)))
	if c.err != nil {
		return nil, fmt.Errorf("link message: %w", c.err)
	}

	switch link.LinkType {
	case LinkTypeHard:
		link.ObjectAddress = c.offset()
	case LinkTypeSoft:
		link.SoftLinkValue = string(c.take(int(c.u16())))
	case LinkTypeExternal:
		// flags byte, then NUL-terminated file and object path
		val := c.take(int(c.u16()))
		if c.err == nil && len(val) < 2 {
			return nil, fmt.Errorf("external link %q: value too short", link.Name)
		}
		if c.err == nil {
			file, path, _ := bytes.Cut(val[1:], []byte{0})
			link.ExternalFile = string(file)
			link.ExternalPath = cstring(path)
		}
	default:
		return nil, fmt.Errorf("link %q: unsupported link type %d", link.Name, link.LinkType)
	}
	if c.err != nil {
		return nil, fmt.Errorf("link %q target: %w", link.Name, c.err)
	}
	return link, nil
}
