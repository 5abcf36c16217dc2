// Package superblock locates the file signature (at 0, 512, 1024 or 2048)
// and parses superblock versions 0 through 3 into the offset and length
// sizes and the root group address everything else is read with.
package superblock
