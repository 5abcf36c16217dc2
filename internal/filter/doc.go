// Package filter undoes the per-chunk filter pipeline: deflate, shuffle and
// the Fletcher-32 check. A [Pipeline] runs its filters last to first and
// honours the chunk's filter mask. Any other filter ID fails the read.
package filter
