// Package layout reads dataset storage: [Compact] data kept in the object
// header, [Contiguous] blocks, and [Chunked] data behind a single-chunk,
// B-tree, fixed array or extensible array index.
//
// Hyperslab reads only touch the chunks that overlap the requested window,
// so a page of a long series costs the chunks under that page.
package layout
