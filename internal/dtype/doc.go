// Package dtype turns stored element bytes into Go values.
//
// [Convert] and [ConvertWithReader] fill a destination slice whose element
// type may differ from the stored one, so a u16 dataset can be read straight
// into []float64 for plotting. Variable-length data needs the reader to
// reach the global heap:
//
//	var rows [][]byte
//	err := dtype.ConvertWithReader(dt, raw, n, &rows, reader)
//
// [ReadVarLen] returns each sequence as raw bytes, which is how embedded
// image streams are pulled out one row at a time.
package dtype
