// Package heap reads the two heap kinds: the local heap ("HEAP") holding
// member names of symbol-table groups, and global heap collections
// ("GCOL") holding variable-length strings and sequences, addressed by a
// [GlobalHeapID].
package heap
