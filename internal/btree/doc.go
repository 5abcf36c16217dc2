// Package btree walks the B-trees that index group members and dataset
// chunks. Version 1 trees ("TREE") serve symbol-table groups and old chunk
// indexes; version 2 trees ("BTHD", record types 10 and 11) serve chunk
// indexes in newer files. Readers only ever collect entries; nothing here
// rebalances or inserts.
package btree
