// Package message decodes the object header messages a reader needs:
// dataspace, datatype, link, layout, filter pipeline, attribute, symbol
// table and continuation. Other message types come back as [Unknown].
package message
