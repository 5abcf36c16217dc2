// Package object reads version 1 and version 2 ("OHDR") object headers,
// following continuation blocks, and exposes the decoded messages.
package object
