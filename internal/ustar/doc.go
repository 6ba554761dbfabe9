// Package ustar decodes USTAR header blocks and builds an entry index over an
// in-memory tar archive.
//
// Only the classic fields are read: the 100-byte name, the octal size and the
// type flag. Checksums, PAX records and GNU extensions are ignored.
package ustar
