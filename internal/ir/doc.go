// Package ir provides the value types shared by every other package: the
// sealed IRValue family, flat result rows and canonical JSON.
//
// ir imports nothing internal. Rows produced by the store, parameters bound
// by the query compiler and entity trees built by the materializer are all
// expressed in these types, so no package needs to pass untyped interface
// values around.
//
// Key design constraints:
//   - SQL NULL is IRNull, never a Go nil inside a container
//   - IRObject keys serialize in RFC 8785 order for reproducible output
//   - Composite row keys are built from KeyPart, which never confuses types
package ir
