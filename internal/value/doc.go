// Package value provides the cell value types that flow between the
// condition builder, the statement compiler, the executor and decoders.
//
// This package contains type definitions and conversions only. It imports
// nothing internal so every other package can depend on it.
//
// Key design constraints:
//   - NO float types (rows are compared and fingerprinted by canonical JSON)
//   - NULL is an explicit value (Null{}), never a nil interface
//   - Booleans travel as Bool but SQLite hands them back as Int 0/1;
//     decoders accept both
package value
