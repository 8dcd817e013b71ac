// Package core holds the cell-level rules shared by every pipeline stage.
//
// It has no knowledge of files, schemas or outputs; it only knows how a single
// raw value from a public dataset is cleaned and typed.
//
// # Field Types
//
// Schemas declare one [FieldType] per property. [ParseFieldType] decodes the
// declared name once, at schema load time, and [Cast] applies it to a cell.
// Uncastable values become nil rather than failing the file.
//
// # Cleaning
//
//   - [CleanColumnName] strips positional array indices from flattened names
//   - [CleanValue] reduces categorical values to an accent-free, lower-case
//     comparison form
//   - [CleanCell] removes spreadsheet artifacts (formula prefixes, quotes)
//   - [NormalizeSIREN] and [SIRENFromID] produce 9-digit SIREN join keys
//
// # Error Handling
//
// Technical errors are mapped to stable codes using [MapError]:
//
//   - FETCH001-FETCH006: download failures
//   - LOAD001-LOAD005: unreadable files
//   - SCHEMA001-SCHEMA002: schema mismatches
//   - SINK001-SINK002: output failures
//
// The code is recorded next to every file the run had to leave out.
package core
