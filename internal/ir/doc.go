// Package ir provides the mutable graph IR the rewrite driver operates on.
//
// A graph is a tree of operation nodes. Each node carries operands,
// results, attributes, and nested regions of blocks; blocks hold an op
// list and may end in a terminator with successor blocks. Op names are
// registered on a Context together with their arity, region count, and
// traits, and the parser, verifier, and printer all consult that
// registry.
//
// Key design constraints:
//   - ir imports no other internal package; everything else imports ir
//   - All structural mutation goes through the helpers in mutate.go so
//     use-def chains stay consistent and listeners observe every change
//   - The printed textual form is the canonical form; fingerprints are
//     computed over it, never over in-memory layout
package ir
