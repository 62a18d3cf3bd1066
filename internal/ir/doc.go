// Package ir provides the value model shared by every stage of the
// predicate compiler.
//
// This package contains value types only. All other internal packages
// import ir; ir imports nothing internal, so it stays the foundational
// layer with no circular dependencies.
//
// Key design constraints:
//   - IRValue is sealed; only the types in this package implement it
//   - IRNull is a first-class value: a comparison against IRNull renders
//     IS NULL / IS NOT NULL instead of a bound parameter
//   - IRArray only carries scalars and only appears in set membership
//   - MarshalCanonical is the only serialization used for golden output
package ir
