// Package querysql renders normalized predicate trees as SQL WHERE clauses
// with named parameters.
//
// All values are parameterized, never interpolated. Every comparison gets
// its own parameter key, <field>_p<n>, where n counts up across the whole
// statement, so a field compared twice binds two distinct parameters:
//
//	Account = @Account_p0 OR (Account = @Account_p1 AND Spell = @Spell_p2)
//
// Set membership binds the whole collection to one key. Expanding it into
// one placeholder per element is the job of the execution layer (see
// store.ExpandArrays).
package querysql
