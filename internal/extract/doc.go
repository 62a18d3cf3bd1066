// Package extract turns a Go predicate into a predicate tree.
//
// A predicate is Go source: either a function literal with one parameter
// whose body is a single return statement,
//
//	func(x User) bool { return x.Account == "System" || x.Id >= min }
//
// or the bare boolean expression over a parameter named x. Identifiers that
// are not the parameter are captured variables, looked up in the
// environment passed to Parse.
//
// Supported grammar:
//
//	pred   = cmp | pred "&&" pred | pred "||" pred | "(" pred ")" | in | "!" in
//	cmp    = field op value | value op field        op: == != < <= > >=
//	in     = "slices.Contains(" value "," field ")" | value ".Contains(" field ")"
//	field  = x.F | x.F.G
//
// Anything else is rejected with an UNSUPPORTED_PREDICATE error. Values are
// reduced to constants at extraction time by a Resolver; the default
// resolver reads the captured environment by reflection and falls back to
// go/types constant evaluation.
package extract
