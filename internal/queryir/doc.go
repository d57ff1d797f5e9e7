// Package queryir is a small query representation over the run log.
//
// Callers describe which recorded steps they want (by run, rule, label,
// skip flag, or step range) without writing SQL. A backend compiler turns
// a Query into a concrete statement; see package querysql.
//
//	[trace flags] → [Query IR] → [SQL]
//
// Query and Predicate are sealed interfaces using the marker method
// pattern. Only types in this package implement them, so backends can
// switch over them exhaustively.
//
// Field names are checked against a fixed allowlist per source by
// Validate. Compilers interpolate field names and must call Validate
// first; values are always bound as parameters.
package queryir
