// Package graph models a query as a tree of tables.
//
// A JoinGraph holds one root TableSpec and one JoinEdge per joined table.
// Every table contributes its fields to the select list as flat columns named
// "{alias}_{field}". After Prepare, each table also knows its pk field chain:
// the primary key columns of every table from the root down to itself, which
// is the identity of a row at that position in the tree.
//
// The package also defines Error, the coded error type shared by the compiler,
// the materializer and the query builder.
package graph
