// Package user defines the account model and the repository contract the
// engine speaks to the relational store through.
//
// The repository is deliberately opaque: the engine never sees SQL, drivers,
// or transactions beyond the single locked read-validate-write hook used by
// the recovery-code reset.
package user
