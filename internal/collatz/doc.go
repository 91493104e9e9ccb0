// Package collatz checks whether Collatz sequences reach 1.
//
// A Checker walks a sequence from a starting value until it meets a value
// already in the Memo (converged) or revisits a value from its own trace
// (diverged). Converged traces are merged into the memo so later checks
// that pass through them stop early.
package collatz
