// Package graphspec loads reactive graph definitions from CUE files.
//
// A definition declares the program's nodes in order, the connections
// between them, and the names of the update bodies each stateful node
// runs. Bodies are Go functions resolved through a Registry; the CUE
// side only ever names them, so a definition stays declarative and a
// loaded graph stays deterministic.
//
// Node declaration order is significant: handles allocate in list
// order, which is what lets a snapshot taken from one load restore
// onto another.
package graphspec
