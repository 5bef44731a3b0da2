// Package cip ranks substituents by the Cahn-Ingold-Prelog sequence rules on
// a hierarchical digraph and derives R/S and E/Z descriptors.
package cip
