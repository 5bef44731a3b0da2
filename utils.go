// File: utils.go
package main

import "math"

// AutoGrid computes a grid of cols×rows to neatly hold n items
func AutoGrid(n int) (cols, rows int) {
	if n <= 0 {
		return 1, 1
	}
	cols = int(math.Ceil(math.Sqrt(float64(n))))
	rows = int(math.Ceil(float64(n) / float64(cols)))
	return
}

// GridFor lays n items out perRow to a row; perRow <= 0 falls back to AutoGrid
func GridFor(n, perRow int) (cols, rows int) {
	if perRow <= 0 || n <= 0 {
		return AutoGrid(n)
	}
	cols = min(n, perRow)
	rows = (n + cols - 1) / cols
	return
}
