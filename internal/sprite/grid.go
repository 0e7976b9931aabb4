package sprite

// singleRowLimit is the thumbnail count at or below which a sheet always uses
// a single row. Small sheets never have empty trailing cells that way, and a
// strip of up to 50 thumbnails is still a manageable image width.
const singleRowLimit = 50

// maxAspectRatio is the ceiling on cols/rows (or rows/cols) accepted during
// the divisor search. Anything wider is worse than a plain strip.
const maxAspectRatio = 10.0

// PackGrid chooses the cols x rows layout for a sheet holding n thumbnails.
//
// Empty cells render as visible black regions in the scrub strip, so the
// packing prefers exact layouts over near-square ones:
//
//  1. n <= 50: single row. Zero empty cells, no partially filled rows.
//  2. Otherwise enumerate divisor pairs cols*rows == n and pick the pair
//     closest to square, subject to the aspect ceiling. Still zero empty
//     cells.
//  3. No acceptable divisor pair (n prime, or all pairs too skewed): fall
//     back to a single row and accept a very wide sheet.
//
// The returned layout always satisfies cols*rows >= n; for any n that takes
// branch 1 or 2 it satisfies cols*rows == n exactly.
func PackGrid(n int) (cols, rows int) {
	if n < 1 {
		return 0, 0
	}
	if n <= singleRowLimit {
		return n, 1
	}

	bestCols, bestRows := 0, 0
	bestAspect := 0.0
	for r := 1; r*r <= n; r++ {
		if n%r != 0 {
			continue
		}
		c := n / r
		aspect := float64(c) / float64(r)
		if aspect > maxAspectRatio {
			continue
		}
		if bestCols == 0 || aspect < bestAspect {
			bestCols, bestRows = c, r
			bestAspect = aspect
		}
	}

	if bestCols == 0 {
		// n is prime or every factorization is too skewed
		return n, 1
	}
	return bestCols, bestRows
}
