package ticket

import (
	"errors"
	"math/rand"
	"slices"
)

var ErrGenerationFailed = errors.New("ticket generation attempts exhausted")

const (
	Rows = 3
	Cols = 9

	numbersPerTicket = 15
	numbersPerRow    = 5

	// Layout/draw retries before giving up. Expected iterations are in the
	// single digits; hitting this means the RNG is broken.
	maxAttempts = 10000
)

// Ticket is a 3x9 Tambola grid. Zero cells are blanks; each row holds
// exactly 5 numbers, each column at least 1, and column values increase
// top to bottom. Arrays compare with ==, which the batch generator relies
// on for pairwise-distinct checks.
type Ticket [Rows][Cols]int

// Band returns the inclusive number range for a column: 1..9 for the
// first, 80..90 for the last, col*10..col*10+9 otherwise.
func Band(col int) (lo, hi int) {
	switch col {
	case 0:
		return 1, 9
	case Cols - 1:
		return 80, 90
	default:
		return col * 10, col*10 + 9
	}
}

// Generate produces a valid ticket. Deterministic given a seeded rng.
func Generate(rng *rand.Rand) (Ticket, error) {
	for attempt := 0; attempt < maxAttempts; attempt++ {
		layout, ok := drawLayout(rng)
		if !ok {
			continue
		}
		return fill(rng, layout), nil
	}
	return Ticket{}, ErrGenerationFailed
}

// GenerateBatch produces n tickets that are pairwise distinct across the
// whole batch, for issuing to every player in a room at once.
func GenerateBatch(rng *rand.Rand, n int) ([]Ticket, error) {
	issued := make(map[Ticket]bool, n)
	out := make([]Ticket, 0, n)
	for len(out) < n {
		attempts := 0
		for {
			t, err := Generate(rng)
			if err != nil {
				return nil, err
			}
			if !issued[t] {
				issued[t] = true
				out = append(out, t)
				break
			}
			attempts++
			if attempts >= maxAttempts {
				return nil, ErrGenerationFailed
			}
		}
	}
	return out, nil
}

// drawLayout picks 5 columns per row and reports whether every column
// ended up used at least once. Rejection gets retried by the caller.
func drawLayout(rng *rand.Rand) (layout [Rows][Cols]bool, ok bool) {
	var perColumn [Cols]int
	for row := 0; row < Rows; row++ {
		cols := rng.Perm(Cols)[:numbersPerRow]
		for _, c := range cols {
			layout[row][c] = true
			perColumn[c]++
		}
	}
	for c := 0; c < Cols; c++ {
		if perColumn[c] == 0 {
			return layout, false
		}
	}
	return layout, true
}

// fill draws unique values for each column from its band, sorts them
// ascending, and places them into the column's assigned rows top to
// bottom. Bands are disjoint, so whole-ticket uniqueness follows.
func fill(rng *rand.Rand, layout [Rows][Cols]bool) Ticket {
	var t Ticket
	for c := 0; c < Cols; c++ {
		count := 0
		for r := 0; r < Rows; r++ {
			if layout[r][c] {
				count++
			}
		}
		lo, hi := Band(c)
		band := make([]int, 0, hi-lo+1)
		for n := lo; n <= hi; n++ {
			band = append(band, n)
		}
		rng.Shuffle(len(band), func(i, j int) { band[i], band[j] = band[j], band[i] })
		picked := band[:count]
		slices.Sort(picked)

		i := 0
		for r := 0; r < Rows; r++ {
			if layout[r][c] {
				t[r][c] = picked[i]
				i++
			}
		}
	}
	return t
}

// Numbers returns the 15 non-zero cells in row-major order.
func (t Ticket) Numbers() []int {
	out := make([]int, 0, numbersPerTicket)
	for r := 0; r < Rows; r++ {
		for c := 0; c < Cols; c++ {
			if t[r][c] != 0 {
				out = append(out, t[r][c])
			}
		}
	}
	return out
}

// RowNumbers returns the non-zero cells of one row, left to right.
func (t Ticket) RowNumbers(row int) []int {
	out := make([]int, 0, numbersPerRow)
	for c := 0; c < Cols; c++ {
		if t[row][c] != 0 {
			out = append(out, t[row][c])
		}
	}
	return out
}

// Grid returns the ticket as nested slices for wire encoding.
func (t Ticket) Grid() [][]int {
	out := make([][]int, Rows)
	for r := 0; r < Rows; r++ {
		out[r] = make([]int, Cols)
		copy(out[r], t[r][:])
	}
	return out
}

// FromGrid rebuilds a Ticket from its wire form.
func FromGrid(grid [][]int) (Ticket, bool) {
	var t Ticket
	if len(grid) != Rows {
		return t, false
	}
	for r := 0; r < Rows; r++ {
		if len(grid[r]) != Cols {
			return t, false
		}
		copy(t[r][:], grid[r])
	}
	return t, true
}
