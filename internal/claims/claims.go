package claims

import (
	"github.com/chandana0511/tambola-backend/internal/ticket"
)

// Type is the closed set of claim categories. The string values double as
// store keys under rooms/<code>/claims and as display labels.
type Type string

const (
	EarlyFive   Type = "Early Five"
	FourCorners Type = "Four Corners"
	TopLine     Type = "Top Line"
	MiddleLine  Type = "Middle Line"
	BottomLine  Type = "Bottom Line"
	FullHouse   Type = "Full House"
)

// All lists every claim category in presentation order.
var All = []Type{EarlyFive, FourCorners, TopLine, MiddleLine, BottomLine, FullHouse}

// Parse maps a wire string onto a claim category.
func Parse(s string) (Type, bool) {
	switch Type(s) {
	case EarlyFive, FourCorners, TopLine, MiddleLine, BottomLine, FullHouse:
		return Type(s), true
	default:
		return "", false
	}
}

// Valid reports whether the ticket satisfies the claim against the set of
// called numbers. Called numbers are the ground truth; local marks never
// enter into it, so a player cannot claim a number the host has not drawn.
// Pure and idempotent.
func Valid(c Type, t ticket.Ticket, called map[int]bool) bool {
	switch c {
	case EarlyFive:
		return earlyFive(t, called)
	case FourCorners:
		return fourCorners(t, called)
	case TopLine:
		return line(t, 0, called)
	case MiddleLine:
		return line(t, 1, called)
	case BottomLine:
		return line(t, 2, called)
	case FullHouse:
		return fullHouse(t, called)
	default:
		return false
	}
}

// earlyFive: at least 5 of the ticket's numbers have been called.
func earlyFive(t ticket.Ticket, called map[int]bool) bool {
	count := 0
	for _, n := range t.Numbers() {
		if called[n] {
			count++
			if count >= 5 {
				return true
			}
		}
	}
	return false
}

// fourCorners: the first and last numbers of the top and bottom rows are
// all called. Both rows must have at least one number.
func fourCorners(t ticket.Ticket, called map[int]bool) bool {
	top := t.RowNumbers(0)
	bottom := t.RowNumbers(2)
	if len(top) == 0 || len(bottom) == 0 {
		return false
	}
	corners := []int{top[0], top[len(top)-1], bottom[0], bottom[len(bottom)-1]}
	for _, n := range corners {
		if !called[n] {
			return false
		}
	}
	return true
}

// line: every number in the row is called. Empty rows never validate.
func line(t ticket.Ticket, row int, called map[int]bool) bool {
	nums := t.RowNumbers(row)
	if len(nums) == 0 {
		return false
	}
	for _, n := range nums {
		if !called[n] {
			return false
		}
	}
	return true
}

// fullHouse: all 15 numbers called.
func fullHouse(t ticket.Ticket, called map[int]bool) bool {
	nums := t.Numbers()
	if len(nums) == 0 {
		return false
	}
	for _, n := range nums {
		if !called[n] {
			return false
		}
	}
	return true
}

// SetOf builds a membership set from a called-numbers sequence, skipping
// the leading sentinel zero.
func SetOf(numbers []int) map[int]bool {
	set := make(map[int]bool, len(numbers))
	for _, n := range numbers {
		if n != 0 {
			set[n] = true
		}
	}
	return set
}
