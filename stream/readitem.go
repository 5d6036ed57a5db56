package stream

import (
	"regexp"

	"github.com/joeycumines/go-asyncipc/future"
)

// readPredicate reports how many bytes (of buf) to take right now, and
// whether the item is fully satisfied.
type readPredicate func(buf []byte, eof bool) (take int, done bool)

// ReadItem is a queued read request awaiting satisfaction, produced by
// the read_atmost/read_exactly/read_until/read_until_eof helpers.
type ReadItem struct {
	want   readPredicate
	future *future.Future
}

// readAtmost is satisfied as soon as any bytes are available (up to n),
// or immediately at EOF.
func readAtmost(n int) readPredicate {
	return func(buf []byte, eof bool) (int, bool) {
		take := n
		if take > len(buf) {
			take = len(buf)
		}
		return take, take > 0 || eof
	}
}

// readExactly is satisfied once n bytes are buffered, or at EOF with
// whatever remains.
func readExactly(n int) readPredicate {
	return func(buf []byte, eof bool) (int, bool) {
		if len(buf) >= n {
			return n, true
		}
		if eof {
			return len(buf), true
		}
		return 0, false
	}
}

// readUntilRegexp is satisfied once re matches, taking up to and
// including the match, or at EOF with whatever remains.
func readUntilRegexp(re *regexp.Regexp) readPredicate {
	return func(buf []byte, eof bool) (int, bool) {
		if loc := re.FindIndex(buf); loc != nil {
			return loc[1], true
		}
		if eof {
			return len(buf), true
		}
		return 0, false
	}
}

// readUntilEOF is satisfied only at EOF, taking everything buffered.
func readUntilEOF() readPredicate {
	return func(buf []byte, eof bool) (int, bool) {
		if eof {
			return len(buf), true
		}
		return 0, false
	}
}
