// Package version implements dotted-numeric version comparison and the
// downgrade check that runs before installs. Everything here is a pure
// function over its inputs: no filesystem, no process state.
package version

import (
	"regexp"
	"strconv"
	"strings"
)

// stageRank orders pre-release stage markers below a release and relative
// to each other. A version with no stage marker is a release (rank 0).
var stageRank = map[string]int{
	"dev":     -5,
	"alpha":   -4,
	"a":       -4,
	"beta":    -3,
	"b":       -3,
	"pre":     -2,
	"preview": -2,
	"c":       -1,
	"rc":      -1,
}

// stageRe matches a trailing pre-release marker: "1.2.0rc1", "1.2.0-beta.2",
// "1.2.0.dev3". The core before the marker must end in a digit so that plain
// alphabetic segments are not mistaken for stage suffixes.
var stageRe = regexp.MustCompile(`^(.*\d)[-._]?(dev|alpha|beta|preview|pre|rc|a|b|c)\.?(\d*)$`)

// parsed is the decomposed form of a version string.
type parsed struct {
	release []segment
	stage   int // 0 for a release, negative for pre-releases
	stageN  int // numeric suffix of the stage marker ("rc2" -> 2)
	numeric bool
}

// segment is one dot-separated component. Numeric segments compare as
// integers; anything else falls back to a plain string comparison.
type segment struct {
	num   int
	str   string
	isNum bool
}

// Parseable reports whether v parses as a dotted-numeric version, meaning
// its leading segment is an unsigned integer.
func Parseable(v string) bool {
	p := parse(v)
	return p.numeric
}

func parse(v string) parsed {
	v = strings.TrimSpace(strings.TrimPrefix(v, "v"))

	core, stage, stageN := splitStage(v)

	var p parsed
	p.stage = stage
	p.stageN = stageN
	for i, part := range strings.Split(core, ".") {
		n, err := strconv.Atoi(part)
		if err == nil && part != "" {
			p.release = append(p.release, segment{num: n, isNum: true})
			if i == 0 {
				p.numeric = true
			}
		} else {
			p.release = append(p.release, segment{str: part})
		}
	}
	return p
}

// splitStage strips a trailing pre-release marker ("1.2.0rc1", "1.2.0-beta.2",
// "1.2.0.dev3") from v and returns the release core, the stage rank, and the
// stage's numeric suffix. A version without a marker returns stage 0.
func splitStage(v string) (core string, stage, stageN int) {
	m := stageRe.FindStringSubmatch(strings.ToLower(v))
	if m == nil {
		return v, 0, 0
	}
	n := 0
	if m[3] != "" {
		n, _ = strconv.Atoi(m[3])
	}
	return m[1], stageRank[m[2]], n
}

// Compare returns -1, 0, or 1 as a is lower than, equal to, or higher
// than b under dotted-numeric precedence. Pre-releases rank below their
// corresponding release; malformed segments compare as strings.
func Compare(a, b string) int {
	pa, pb := parse(a), parse(b)

	n := len(pa.release)
	if len(pb.release) > n {
		n = len(pb.release)
	}
	for i := 0; i < n; i++ {
		sa, sb := segmentAt(pa.release, i), segmentAt(pb.release, i)
		if c := compareSegment(sa, sb); c != 0 {
			return c
		}
	}

	// Equal release cores: a pre-release loses to the release, and two
	// pre-releases order by stage then by stage number.
	if pa.stage != pb.stage {
		if pa.stage < pb.stage {
			return -1
		}
		return 1
	}
	if pa.stageN != pb.stageN {
		if pa.stageN < pb.stageN {
			return -1
		}
		return 1
	}
	return 0
}

// segmentAt pads missing segments with numeric zero so "1.0" == "1.0.0".
func segmentAt(segs []segment, i int) segment {
	if i < len(segs) {
		return segs[i]
	}
	return segment{num: 0, isNum: true}
}

func compareSegment(a, b segment) int {
	if a.isNum && b.isNum {
		switch {
		case a.num < b.num:
			return -1
		case a.num > b.num:
			return 1
		}
		return 0
	}
	// Fallback: equal-weight lexicographic string comparison. A numeric
	// segment participates via its literal digits.
	return strings.Compare(segString(a), segString(b))
}

func segString(s segment) string {
	if s.isNum {
		return strconv.Itoa(s.num)
	}
	return s.str
}
