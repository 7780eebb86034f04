package version

// Result classifies the outcome of a pre-install version check.
type Result int

const (
	// OK means the requested version is the same as or newer than the
	// installed one, or the package is not installed yet.
	OK Result = iota
	// Downgrade means the requested version is older than the installed one.
	Downgrade
	// Unknown means neither version parsed as dotted-numeric, so no
	// comparison could be made. Callers must not treat this as OK.
	Unknown
)

// Verdict is the advisory outcome of Check. The caller decides whether to
// proceed, warn, or abort; a verdict never blocks an install by itself.
type Verdict struct {
	Result    Result
	Current   string
	Requested string
}

// Check compares a requested version against the currently installed one.
// An empty current version means the package is not installed, which is
// always OK.
func Check(requested, current string) Verdict {
	v := Verdict{Current: current, Requested: requested}

	if current == "" || requested == "" {
		v.Result = OK
		return v
	}
	if !Parseable(requested) && !Parseable(current) {
		v.Result = Unknown
		return v
	}
	if Compare(requested, current) < 0 {
		v.Result = Downgrade
		return v
	}
	v.Result = OK
	return v
}
