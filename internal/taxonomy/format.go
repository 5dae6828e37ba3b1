package taxonomy

import "strconv"

// Qualifier selects how a numeric height or year is encoded.
type Qualifier int

const (
	// QualifierAuto picks Range when both bounds are set, Exact otherwise.
	QualifierAuto Qualifier = iota
	Exact
	Range
	Approximate
	Pre
)

// Unknown codes emitted for missing heights and years.
const (
	UnknownHeight = "H99"
	UnknownYear   = "Y99"
)

func resolve(lo, hi *int, q Qualifier) (Qualifier, bool) {
	if lo == nil || hi == nil || (*lo == 0 && *hi == 0) {
		return q, false
	}
	if q == QualifierAuto {
		q = Range
	}
	return q, true
}

// FormatHeight encodes a number of storeys as HEX:<n>, HBET:<a>,<b> or H99.
func FormatHeight(lo, hi *int, q Qualifier) string {
	q, ok := resolve(lo, hi, q)
	if !ok {
		return UnknownHeight
	}
	switch q {
	case Exact:
		return "HEX:" + strconv.Itoa(*lo)
	case Range:
		return "HBET:" + strconv.Itoa(*lo) + "," + strconv.Itoa(*hi)
	default:
		return UnknownHeight
	}
}

// FormatYear encodes a year of construction as YPRE:<n>, YAPP:<n>, YBET:<a>,<b> or Y99.
// There is no exact-year code; Exact yields Y99.
func FormatYear(lo, hi *int, q Qualifier) string {
	q, ok := resolve(lo, hi, q)
	if !ok {
		return UnknownYear
	}
	switch q {
	case Pre:
		return "YPRE:" + strconv.Itoa(*lo)
	case Approximate:
		return "YAPP:" + strconv.Itoa(*lo)
	case Range:
		return "YBET:" + strconv.Itoa(*lo) + "," + strconv.Itoa(*hi)
	default:
		return UnknownYear
	}
}
