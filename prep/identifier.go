package prep

import "strings"

// BlankPrefix marks control samples. Blanks are never aliased.
const BlankPrefix = "BLANK"

// SampleID is a sample identifier exactly as it was written. It is never
// interpreted as a number: "363192526", "1e-3" and "123.000" are three
// distinct, opaque identifiers.
type SampleID string

func (id SampleID) String() string { return string(id) }

// IsBlank reports whether id names a blank control.
func (id SampleID) IsBlank() bool {
	return strings.HasPrefix(string(id), BlankPrefix)
}

// Unqualified drops a leading "{project}." qualifier, as used by the
// registry for fully-qualified sample ids.
func (id SampleID) Unqualified(project string) SampleID {
	if project == "" {
		return id
	}
	return SampleID(strings.TrimPrefix(string(id), project+"."))
}

// StripLeadingZeros removes leading '0' characters. An id made only of zeros
// keeps a single "0" so the result is never empty.
func (id SampleID) StripLeadingZeros() SampleID {
	s := strings.TrimLeft(string(id), "0")
	if s == "" && id != "" {
		return "0"
	}
	return SampleID(s)
}

// Normalize returns the form used for alias lookups: unqualified and with
// leading zeros stripped. Blanks are only unqualified.
func (id SampleID) Normalize(project string) SampleID {
	id = id.Unqualified(project)
	if id.IsBlank() {
		return id
	}
	return id.StripLeadingZeros()
}

// IDs converts plain strings into sample identifiers.
func IDs(values ...string) []SampleID {
	out := make([]SampleID, len(values))
	for i, v := range values {
		out[i] = SampleID(v)
	}
	return out
}
