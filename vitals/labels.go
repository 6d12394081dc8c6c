package vitals

import "fmt"

// Label identifies one of the health-condition classes. Codes are part of
// the persisted model artifact and must never be renumbered.
type Label int

const (
	Anemia Label = iota
	Diabetes
	Healthy
	Thalassemia
	Thrombocytopenia
	Uncertain
)

// LabelCount is the number of classes, Uncertain included.
const LabelCount = 6

var labelNames = [LabelCount]string{
	"Anemia",
	"Diabetes",
	"Healthy",
	"Thalassemia",
	"Thrombocytopenia",
	"Uncertain",
}

func (l Label) String() string {
	if l < 0 || int(l) >= LabelCount {
		return fmt.Sprintf("Label(%d)", int(l))
	}
	return labelNames[l]
}

// Valid reports whether the label code is one of the known classes.
func (l Label) Valid() bool {
	return l >= 0 && int(l) < LabelCount
}

// MarshalText writes the wire-format class name, so JSON maps keyed by
// Label carry names rather than codes.
func (l Label) MarshalText() ([]byte, error) {
	if !l.Valid() {
		return nil, fmt.Errorf("invalid label code %d", int(l))
	}
	return []byte(labelNames[l]), nil
}

// UnmarshalText parses a wire-format class name.
func (l *Label) UnmarshalText(text []byte) error {
	parsed, err := ParseLabel(string(text))
	if err != nil {
		return err
	}
	*l = parsed
	return nil
}

// ParseLabel maps a wire-format class name back to its code. Names are
// case-sensitive.
func ParseLabel(name string) (Label, error) {
	for i, candidate := range labelNames {
		if candidate == name {
			return Label(i), nil
		}
	}
	return 0, fmt.Errorf("unknown label %q", name)
}

// LabelNames returns the class names in code order as a fresh slice.
func LabelNames() []string {
	names := make([]string, LabelCount)
	copy(names, labelNames[:])
	return names
}
