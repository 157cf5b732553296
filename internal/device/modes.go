package device

import "fmt"

// Mode names. Boilers use the vendor names; the water heater equivalents are
// Heating=Electric, Smart=Eco and Study=HighDemand.
const (
	ModeOff       = "Off"
	ModeHeating   = "Heating"
	ModeSmart     = "Smart"
	ModeStudy     = "Study"
	ModePowerful  = "Powerful"
	ModeExtraSafe = "Extra safe"
	ModeHeat      = "Heat"
	ModeAntifrost = "Antifrost"
)

// Unknown is reported for a mode code missing from the table.
const Unknown = "Unknown"

// ModeTable is a fixed bidirectional mapping between vendor mode codes and names.
type ModeTable struct {
	names map[int]string
	codes map[string]int
	order []string
}

type modeEntry struct {
	code int
	name string
}

func newModeTable(entries ...modeEntry) ModeTable {
	t := ModeTable{
		names: make(map[int]string, len(entries)),
		codes: make(map[string]int, len(entries)),
		order: make([]string, 0, len(entries)),
	}
	for _, e := range entries {
		if _, dup := t.names[e.code]; dup {
			panic(fmt.Sprintf("duplicate mode code %d", e.code))
		}
		if _, dup := t.codes[e.name]; dup {
			panic(fmt.Sprintf("duplicate mode name %q", e.name))
		}
		t.names[e.code] = e.name
		t.codes[e.name] = e.code
		t.order = append(t.order, e.name)
	}
	return t
}

// Name returns the name for a code.
func (t ModeTable) Name(code int) (string, bool) {
	n, ok := t.names[code]
	return n, ok
}

// Code returns the code for a name.
func (t ModeTable) Code(name string) (int, bool) {
	c, ok := t.codes[name]
	return c, ok
}

// Names lists the mode names in code order.
func (t ModeTable) Names() []string {
	out := make([]string, len(t.order))
	copy(out, t.order)
	return out
}

// Codes lists the mode codes in table order.
func (t ModeTable) Codes() []int {
	out := make([]int, 0, len(t.order))
	for _, n := range t.order {
		out = append(out, t.codes[n])
	}
	return out
}

func (t ModeTable) nameOrUnknown(code int) string {
	if n, ok := t.names[code]; ok {
		return n
	}
	return Unknown
}

// Per family tables. They are deliberately separate values even where the
// contents overlap.
var (
	ClassicBoilerModes = newModeTable(
		modeEntry{0, ModeOff},
		modeEntry{1, ModeHeating},
		modeEntry{2, ModeSmart},
		modeEntry{3, ModeStudy},
	)
	ClassicConvectorModes = newModeTable(
		modeEntry{0, ModeOff},
		modeEntry{1, ModeHeat},
	)
	IoTBoilerModes = newModeTable(
		modeEntry{0, ModeOff},
		modeEntry{1, ModeHeating},
		modeEntry{2, ModeSmart},
		modeEntry{3, ModeStudy},
		modeEntry{4, ModePowerful},
		modeEntry{5, ModeExtraSafe},
	)
	IoTConvectorModes = newModeTable(
		modeEntry{0, ModeOff},
		modeEntry{1, ModeHeat},
		modeEntry{2, ModeAntifrost},
	)
)
