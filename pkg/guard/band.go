package guard

// Band is one of the six ordered light-level classifications.
type Band uint8

const (
	BandVeryLow Band = iota
	BandLow
	BandMedium
	BandIdeal
	BandHigh
	BandVeryHigh
)

var bandNames = [...]string{"very-low", "low", "medium", "ideal", "high", "very-high"}

func (b Band) String() string {
	if int(b) < len(bandNames) {
		return bandNames[b]
	}
	return "unknown"
}

// MarshalText renders the band by name.
func (b Band) MarshalText() ([]byte, error) {
	return []byte(b.String()), nil
}

// Color selects which indicator LED is lit.
type Color uint8

const (
	ColorOff Color = iota
	ColorRed
	ColorYellow
	ColorGreen
)

var colorNames = [...]string{"off", "red", "yellow", "green"}

func (c Color) String() string {
	if int(c) < len(colorNames) {
		return colorNames[c]
	}
	return "unknown"
}

// MarshalText renders the color by name.
func (c Color) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// Unbounded marks a Policy without an upper bound.
const Unbounded = -1

// Policy is one row of the classification table: readings up to and
// including Max fall in Band and light Color. A non-zero ToneHz sounds the
// buzzer.
type Policy struct {
	Band   Band
	Max    int
	Color  Color
	ToneHz uint32
}

// Alarm reports whether the policy sounds the buzzer.
func (p Policy) Alarm() bool { return p.ToneHz != 0 }

// Bands is scanned in order; the first row whose bound is satisfied wins.
var Bands = [...]Policy{
	{Band: BandVeryLow, Max: 15, Color: ColorRed, ToneHz: 2000},
	{Band: BandLow, Max: 30, Color: ColorRed},
	{Band: BandMedium, Max: 50, Color: ColorYellow},
	{Band: BandIdeal, Max: 70, Color: ColorGreen},
	{Band: BandHigh, Max: 90, Color: ColorYellow},
	{Band: BandVeryHigh, Max: Unbounded, Color: ColorRed, ToneHz: 4000},
}

// Classify returns the policy for a light percentage.
func Classify(reading int) Policy {
	for _, p := range Bands {
		if p.Max == Unbounded || reading <= p.Max {
			return p
		}
	}
	return Bands[len(Bands)-1]
}
