package guard

// Indicators is the red/yellow/green LED bank. At most one LED is lit.
type Indicators struct {
	red, yellow, green Pin
	lit                Color
}

func NewIndicators(red, yellow, green Pin) *Indicators {
	return &Indicators{red: red, yellow: yellow, green: green}
}

// Clear turns every LED off.
func (b *Indicators) Clear() {
	b.red.Set(false)
	b.yellow.Set(false)
	b.green.Set(false)
	b.lit = ColorOff
}

// Show lights exactly the LED for c; ColorOff clears the bank.
func (b *Indicators) Show(c Color) {
	b.Clear()
	switch c {
	case ColorRed:
		b.red.Set(true)
	case ColorYellow:
		b.yellow.Set(true)
	case ColorGreen:
		b.green.Set(true)
	default:
		return
	}
	b.lit = c
}

// Lit returns the LED currently lit.
func (b *Indicators) Lit() Color {
	return b.lit
}
