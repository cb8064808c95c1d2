package sh2

// FTCSR flags (bits 16-23 of the TIER/FTCSR/FRC long); TIER enables sit
// 8 bits above each.
const (
	frtICF   = 0x00800000
	frtOCFA  = 0x00080000
	frtOCFB  = 0x00040000
	frtOVF   = 0x00020000
	frtCCLRA = 0x00010000

	frtFlags = frtICF | frtOCFA | frtOCFB | frtOVF

	tocrOCRS = 0x10
)

// frtShift is log2 of the cycles per FRC tick for each TCR clock select.
// Select 2 runs at the /8 rate like select 0; external clock (3) does not
// count.
var frtShift = [4]uint{3, 5, 3, 0}

func (c *Core) frtDivider() uint {
	return frtShift[c.Onchip[regOCR]>>8&3]
}

// timerResync brings FRC up to the current cycle.
func (c *Core) timerResync() {
	now := c.now()
	if div := c.frtDivider(); div != 0 {
		c.FRC += uint16((now - c.FRCBase) >> div)
	}
	c.FRCBase = now
}

// timerActivate arms the deadline for the nearest of compare-A, compare-B and
// overflow whose flag is still clear.
func (c *Core) timerActivate() {
	const none = 0xfffff
	m := &c.Onchip
	c.TimerActive = false

	next := uint32(none)
	frc := c.FRC
	if m[regFTCSR]&frtOCFA == 0 {
		if d := uint32(c.OCRA - frc); d < next {
			next = d
		}
	}
	if m[regFTCSR]&frtOCFB == 0 && (c.OCRA <= c.OCRB || m[regFTCSR]&frtCCLRA == 0) {
		if d := uint32(c.OCRB - frc); d < next {
			next = d
		}
	}
	if m[regFTCSR]&frtOVF == 0 && m[regFTCSR]&frtCCLRA == 0 {
		if d := 0x10000 - uint32(frc); d < next {
			next = d
		}
	}
	if next == none {
		return
	}
	if div := c.frtDivider(); div != 0 {
		c.FRCBase = c.now()
		c.TimerActive = true
		c.TimerCycles = next << div
		c.TimerBase = c.FRCBase
	}
}

// timerExpired latches whichever events FRC has reached.
func (c *Core) timerExpired() {
	m := &c.Onchip
	c.timerResync()
	frc := c.FRC
	if frc == c.OCRB {
		m[regFTCSR] |= frtOCFB
	}
	if frc == 0 {
		m[regFTCSR] |= frtOVF
	}
	if frc == c.OCRA {
		m[regFTCSR] |= frtOCFA
		if m[regFTCSR]&frtCCLRA != 0 {
			c.FRC = 0
		}
	}
	c.recalcIRQ()
	c.timerActivate()
}

// frtControlWrite handles TIER/FTCSR/FRC. Status flags clear when written
// with 1 and are never set by software.
func (c *Core) frtControlWrite(old, data, mask uint32) {
	m := &c.Onchip
	touchesFRC := mask&0x00ffffff != 0x00ffffff
	if touchesFRC {
		c.timerResync()
	}
	m[regFTCSR] = clearOnWrite(m[regFTCSR], old, data, mask, frtFlags)
	c.FRC = uint16(combine(uint32(c.FRC), data, mask))
	if touchesFRC {
		c.timerActivate()
	}
	c.recalcIRQ()
}

// frtCompareWrite updates whichever compare register TOCR.OCRS selects.
func (c *Core) frtCompareWrite(data, mask uint32) {
	c.timerResync()
	v := uint16(combine(0, data, mask) >> 16)
	keep := uint16(mask >> 16)
	if c.Onchip[regOCR]&tocrOCRS != 0 {
		c.OCRB = c.OCRB&keep | v
	} else {
		c.OCRA = c.OCRA&keep | v
	}
	c.timerActivate()
}
