package sh2

// DVCR overflow flag
const dvcrOVF = 0x00010000

func (c *Core) divOverflow() {
	m := &c.Onchip
	m[regDVCR] |= dvcrOVF
	m[regDVDNTL] = 0x7fffffff
	m[regDVDNTH] = 0x7fffffff
	c.recalcIRQ()
}

// divide32 runs DVDNT / DVSR, leaving the quotient in DVDNTL and the
// remainder in DVDNTH.
func (c *Core) divide32() {
	m := &c.Onchip
	a := int32(m[regDVDNT])
	b := int32(m[regDVSR])
	if b == 0 {
		c.divOverflow()
		return
	}
	m[regDVDNTL] = uint32(a / b)
	m[regDVDNTH] = uint32(a % b)
}

// divide64 runs DVDNTH:DVDNTL / DVSR.
func (c *Core) divide64() {
	m := &c.Onchip
	a := int64(uint64(m[regDVDNTH])<<32 | uint64(m[regDVDNTL]))
	b := int64(int32(m[regDVSR]))
	if b == 0 {
		c.divOverflow()
		return
	}
	q := a / b
	if q != int64(int32(q)) {
		c.divOverflow()
		return
	}
	m[regDVDNTL] = uint32(q)
	m[regDVDNTH] = uint32(a % b)
}
