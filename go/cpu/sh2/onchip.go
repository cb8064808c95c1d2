package sh2

// On-chip register file offsets, in longs from 0xfffffe00.
const (
	regFTCSR   = 0x04 // TIER, FTCSR, FRC
	regOCR     = 0x05 // OCRA/B, TCR, TOCR
	regICR     = 0x06 // FRT input capture
	regIPRB    = 0x18 // IPRB, VCRA
	regVCRC    = 0x19 // VCRB, VCRC
	regVCRD    = 0x1a
	regIPRA    = 0x38 // ICR, IPRA
	regDVSR    = 0x40
	regDVDNT   = 0x41
	regDVCR    = 0x42
	regVCRDIV  = 0x43
	regDVDNTH  = 0x44
	regDVDNTL  = 0x45
	regDVDNTHM = 0x46 // DVDNTH mirror
	regDVDNTLM = 0x47 // DVDNTL mirror
	regSAR0    = 0x60
	regDAR0    = 0x61
	regTCR0    = 0x62
	regCHCR0   = 0x63
	regVCRDMA0 = 0x68
	regDMAOR   = 0x6c
	regBCR1    = 0x78
)

// onchipOffset maps an address in 0xe0000000-0xffffffff onto the register
// file. The block repeats every 512 bytes.
func onchipOffset(a uint32) uint32 {
	return (a & 0x1fc) >> 2
}

// combine merges a write into old; set bits in mask keep the old value.
func combine(old, data, mask uint32) uint32 {
	return old&mask | data&^mask
}

// clearOnWrite applies write-one-to-clear to the flag bits of a register: a 1
// written to a flag clears it, a 0 or an unwritten lane leaves it alone.
func clearOnWrite(cur, old, data, mask, flags uint32) uint32 {
	return cur&^flags | old&flags&^(data&^mask)
}

func (c *Core) internalRead8(a uint32) uint8 {
	return uint8(c.onchipRead(onchipOffset(a)) >> ((^a & 3) * 8))
}

func (c *Core) internalRead16(a uint32) uint16 {
	return uint16(c.onchipRead(onchipOffset(a)) >> ((^a & 2) * 8))
}

func (c *Core) internalRead32(a uint32) uint32 {
	return c.onchipRead(onchipOffset(a))
}

func (c *Core) internalWrite8(a uint32, v uint8) {
	shift := (^a & 3) * 8
	c.onchipWrite(onchipOffset(a), uint32(v)<<shift, ^(uint32(0xff) << shift))
}

func (c *Core) internalWrite16(a uint32, v uint16) {
	shift := (^a & 2) * 8
	c.onchipWrite(onchipOffset(a), uint32(v)<<shift, ^(uint32(0xffff) << shift))
}

func (c *Core) internalWrite32(a uint32, v uint32) {
	c.onchipWrite(onchipOffset(a), v, 0)
}

func (c *Core) onchipRead(off uint32) uint32 {
	m := &c.Onchip
	switch off {
	case regFTCSR:
		c.timerResync()
		return m[regFTCSR]&0xffff0000 | uint32(c.FRC)
	case regOCR:
		if m[regOCR]&tocrOCRS != 0 {
			return uint32(c.OCRB)<<16 | m[regOCR]&0xffff
		}
		return uint32(c.OCRA)<<16 | m[regOCR]&0xffff
	case regICR:
		return uint32(c.ICR) << 16
	case regIPRA:
		// NMI input level reads high
		return m[regIPRA] | 0x80000000
	case regBCR1:
		return 0
	case regDVDNT, regDVDNTLM:
		return m[regDVDNTL]
	case regDVDNTHM:
		return m[regDVDNTH]
	}
	return m[off]
}

func (c *Core) onchipWrite(off, data, mask uint32) {
	m := &c.Onchip
	old := m[off]
	m[off] = combine(old, data, mask)

	switch off {
	case regFTCSR:
		c.frtControlWrite(old, data, mask)
	case regOCR:
		c.frtCompareWrite(data, mask)

	case regIPRA, regIPRB, regVCRC, regVCRD, regVCRDIV, regVCRDMA0, regVCRDMA0 + 2:
		c.recalcIRQ()

	case regDVDNT:
		c.divide32()
	case regDVCR:
		m[regDVCR] = clearOnWrite(m[regDVCR], old, data, mask, dvcrOVF)
		c.recalcIRQ()
	case regDVDNTL:
		c.divide64()

	case regTCR0, regTCR0 + 4:
		m[off] &= 0xffffff
	case regCHCR0, regCHCR0 + 4:
		m[off] = clearOnWrite(m[off], old, data, mask, chcrTE)
		c.dmaCheck(int(off-regCHCR0) / 4)
		c.recalcIRQ()
	case regDMAOR:
		m[regDMAOR] = clearOnWrite(m[regDMAOR], old, data, mask, dmaorAE|dmaorNMIF)
		c.dmaCheck(0)
		c.dmaCheck(1)
	}
}
