package sh2

// CHCR and DMAOR bits
const (
	chcrDE = 0x01
	chcrTE = 0x02
	chcrIE = 0x04

	dmaorDME  = 0x01
	dmaorNMIF = 0x02
	dmaorAE   = 0x04
)

// transfer unit sizes, CHCR bits 10-11
const (
	dmaByte = iota
	dmaWord
	dmaLong
	dmaBurst16
)

// dmaCheck starts channel ch when it and the controller are enabled, it is
// idle and its TE flag is clear; otherwise an in-flight transfer is
// cancelled. The data moves immediately and the completion fires after
// 2*count+1 cycles.
func (c *Core) dmaCheck(ch int) {
	m := &c.Onchip
	base := uint32(ch * 4)
	chcr := m[regCHCR0+base]
	if chcr&m[regDMAOR]&dmaorDME == 0 {
		c.DMAActive[ch] = false
		return
	}
	if c.DMAActive[ch] || chcr&chcrTE != 0 {
		return
	}
	incd := chcr >> 14 & 3
	incs := chcr >> 12 & 3
	size := chcr >> 10 & 3
	if incd == 3 || incs == 3 {
		return
	}
	count := m[regTCR0+base]
	if count == 0 {
		count = 0x1000000
	}
	c.DMAActive[ch] = true
	c.DMACycles[ch] = 2*count + 1
	c.DMABase[ch] = c.now()

	src := m[regSAR0+base] & addrMask
	dst := m[regDAR0+base] & addrMask
	c.dmaTransfer(src, dst, count, incs, incd, size)
}

func (c *Core) dmaTransfer(src, dst, count, incs, incd, size uint32) {
	if size == dmaBurst16 {
		src &^= 3
		dst &^= 3
		for count &^= 3; count > 0; count -= 4 {
			if incd == 2 {
				dst -= 16
			}
			for i := uint32(0); i < 16; i += 4 {
				c.Write32(dst+i, c.Read32(src+i))
			}
			src += 16
			if incd == 1 {
				dst += 16
			}
		}
		return
	}
	unit := uint32(1) << size
	src &^= unit - 1
	dst &^= unit - 1
	for ; count > 0; count-- {
		if incs == 2 {
			src -= unit
		}
		if incd == 2 {
			dst -= unit
		}
		switch size {
		case dmaByte:
			c.Write8(dst, c.Read8(src))
		case dmaWord:
			c.Write16(dst, c.Read16(src))
		case dmaLong:
			c.Write32(dst, c.Read32(src))
		}
		if incs == 1 {
			src += unit
		}
		if incd == 1 {
			dst += unit
		}
	}
}

func (c *Core) dmaComplete(ch int) {
	c.Onchip[regCHCR0+ch*4] |= chcrTE
	c.DMAActive[ch] = false
	c.recalcIRQ()
}
