package sh2

import "math/bits"

const (
	// LineNMI is the non-maskable interrupt line; 0-15 are the level lines.
	LineNMI = 16

	vectorNMI = 11

	pendingNMI = 1 << LineNMI
)

// autovector is the vector for external level interrupts.
func autovector(line int) uint32 {
	return 64 + uint32(line)/2
}

// SetIRQLine asserts or clears an external interrupt line. An assertion
// outside a delay slot is serviced immediately; inside one it waits for the
// slot to finish. NMI is edge-triggered: taking it clears its pending bit but
// the line stays asserted until cleared.
func (c *Core) SetIRQLine(line int, asserted bool) {
	if line < 0 || line > LineNMI {
		return
	}
	bit := uint32(1) << uint(line)
	if (c.Lines&bit != 0) == asserted {
		return
	}
	if !asserted {
		c.Lines &^= bit
		c.Pending &^= bit
		return
	}
	c.Lines |= bit
	c.Pending |= bit
	c.Suspend = false
	if c.Delay != 0 {
		c.TestIRQ = true
	} else {
		c.checkPendingIRQ()
	}
}

// IRQLine reports whether an external line is currently asserted.
func (c *Core) IRQLine(line int) bool {
	if line < 0 || line > LineNMI {
		return false
	}
	return c.Lines&(1<<uint(line)) != 0
}

// pendingLine picks the line to service: NMI first, then the highest external
// line, displaced by an on-chip source of strictly higher level.
func (c *Core) pendingLine() int {
	if c.Pending&pendingNMI != 0 {
		return LineNMI
	}
	irq := -1
	if p := c.Pending & 0xffff; p != 0 {
		irq = bits.Len32(p) - 1
	}
	if c.IntLevel != -1 && int(c.IntLevel) > irq {
		irq = int(c.IntLevel)
	}
	return irq
}

func (c *Core) checkPendingIRQ() {
	if irq := c.pendingLine(); irq >= 0 {
		c.exception(irq)
	}
}

// exception enters the handler for line unless the SR mask blocks it.
func (c *Core) exception(line int) {
	var vector uint32
	if line == LineNMI {
		vector = vectorNMI
		c.Pending &^= pendingNMI
	} else {
		if line <= int(c.SR>>4&15) {
			return
		}
		if int(c.IntLevel) == line {
			vector = uint32(c.IntVector)
		} else {
			// external vector fetch (ICR VECMD) is not wired, both modes autovector
			vector = autovector(line)
		}
	}

	c.R[15] -= 4
	c.wl(c.R[15], c.SR)
	c.R[15] -= 4
	c.wl(c.R[15], c.PC)

	if line == LineNMI {
		c.SR |= srI
	} else {
		c.SR = c.SR&^srI | uint32(line)<<4
	}
	c.PC = c.rl(c.VBR + vector*4)
	c.OnIntr(vector)
	if c.AnyBlock() {
		c.OnBlock(uint64(c.PC&addrMask), 2)
	}
}

// recalcIRQ picks the highest-level on-chip source with its interrupt
// enabled: the free-running timer, then the DMA channels.
func (c *Core) recalcIRQ() {
	level := int32(0)
	vector := int32(-1)
	m := &c.Onchip

	if mask := m[regFTCSR] >> 8 & m[regFTCSR]; mask&(frtICF|frtOCFA|frtOCFB|frtOVF) != 0 {
		if l := int32(m[regIPRB] >> 24 & 15); l > level {
			level = l
			switch {
			case mask&frtICF != 0:
				vector = int32(m[regVCRC] >> 8 & 0x7f)
			case mask&(frtOCFA|frtOCFB) != 0:
				vector = int32(m[regVCRC] & 0x7f)
			default:
				vector = int32(m[regVCRD] >> 24 & 0x7f)
			}
		}
	}
	for ch := 0; ch < 2; ch++ {
		if m[regCHCR0+ch*4]&(chcrIE|chcrTE) == chcrIE|chcrTE {
			if l := int32(m[regIPRA] >> 8 & 15); l > level {
				level = l
				vector = int32(m[regVCRDMA0+ch*2] >> 24 & 0x7f)
			}
		}
	}
	c.IntLevel = level
	c.IntVector = vector
	c.TestIRQ = true
}
