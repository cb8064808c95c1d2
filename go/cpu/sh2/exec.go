package sh2

func sext8(v uint8) uint32   { return uint32(int32(int8(v))) }
func sext16(v uint16) uint32 { return uint32(int32(int16(v))) }

func (c *Core) t() uint32 { return c.SR & srT }

func (c *Core) setT(b bool) {
	if b {
		c.SR |= srT
	} else {
		c.SR &^= srT
	}
}

// exec runs one instruction word. PC already points past it; delayed
// branches leave the slot address in Delay and the target in PC.
func (c *Core) exec(op uint16) {
	in := &decodeTable[op]
	r := &c.R
	n, m := in.N, in.M
	next := c.PC

	switch in.Op {
	case OpIllegal, OpNOP:

	// data transfer
	case OpMOV:
		r[n] = r[m]
	case OpMOVI:
		r[n] = uint32(in.simm8())
	case OpMOVWI:
		r[n] = sext16(c.rw(c.PC + uint32(in.Imm)*2 + 2))
	case OpMOVLI:
		r[n] = c.rl((c.PC+2)&^3 + uint32(in.Imm)*4)
	case OpMOVA:
		r[0] = (c.PC+2)&^3 + uint32(in.Imm)*4
	case OpMOVT:
		r[n] = c.t()

	case OpMOVBS:
		c.wb(r[n], uint8(r[m]))
	case OpMOVWS:
		c.ww(r[n], uint16(r[m]))
	case OpMOVLS:
		c.wl(r[n], r[m])
	case OpMOVBL:
		r[n] = sext8(c.rb(r[m]))
	case OpMOVWL:
		r[n] = sext16(c.rw(r[m]))
	case OpMOVLL:
		r[n] = c.rl(r[m])

	case OpMOVBM:
		v := uint8(r[m])
		r[n]--
		c.wb(r[n], v)
	case OpMOVWM:
		v := uint16(r[m])
		r[n] -= 2
		c.ww(r[n], v)
	case OpMOVLM:
		v := r[m]
		r[n] -= 4
		c.wl(r[n], v)

	case OpMOVBP:
		r[n] = sext8(c.rb(r[m]))
		if n != m {
			r[m]++
		}
	case OpMOVWP:
		r[n] = sext16(c.rw(r[m]))
		if n != m {
			r[m] += 2
		}
	case OpMOVLP:
		r[n] = c.rl(r[m])
		if n != m {
			r[m] += 4
		}

	case OpMOVBS0:
		c.wb(r[n]+r[0], uint8(r[m]))
	case OpMOVWS0:
		c.ww(r[n]+r[0], uint16(r[m]))
	case OpMOVLS0:
		c.wl(r[n]+r[0], r[m])
	case OpMOVBL0:
		r[n] = sext8(c.rb(r[m] + r[0]))
	case OpMOVWL0:
		r[n] = sext16(c.rw(r[m] + r[0]))
	case OpMOVLL0:
		r[n] = c.rl(r[m] + r[0])

	case OpMOVBS4:
		c.wb(r[m]+uint32(in.Imm), uint8(r[0]))
	case OpMOVWS4:
		c.ww(r[m]+uint32(in.Imm)*2, uint16(r[0]))
	case OpMOVLS4:
		c.wl(r[n]+uint32(in.Imm)*4, r[m])
	case OpMOVBL4:
		r[0] = sext8(c.rb(r[m] + uint32(in.Imm)))
	case OpMOVWL4:
		r[0] = sext16(c.rw(r[m] + uint32(in.Imm)*2))
	case OpMOVLL4:
		r[n] = c.rl(r[m] + uint32(in.Imm)*4)

	case OpMOVBSG:
		c.wb(c.GBR+uint32(in.Imm), uint8(r[0]))
	case OpMOVWSG:
		c.ww(c.GBR+uint32(in.Imm)*2, uint16(r[0]))
	case OpMOVLSG:
		c.wl(c.GBR+uint32(in.Imm)*4, r[0])
	case OpMOVBLG:
		r[0] = sext8(c.rb(c.GBR + uint32(in.Imm)))
	case OpMOVWLG:
		r[0] = sext16(c.rw(c.GBR + uint32(in.Imm)*2))
	case OpMOVLLG:
		r[0] = c.rl(c.GBR + uint32(in.Imm)*4)

	case OpSWAPB:
		r[n] = r[m]&0xffff0000 | (r[m]&0xff)<<8 | (r[m]>>8)&0xff
	case OpSWAPW:
		r[n] = r[m]<<16 | r[m]>>16
	case OpXTRCT:
		r[n] = r[m]<<16 | r[n]>>16

	// arithmetic
	case OpADD:
		r[n] += r[m]
	case OpADDI:
		r[n] += uint32(in.simm8())
	case OpADDC:
		sum := r[n] + r[m]
		old := r[n]
		r[n] = sum + c.t()
		c.setT(old > sum || sum > r[n])
	case OpADDV:
		dest := r[n] >> 31
		src := r[m]>>31 + dest
		r[n] += r[m]
		ans := r[n]>>31 + dest
		c.setT((src == 0 || src == 2) && ans == 1)
	case OpSUB:
		r[n] -= r[m]
	case OpSUBC:
		diff := r[n] - r[m]
		old := r[n]
		r[n] = diff - c.t()
		c.setT(old < diff || diff < r[n])
	case OpSUBV:
		dest := r[n] >> 31
		src := r[m]>>31 + dest
		r[n] -= r[m]
		ans := r[n]>>31 + dest
		c.setT(src == 1 && ans == 1)
	case OpNEG:
		r[n] = -r[m]
	case OpNEGC:
		v := r[m]
		t := c.t()
		r[n] = -v - t
		c.setT(v != 0 || t != 0)
	case OpDT:
		r[n]--
		c.setT(r[n] == 0)
		if c.BusyLoops && r[n] > 1 && c.Read16(c.PC&addrMask) == 0x8bfd {
			c.spinDT(n)
		}

	case OpCMPEQ:
		c.setT(r[n] == r[m])
	case OpCMPGE:
		c.setT(int32(r[n]) >= int32(r[m]))
	case OpCMPGT:
		c.setT(int32(r[n]) > int32(r[m]))
	case OpCMPHI:
		c.setT(r[n] > r[m])
	case OpCMPHS:
		c.setT(r[n] >= r[m])
	case OpCMPPL:
		c.setT(int32(r[n]) > 0)
	case OpCMPPZ:
		c.setT(int32(r[n]) >= 0)
	case OpCMPIM:
		c.setT(r[0] == uint32(in.simm8()))
	case OpCMPSTR:
		x := r[n] ^ r[m]
		c.setT(x&0xff000000 == 0 || x&0x00ff0000 == 0 || x&0x0000ff00 == 0 || x&0x000000ff == 0)

	case OpDIV0S:
		c.SR &^= srQ | srM | srT
		if r[n]&0x80000000 != 0 {
			c.SR |= srQ
		}
		if r[m]&0x80000000 != 0 {
			c.SR |= srM
		}
		if (r[n]^r[m])&0x80000000 != 0 {
			c.SR |= srT
		}
	case OpDIV0U:
		c.SR &^= srM | srQ | srT
	case OpDIV1:
		c.div1(n, m)

	case OpDMULS:
		res := uint64(int64(int32(r[n])) * int64(int32(r[m])))
		c.MACH, c.MACL = uint32(res>>32), uint32(res)
		c.icount--
	case OpDMULU:
		res := uint64(r[n]) * uint64(r[m])
		c.MACH, c.MACL = uint32(res>>32), uint32(res)
		c.icount--
	case OpMULL:
		c.MACL = r[n] * r[m]
		c.icount--
	case OpMULS:
		c.MACL = uint32(int32(int16(r[n])) * int32(int16(r[m])))
	case OpMULU:
		c.MACL = uint32(uint16(r[n])) * uint32(uint16(r[m]))
	case OpMACL:
		c.macl(n, m)
		c.icount -= 2
	case OpMACW:
		c.macw(n, m)
		c.icount -= 2
	case OpCLRMAC:
		c.MACH, c.MACL = 0, 0

	case OpEXTSB:
		r[n] = sext8(uint8(r[m]))
	case OpEXTSW:
		r[n] = sext16(uint16(r[m]))
	case OpEXTUB:
		r[n] = r[m] & 0xff
	case OpEXTUW:
		r[n] = r[m] & 0xffff

	// logic
	case OpAND:
		r[n] &= r[m]
	case OpANDI:
		r[0] &= uint32(in.Imm)
	case OpANDM:
		ea := c.GBR + r[0]
		c.wb(ea, uint8(in.Imm)&c.rb(ea))
		c.icount -= 2
	case OpOR:
		r[n] |= r[m]
	case OpORI:
		r[0] |= uint32(in.Imm)
	case OpORM:
		ea := c.GBR + r[0]
		c.wb(ea, uint8(in.Imm)|c.rb(ea))
		c.icount -= 2
	case OpXOR:
		r[n] ^= r[m]
	case OpXORI:
		r[0] ^= uint32(in.Imm)
	case OpXORM:
		ea := c.GBR + r[0]
		c.wb(ea, uint8(in.Imm)^c.rb(ea))
		c.icount -= 2
	case OpNOT:
		r[n] = ^r[m]
	case OpTST:
		c.setT(r[n]&r[m] == 0)
	case OpTSTI:
		c.setT(r[0]&uint32(in.Imm) == 0)
	case OpTSTM:
		ea := c.GBR + r[0]
		c.setT(uint8(in.Imm)&c.rb(ea) == 0)
		c.icount -= 2
	case OpTAS:
		ea := r[n]
		v := c.rb(ea)
		c.setT(v == 0)
		c.wb(ea, v|0x80)
		c.icount -= 3

	// shifts
	case OpROTL:
		c.setT(r[n]>>31 != 0)
		r[n] = r[n]<<1 | r[n]>>31
	case OpROTR:
		c.setT(r[n]&1 != 0)
		r[n] = r[n]>>1 | r[n]<<31
	case OpROTCL:
		t := c.t()
		c.setT(r[n]>>31 != 0)
		r[n] = r[n]<<1 | t
	case OpROTCR:
		t := c.t()
		c.setT(r[n]&1 != 0)
		r[n] = r[n]>>1 | t<<31
	case OpSHAL, OpSHLL:
		c.setT(r[n]>>31 != 0)
		r[n] <<= 1
	case OpSHAR:
		c.setT(r[n]&1 != 0)
		r[n] = uint32(int32(r[n]) >> 1)
	case OpSHLR:
		c.setT(r[n]&1 != 0)
		r[n] >>= 1
	case OpSHLL2:
		r[n] <<= 2
	case OpSHLL8:
		r[n] <<= 8
	case OpSHLL16:
		r[n] <<= 16
	case OpSHLR2:
		r[n] >>= 2
	case OpSHLR8:
		r[n] >>= 8
	case OpSHLR16:
		r[n] >>= 16

	// branches
	case OpBF:
		if c.t() == 0 {
			c.PC += uint32(in.simm8()*2) + 2
			c.icount -= 2
		}
	case OpBT:
		if c.t() != 0 {
			c.PC += uint32(in.simm8()*2) + 2
			c.icount -= 2
		}
	case OpBFS:
		if c.t() == 0 {
			c.Delay = c.PC
			c.PC += uint32(in.simm8()*2) + 2
			c.icount--
		}
	case OpBTS:
		if c.t() != 0 {
			c.Delay = c.PC
			c.PC += uint32(in.simm8()*2) + 2
			c.icount--
		}
	case OpBRA:
		disp := in.simm12()
		if c.BusyLoops && disp == -2 && c.Read16(c.PC&addrMask) == 0x0009 {
			c.spinBRA()
		}
		c.Delay = c.PC
		c.PC += uint32(disp*2) + 2
		c.icount--
	case OpBSR:
		c.PR = c.PC + 2
		c.Delay = c.PC
		c.PC += uint32(in.simm12()*2) + 2
		c.icount--
	case OpBRAF:
		c.Delay = c.PC
		c.PC += r[n] + 2
		c.icount--
	case OpBSRF:
		c.PR = c.PC + 2
		c.Delay = c.PC
		c.PC += r[n] + 2
		c.icount--
	case OpJMP:
		c.Delay = c.PC
		c.PC = r[n]
		c.icount--
	case OpJSR:
		c.Delay = c.PC
		c.PR = c.PC + 2
		c.PC = r[n]
		c.icount--
	case OpRTS:
		c.Delay = c.PC
		c.PC = c.PR
		c.icount--
	case OpRTE:
		c.Delay = c.PC
		c.PC = c.rl(r[15])
		r[15] += 4
		c.SR = c.rl(r[15]) & srFlags
		r[15] += 4
		c.icount -= 3
		c.TestIRQ = true

	// system control
	case OpCLRT:
		c.SR &^= srT
	case OpSETT:
		c.SR |= srT
	case OpSLEEP:
		c.PC -= 2
		c.icount -= 2
	case OpTRAPA:
		ea := c.VBR + uint32(in.Imm)*4
		r[15] -= 4
		c.wl(r[15], c.SR)
		r[15] -= 4
		c.wl(r[15], c.PC)
		c.PC = c.rl(ea)
		c.icount -= 7
		c.OnIntr(uint32(in.Imm))

	case OpLDCSR:
		c.SR = r[n] & srFlags
		c.TestIRQ = true
	case OpLDCGBR:
		c.GBR = r[n]
	case OpLDCVBR:
		c.VBR = r[n]
	case OpLDCMSR:
		c.SR = c.rl(r[n]) & srFlags
		r[n] += 4
		c.icount -= 2
		c.TestIRQ = true
	case OpLDCMGBR:
		c.GBR = c.rl(r[n])
		r[n] += 4
		c.icount -= 2
	case OpLDCMVBR:
		c.VBR = c.rl(r[n])
		r[n] += 4
		c.icount -= 2
	case OpLDSMACH:
		c.MACH = r[n]
	case OpLDSMACL:
		c.MACL = r[n]
	case OpLDSPR:
		c.PR = r[n]
	case OpLDSMMACH:
		c.MACH = c.rl(r[n])
		r[n] += 4
	case OpLDSMMACL:
		c.MACL = c.rl(r[n])
		r[n] += 4
	case OpLDSMPR:
		c.PR = c.rl(r[n])
		r[n] += 4

	case OpSTCSR:
		r[n] = c.SR
	case OpSTCGBR:
		r[n] = c.GBR
	case OpSTCVBR:
		r[n] = c.VBR
	case OpSTCMSR:
		r[n] -= 4
		c.wl(r[n], c.SR)
		c.icount--
	case OpSTCMGBR:
		r[n] -= 4
		c.wl(r[n], c.GBR)
		c.icount--
	case OpSTCMVBR:
		r[n] -= 4
		c.wl(r[n], c.VBR)
		c.icount--
	case OpSTSMACH:
		r[n] = c.MACH
	case OpSTSMACL:
		r[n] = c.MACL
	case OpSTSPR:
		r[n] = c.PR
	case OpSTSMMACH:
		r[n] -= 4
		c.wl(r[n], c.MACH)
	case OpSTSMMACL:
		r[n] -= 4
		c.wl(r[n], c.MACL)
	case OpSTSMPR:
		r[n] -= 4
		c.wl(r[n], c.PR)
	}
	if c.AnyBlock() && (c.Delay != 0 || c.PC != next) {
		c.OnBlock(uint64(c.PC&addrMask), 2)
	}
}

// div1 is one step of the non-restoring division.
func (c *Core) div1(n, m uint8) {
	r := &c.R
	oldQ := c.SR&srQ != 0
	mFlag := c.SR&srM != 0
	q := r[n]&0x80000000 != 0
	r[n] = r[n]<<1 | c.t()

	old := r[n]
	var carry bool
	if oldQ == mFlag {
		r[n] -= r[m]
		carry = r[n] > old
	} else {
		r[n] += r[m]
		carry = r[n] < old
	}
	if mFlag {
		q = q == carry
	} else {
		q = q != carry
	}
	if q {
		c.SR |= srQ
	} else {
		c.SR &^= srQ
	}
	c.setT(q == mFlag)
}

// macl accumulates @Rn+ * @Rm+ into MACH:MACL, saturating to 48 bits when S
// is set.
func (c *Core) macl(n, m uint8) {
	r := &c.R
	a := int64(int32(c.rl(r[n])))
	r[n] += 4
	b := int64(int32(c.rl(r[m])))
	r[m] += 4

	acc := int64(uint64(c.MACH)<<32 | uint64(c.MACL))
	if c.SR&srS != 0 {
		// sign-extend the 48-bit accumulator before adding
		acc = acc << 16 >> 16
		acc += a * b
		const max48 = 0x00007fffffffffff
		const min48 = -0x0000800000000000
		if acc > max48 {
			acc = max48
		} else if acc < min48 {
			acc = min48
		}
	} else {
		acc += a * b
	}
	c.MACH, c.MACL = uint32(uint64(acc)>>32), uint32(acc)
}

// macw accumulates @Rn+ * @Rm+ (words). With S set only MACL is used and it
// saturates to 32 bits.
func (c *Core) macw(n, m uint8) {
	r := &c.R
	a := int64(int16(c.rw(r[n])))
	r[n] += 2
	b := int64(int16(c.rw(r[m])))
	r[m] += 2

	if c.SR&srS != 0 {
		sum := int64(int32(c.MACL)) + a*b
		if sum > 0x7fffffff {
			c.MACH |= 1
			sum = 0x7fffffff
		} else if sum < -0x80000000 {
			c.MACH |= 1
			sum = -0x80000000
		}
		c.MACL = uint32(sum)
		return
	}
	acc := int64(uint64(c.MACH)<<32|uint64(c.MACL)) + a*b
	c.MACH, c.MACL = uint32(uint64(acc)>>32), uint32(acc)
}

// spinBRA shortens a BRA-to-self with a NOP slot to its remainder of three.
func (c *Core) spinBRA() {
	if left := c.untilEvent(); left < c.icount {
		c.icount -= (c.icount - left) / 3 * 3
		return
	}
	c.icount %= 3
}

// spinDT runs a DT/BF-1 countdown ahead, four cycles per iteration, without
// crossing a peripheral deadline.
func (c *Core) spinDT(n uint8) {
	limit := c.icount - c.untilEvent()
	for c.R[n] > 1 && c.icount > 4 && c.icount-4 >= limit {
		c.R[n]--
		c.icount -= 4
	}
}
