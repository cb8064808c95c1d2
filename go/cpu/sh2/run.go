package sh2

func (c *Core) now() uint32 {
	return c.Cycles + uint32(c.cyclesToRun-c.icount)
}

// Run executes instructions until at least cycles cycles are spent, the core
// suspends, or StopRun is called. It returns the cycles actually used, which
// can overshoot the budget by the cost of the last instruction.
func (c *Core) Run(cycles int) int {
	c.icount = int32(cycles)
	c.cyclesToRun = int32(cycles)
	c.running = true
	c.halted = false
	for c.icount > 0 && !c.halted {
		if c.Suspend {
			c.icount = 0
			break
		}
		c.step()
	}
	used := c.cyclesToRun - c.icount
	c.Cycles += uint32(used)
	c.icount, c.cyclesToRun = 0, 0
	c.running = false
	return int(used)
}

func (c *Core) step() {
	var addr uint32
	slot := c.Delay != 0
	if slot {
		addr = c.Delay
		c.Delay = 0
	} else {
		addr = c.PC
		c.PC += 2
	}
	if c.AnyCode() {
		c.OnCode(uint64(addr&addrMask), 2)
		if c.halted {
			if slot {
				c.Delay = addr
			} else {
				c.PC -= 2
			}
			return
		}
	}
	c.PPC = addr
	op := c.fetch(addr & addrMask)
	c.exec(op)

	if c.TestIRQ && c.Delay == 0 {
		c.checkPendingIRQ()
		c.TestIRQ = false
	}
	c.icount--
	c.pollEvents()
}

// pollEvents fires every peripheral deadline that has passed, DMA channels
// before the timer.
func (c *Core) pollEvents() {
	now := c.now()
	for ch := 0; ch < 2; ch++ {
		if c.DMAActive[ch] && now-c.DMABase[ch] >= c.DMACycles[ch] {
			c.dmaComplete(ch)
		}
	}
	if c.TimerActive && now-c.TimerBase >= c.TimerCycles {
		c.timerExpired()
	}
}

// untilEvent is the number of cycles before the next armed deadline, or the
// remaining budget when nothing is armed.
func (c *Core) untilEvent() int32 {
	left := c.icount
	now := c.now()
	for ch := 0; ch < 2; ch++ {
		if c.DMAActive[ch] {
			if d := int32(c.DMACycles[ch] - (now - c.DMABase[ch])); d < left {
				left = d
			}
		}
	}
	if c.TimerActive {
		if d := int32(c.TimerCycles - (now - c.TimerBase)); d < left {
			left = d
		}
	}
	return left
}

// StopRun ends the current Run after the executing instruction completes.
// Run then reports only the cycles actually executed.
func (c *Core) StopRun() {
	if c.running {
		c.cyclesToRun -= c.icount
		c.icount = 0
	}
}

// BurnCycles consumes n cycles: from the running budget inside Run, or
// straight onto the counter otherwise.
func (c *Core) BurnCycles(n int) {
	if c.running {
		c.icount -= int32(n)
	} else {
		c.Cycles += uint32(n)
	}
}

// BurnUntilInterrupt suspends the core. Until an interrupt line is asserted,
// Run spends its whole budget without executing anything.
func (c *Core) BurnUntilInterrupt() {
	c.Suspend = true
}

// NewFrame starts a new TotalCycles window.
func (c *Core) NewFrame() {
	c.FrameBase = c.now()
}

// TotalCycles is the number of cycles spent since the last NewFrame,
// including the part of a Run in progress.
func (c *Core) TotalCycles() int {
	return int(c.now() - c.FrameBase)
}

// GetPC returns the address of the next instruction to execute, which is
// the delay slot while a branch is pending.
func (c *Core) GetPC() uint32 {
	if c.Delay != 0 {
		return c.Delay & addrMask
	}
	return c.PC & addrMask
}

func (c *Core) SetVectorBase(vbr uint32) {
	c.VBR = vbr
}
