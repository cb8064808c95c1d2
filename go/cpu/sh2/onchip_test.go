package sh2

import (
	"bytes"
	"testing"

	"github.com/jnnycn007/fbalpha2012-cps3/go/models/cpu"
)

// on-chip register addresses
const (
	addrFTCSR   = 0xfffffe10
	addrOCR     = 0xfffffe14
	addrIPRB    = 0xfffffe60
	addrVCRC    = 0xfffffe64
	addrIPRA    = 0xfffffee0
	addrDVSR    = 0xffffff00
	addrDVDNT   = 0xffffff04
	addrDVCR    = 0xffffff08
	addrDVDNTH  = 0xffffff10
	addrDVDNTL  = 0xffffff14
	addrDVDNTLM = 0xffffff1c
	addrSAR0    = 0xffffff80
	addrDAR0    = 0xffffff84
	addrTCR0    = 0xffffff88
	addrCHCR0   = 0xffffff8c
	addrVCRDMA0 = 0xffffffa0
	addrDMAOR   = 0xffffffb0
)

func TestDivide32(t *testing.T) {
	c := New()
	c.Write32(addrDVSR, 3)
	c.Write32(addrDVDNT, 10)
	if q, r := c.Read32(addrDVDNTL), c.Read32(addrDVDNTH); q != 3 || r != 1 {
		t.Fatalf("10/3 = %d r %d", q, r)
	}
	if q := c.Read32(addrDVDNTLM); q != 3 {
		t.Fatalf("quotient mirror %d", q)
	}
	c.Write32(addrDVSR, 2)
	c.Write32(addrDVDNT, uint32(0xfffffff9)) // -7
	if q, r := int32(c.Read32(addrDVDNTL)), int32(c.Read32(addrDVDNTH)); q != -3 || r != -1 {
		t.Fatalf("-7/2 = %d r %d", q, r)
	}
	if c.Read32(addrDVCR)&dvcrOVF != 0 {
		t.Fatal("overflow flagged without a zero divide")
	}

	c.Write32(addrDVSR, 0)
	c.Write32(addrDVDNT, 10)
	if q, r := c.Read32(addrDVDNTL), c.Read32(addrDVDNTH); q != 0x7fffffff || r != 0x7fffffff {
		t.Fatalf("10/0 = %#x r %#x", q, r)
	}
	if c.Read32(addrDVCR)&dvcrOVF == 0 {
		t.Fatal("zero divide did not set overflow")
	}
	// writing 1 clears the flag, writing 0 leaves it
	c.Write32(addrDVCR, 0)
	if c.Read32(addrDVCR)&dvcrOVF == 0 {
		t.Fatal("writing 0 cleared the overflow flag")
	}
	c.Write32(addrDVCR, dvcrOVF)
	if c.Read32(addrDVCR)&dvcrOVF != 0 {
		t.Fatal("writing 1 did not clear the overflow flag")
	}
	c.Write32(addrDVCR, dvcrOVF)
	if c.Read32(addrDVCR)&dvcrOVF != 0 {
		t.Fatal("software set the overflow flag")
	}
}

func TestDivide64(t *testing.T) {
	c := New()
	c.Write32(addrDVSR, 3)
	c.Write32(addrDVDNTH, 0)
	c.Write32(addrDVDNTL, 10)
	if q, r := c.Read32(addrDVDNTL), c.Read32(addrDVDNTH); q != 3 || r != 1 {
		t.Fatalf("10/3 = %d r %d", q, r)
	}

	c.Write32(addrDVSR, 0)
	c.Write32(addrDVDNTH, 0)
	c.Write32(addrDVDNTL, 10)
	if q, r := c.Read32(addrDVDNTL), c.Read32(addrDVDNTH); q != 0x7fffffff || r != 0x7fffffff {
		t.Fatalf("10/0 = %#x r %#x", q, r)
	}
	if c.Read32(addrDVCR)&dvcrOVF == 0 {
		t.Fatal("zero divide did not set overflow")
	}

	c.Write32(addrDVCR, dvcrOVF)
	c.Write32(addrDVSR, 1)
	c.Write32(addrDVDNTH, 1)
	c.Write32(addrDVDNTL, 0)
	if q := c.Read32(addrDVDNTL); q != 0x7fffffff || c.Read32(addrDVCR)&dvcrOVF == 0 {
		t.Fatalf("2^32/1 did not saturate: %#x", q)
	}
}

func TestTimerCompareInterrupt(t *testing.T) {
	c, ram := newTestCore(t)
	const vector = 0x50
	const handler = 0x2000
	load(ram, vector*4, handler>>16, handler&0xffff)
	var intrs []uint32
	c.HookAdd(cpu.HOOK_INTR, func(_ cpu.Cpu, v uint32) { intrs = append(intrs, v) }, 1, 0)

	c.SR = 0
	c.Write32(addrIPRB, 0x0a000000)  // FRT level 10
	c.Write32(addrVCRC, vector)      // FOCI vector
	c.Write32(addrFTCSR, 0x080000ff) // OCIAE, FRC = 0xff
	c.Write32(addrOCR, 0x01000000)   // OCRA = 0x100, clock/8

	step(c, 7)
	if c.Onchip[regFTCSR]&frtOCFA != 0 {
		t.Fatal("compare matched early")
	}
	step(c, 1)
	if c.Read32(addrFTCSR)&frtOCFA == 0 {
		t.Fatal("compare A did not match after one tick")
	}
	if frc := c.Read16(addrFTCSR + 2); frc != 0x100 {
		t.Fatalf("frc = %#x", frc)
	}
	if c.GetPC() != codeBase+16 {
		t.Fatal("interrupt taken before the next instruction boundary")
	}
	step(c, 1)
	if c.GetPC() != handler {
		t.Fatalf("pc %#x, want handler", c.GetPC())
	}
	if c.SR>>4&15 != 10 {
		t.Fatalf("SR mask %d, want 10", c.SR>>4&15)
	}
	if c.R[15] != stackTop-8 || c.Read32(stackTop-8) != codeBase+18 || c.Read32(stackTop-4) != 0 {
		t.Fatalf("bad exception frame at %#x", c.R[15])
	}
	if len(intrs) != 1 || intrs[0] != vector {
		t.Fatalf("interrupt hooks saw %v", intrs)
	}

	// flags are write-one-to-clear, one bit at a time
	c.Write8(addrFTCSR+1, 0)
	if c.Onchip[regFTCSR]&frtOCFA == 0 {
		t.Fatal("writing 0 cleared OCFA")
	}
	c.Write8(addrFTCSR+1, frtOCFB>>16)
	if c.Onchip[regFTCSR]&frtOCFA == 0 {
		t.Fatal("clearing OCFB cleared OCFA")
	}
	c.Write8(addrFTCSR+1, frtOCFA>>16)
	if c.Onchip[regFTCSR]&frtOCFA != 0 {
		t.Fatal("writing 1 left OCFA set")
	}
	if c.IntLevel != 0 {
		t.Fatalf("internal level %d after clearing the only flag", c.IntLevel)
	}
}

func TestTimerReadsAdvance(t *testing.T) {
	c, _ := newTestCore(t)
	c.Write32(addrOCR, 0x80000100) // OCRA = 0x8000, clock/32
	c.Write16(addrFTCSR+2, 1)
	c.Run(64)
	if frc := c.Read16(addrFTCSR + 2); frc != 3 {
		t.Fatalf("frc = %d after 64 cycles at /32", frc)
	}
}

func TestDMATwoPhase(t *testing.T) {
	c, ram := newTestCore(t)
	src := []byte{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15, 16}
	copy(ram[0x2000:], src)

	c.Write32(addrSAR0, 0x2000)
	c.Write32(addrDAR0, 0x3000)
	c.Write32(addrTCR0, 4)
	c.Write32(addrDMAOR, dmaorDME)
	// dst++, src++, long units, IE, DE
	c.Write32(addrCHCR0, 0x4000|0x1000|0x0800|chcrIE|chcrDE)

	if !bytes.Equal(ram[0x3000:0x3010], src) {
		t.Fatalf("data not copied at activation: % x", ram[0x3000:0x3010])
	}
	if c.Read32(addrCHCR0)&chcrTE != 0 {
		t.Fatal("TE set before the deadline")
	}
	step(c, 8)
	if c.Read32(addrCHCR0)&chcrTE != 0 || !c.DMAActive[0] {
		t.Fatal("completed before 2*count+1 cycles")
	}
	step(c, 1)
	if c.Read32(addrCHCR0)&chcrTE == 0 || c.DMAActive[0] {
		t.Fatal("did not complete at 2*count+1 cycles")
	}

	// a completed channel does not restart until TE is cleared
	ram[0x2000] = 0xff
	c.Write32(addrCHCR0, 0x4000|0x1000|0x0800|chcrDE)
	if ram[0x3000] != 1 || c.Read32(addrCHCR0)&chcrTE == 0 {
		t.Fatal("writing TE=0 cleared TE")
	}
	c.Write32(addrCHCR0, 0x4000|0x1000|0x0800|chcrTE|chcrDE)
	if ram[0x3000] != 0xff || !c.DMAActive[0] {
		t.Fatal("channel did not restart once TE was cleared")
	}
}

func TestDMADecrementBytes(t *testing.T) {
	c, ram := newTestCore(t)
	copy(ram[0x2000:], []byte{1, 2, 3, 4})
	c.Write32(addrSAR0, 0x2000)
	c.Write32(addrDAR0, 0x3004)
	c.Write32(addrTCR0, 4)
	c.Write32(addrDMAOR, dmaorDME)
	c.Write32(addrCHCR0, 0x8000|0x1000|chcrDE) // dst--, src++, bytes
	if !bytes.Equal(ram[0x3000:0x3004], []byte{4, 3, 2, 1}) {
		t.Fatalf("reversed copy: % x", ram[0x3000:0x3004])
	}
}

func TestDMABurst(t *testing.T) {
	c, ram := newTestCore(t)
	for i := 0; i < 32; i++ {
		ram[0x2000+i] = byte(i + 1)
	}
	c.Write32(addrSAR0, 0x2000)
	c.Write32(addrDAR0, 0x3000)
	c.Write32(addrTCR0, 8)
	c.Write32(addrDMAOR, dmaorDME)
	c.Write32(addrCHCR0, 0x4000|0x0c00|chcrDE) // dst++, src fixed, 16-byte units
	if !bytes.Equal(ram[0x3000:0x3020], ram[0x2000:0x2020]) {
		t.Fatalf("burst copy: % x", ram[0x3000:0x3020])
	}
}

func TestDMACompletionInterrupt(t *testing.T) {
	c, ram := newTestCore(t)
	load(ram, 0x60*4, 0, 0x2400)
	c.SR = 0
	c.Write16(addrIPRA+2, 0x0500)      // DMAC level 5
	c.Write32(addrVCRDMA0, 0x60000000) // vector 0x60
	c.Write32(addrSAR0, 0x2000)
	c.Write32(addrDAR0, 0x3000)
	c.Write32(addrTCR0, 1)
	c.Write32(addrDMAOR, dmaorDME)
	c.Write32(addrCHCR0, 0x5800|chcrIE|chcrDE)
	step(c, 4)
	if c.GetPC() != 0x2400 {
		t.Fatalf("pc %#x, want DMA handler", c.GetPC())
	}
}

func TestDMAAcknowledgeStopsInterrupt(t *testing.T) {
	c, ram := newTestCore(t)
	load(ram, 0x60*4, 0, 0x2400)
	// mov #0x8c,r1 (sign-extends to CHCR0); mov #2,r0; mov.l r0,@r1; rte; nop
	load(ram, 0x2400, opMOVI(1, 0x8c), opMOVI(0, chcrTE), opMOVLS(1, 0), opRTE, opNOP)
	var intrs []uint32
	c.HookAdd(cpu.HOOK_INTR, func(_ cpu.Cpu, v uint32) { intrs = append(intrs, v) }, 1, 0)

	c.SR = 0
	c.Write16(addrIPRA+2, 0x0500)
	c.Write32(addrVCRDMA0, 0x60000000)
	c.Write32(addrSAR0, 0x2000)
	c.Write32(addrDAR0, 0x3000)
	c.Write32(addrTCR0, 1)
	c.Write32(addrDMAOR, dmaorDME)
	c.Write32(addrCHCR0, 0x5800|chcrIE|chcrDE)
	step(c, 12)

	if c.Read32(addrCHCR0)&chcrTE != 0 {
		t.Fatal("handler did not clear TE")
	}
	if c.IntLevel != 0 {
		t.Fatalf("internal level still %d after acknowledge", c.IntLevel)
	}
	if len(intrs) != 1 || intrs[0] != 0x60 {
		t.Fatalf("interrupts %v, want one DMA interrupt", intrs)
	}
	if c.SR>>4&15 != 0 {
		t.Fatalf("SR mask %d after rte", c.SR>>4&15)
	}
}

func TestPriorityWriteRecomputesLevel(t *testing.T) {
	c := New()
	c.Onchip[regCHCR0] = chcrIE | chcrTE
	c.Write16(addrIPRA+2, 0x0700)
	if c.IntLevel != 7 || c.IntVector != 0 {
		t.Fatalf("level %d vector %d after IPRA write", c.IntLevel, c.IntVector)
	}
	c.Write16(addrIPRA+2, 0)
	if c.IntLevel != 0 {
		t.Fatalf("level %d after masking DMAC", c.IntLevel)
	}
}

func TestOnchipByteLanes(t *testing.T) {
	c := New()
	c.Write32(addrSAR0, 0x11223344)
	if v := c.Read8(addrSAR0 + 1); v != 0x22 {
		t.Fatalf("byte 1 = %#x", v)
	}
	c.Write8(addrSAR0+3, 0xaa)
	c.Write16(addrSAR0, 0xbbcc)
	if v := c.Read32(addrSAR0); v != 0xbbcc33aa {
		t.Fatalf("merged = %#x", v)
	}
	// the register block repeats every 512 bytes
	if v := c.Read32(addrSAR0 - 0x200); v != 0xbbcc33aa {
		t.Fatalf("alias = %#x", v)
	}
	if c.Read32(addrIPRA)&0x80000000 == 0 {
		t.Fatal("NMI level bit reads low")
	}
}
