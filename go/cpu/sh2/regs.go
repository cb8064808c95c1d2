package sh2

// Register numbers follow GDB's SH layout so the debug stub can index them
// directly. PPC is an extra slot past the GDB set.
const (
	R0 = iota
	R1
	R2
	R3
	R4
	R5
	R6
	R7
	R8
	R9
	R10
	R11
	R12
	R13
	R14
	R15
	PC
	PR
	GBR
	VBR
	MACH
	MACL
	SR
	PPC

	RegCount
)

// SR bits
const (
	srT = 0x00000001
	srS = 0x00000002
	srI = 0x000000f0
	srQ = 0x00000100
	srM = 0x00000200

	srFlags = srM | srQ | srI | srS | srT
)

// fetch and DMA addresses drop bits 27-29, folding the cache-through and
// associative-purge areas onto the main space
const addrMask = 0xc7ffffff

var RegNames = [RegCount]string{
	"r0", "r1", "r2", "r3", "r4", "r5", "r6", "r7",
	"r8", "r9", "r10", "r11", "r12", "r13", "r14", "r15",
	"pc", "pr", "gbr", "vbr", "mach", "macl", "sr", "ppc",
}

// RegIndex maps a register name back to its number.
func RegIndex(name string) (int, bool) {
	for i, v := range RegNames {
		if v == name {
			return i, true
		}
	}
	if name == "sp" {
		return R15, true
	}
	return 0, false
}

func (s *State) regPtr(reg int) *uint32 {
	switch {
	case reg >= R0 && reg <= R15:
		return &s.R[reg]
	case reg == PC:
		return &s.PC
	case reg == PR:
		return &s.PR
	case reg == GBR:
		return &s.GBR
	case reg == VBR:
		return &s.VBR
	case reg == MACH:
		return &s.MACH
	case reg == MACL:
		return &s.MACL
	case reg == SR:
		return &s.SR
	case reg == PPC:
		return &s.PPC
	}
	return nil
}
