package sh2

// Op identifies a decoded instruction. OpIllegal covers every unassigned
// encoding and executes as a no-op.
type Op uint8

const (
	OpIllegal Op = iota
	OpNOP

	OpADD
	OpADDI
	OpADDC
	OpADDV
	OpAND
	OpANDI
	OpANDM
	OpBF
	OpBFS
	OpBRA
	OpBRAF
	OpBSR
	OpBSRF
	OpBT
	OpBTS
	OpCLRMAC
	OpCLRT
	OpCMPEQ
	OpCMPGE
	OpCMPGT
	OpCMPHI
	OpCMPHS
	OpCMPPL
	OpCMPPZ
	OpCMPSTR
	OpCMPIM
	OpDIV0S
	OpDIV0U
	OpDIV1
	OpDMULS
	OpDMULU
	OpDT
	OpEXTSB
	OpEXTSW
	OpEXTUB
	OpEXTUW
	OpJMP
	OpJSR
	OpLDCSR
	OpLDCGBR
	OpLDCVBR
	OpLDCMSR
	OpLDCMGBR
	OpLDCMVBR
	OpLDSMACH
	OpLDSMACL
	OpLDSPR
	OpLDSMMACH
	OpLDSMMACL
	OpLDSMPR
	OpMACL
	OpMACW
	OpMOV
	OpMOVBS
	OpMOVWS
	OpMOVLS
	OpMOVBL
	OpMOVWL
	OpMOVLL
	OpMOVBM
	OpMOVWM
	OpMOVLM
	OpMOVBP
	OpMOVWP
	OpMOVLP
	OpMOVBS0
	OpMOVWS0
	OpMOVLS0
	OpMOVBL0
	OpMOVWL0
	OpMOVLL0
	OpMOVI
	OpMOVWI
	OpMOVLI
	OpMOVBLG
	OpMOVWLG
	OpMOVLLG
	OpMOVBSG
	OpMOVWSG
	OpMOVLSG
	OpMOVBS4
	OpMOVWS4
	OpMOVLS4
	OpMOVBL4
	OpMOVWL4
	OpMOVLL4
	OpMOVA
	OpMOVT
	OpMULL
	OpMULS
	OpMULU
	OpNEG
	OpNEGC
	OpNOT
	OpOR
	OpORI
	OpORM
	OpROTCL
	OpROTCR
	OpROTL
	OpROTR
	OpRTE
	OpRTS
	OpSETT
	OpSHAL
	OpSHAR
	OpSHLL
	OpSHLL2
	OpSHLL8
	OpSHLL16
	OpSHLR
	OpSHLR2
	OpSHLR8
	OpSHLR16
	OpSLEEP
	OpSTCSR
	OpSTCGBR
	OpSTCVBR
	OpSTCMSR
	OpSTCMGBR
	OpSTCMVBR
	OpSTSMACH
	OpSTSMACL
	OpSTSPR
	OpSTSMMACH
	OpSTSMMACL
	OpSTSMPR
	OpSUB
	OpSUBC
	OpSUBV
	OpSWAPB
	OpSWAPW
	OpTAS
	OpTRAPA
	OpTST
	OpTSTI
	OpTSTM
	OpXOR
	OpXORI
	OpXORM
	OpXTRCT

	opCount
)

// Inst is a decoded instruction word. N and M are the register fields at
// bits 8-11 and 4-7; Imm holds the raw immediate or displacement, 4, 8 or
// 12 bits wide depending on the format.
type Inst struct {
	Op  Op
	N   uint8
	M   uint8
	Imm uint16
}

func fieldN(op uint16) uint8    { return uint8(op>>8) & 15 }
func fieldM(op uint16) uint8    { return uint8(op>>4) & 15 }
func fieldD4(op uint16) uint16  { return op & 0x0f }
func fieldI8(op uint16) uint16  { return op & 0xff }
func fieldD12(op uint16) uint16 { return op & 0xfff }

// simm8 and simm12 sign-extend the displacement fields.
func (i Inst) simm8() int32  { return int32(int8(i.Imm)) }
func (i Inst) simm12() int32 { return int32(uint32(i.Imm)<<20) >> 20 }

var decodeTable [1 << 16]Inst

func init() {
	for i := range decodeTable {
		decodeTable[i] = Decode(uint16(i))
	}
}

// Decode classifies an instruction word. It is pure; the interpreter uses a
// precomputed table of its results.
func Decode(op uint16) Inst {
	in := Inst{N: fieldN(op), M: fieldM(op)}
	switch op >> 12 {
	case 0:
		in.Op = decode0000(op)
	case 1:
		in.Op, in.Imm = OpMOVLS4, fieldD4(op)
	case 2:
		in.Op = group0010[op&15]
	case 3:
		in.Op = group0011[op&15]
	case 4:
		in.Op = decode0100(op)
	case 5:
		in.Op, in.Imm = OpMOVLL4, fieldD4(op)
	case 6:
		in.Op = group0110[op&15]
	case 7:
		in.Op, in.Imm = OpADDI, fieldI8(op)
	case 8:
		in.Op = group1000[(op>>8)&15]
		switch in.Op {
		case OpMOVBS4, OpMOVWS4, OpMOVBL4, OpMOVWL4:
			in.Imm = fieldD4(op)
		default:
			in.Imm = fieldI8(op)
		}
	case 9:
		in.Op, in.Imm = OpMOVWI, fieldI8(op)
	case 10:
		in.Op, in.Imm = OpBRA, fieldD12(op)
	case 11:
		in.Op, in.Imm = OpBSR, fieldD12(op)
	case 12:
		in.Op, in.Imm = group1100[(op>>8)&15], fieldI8(op)
	case 13:
		in.Op, in.Imm = OpMOVLI, fieldI8(op)
	case 14:
		in.Op, in.Imm = OpMOVI, fieldI8(op)
	case 15:
		in.Op = OpIllegal
	}
	return in
}

func decode0000(op uint16) Op {
	switch op & 15 {
	case 4:
		return OpMOVBS0
	case 5:
		return OpMOVWS0
	case 6:
		return OpMOVLS0
	case 7:
		return OpMULL
	case 12:
		return OpMOVBL0
	case 13:
		return OpMOVWL0
	case 14:
		return OpMOVLL0
	case 15:
		return OpMACL
	}
	switch op & 0x3f {
	case 0x02:
		return OpSTCSR
	case 0x12:
		return OpSTCGBR
	case 0x22:
		return OpSTCVBR
	case 0x03:
		return OpBSRF
	case 0x23:
		return OpBRAF
	case 0x08:
		return OpCLRT
	case 0x18:
		return OpSETT
	case 0x28:
		return OpCLRMAC
	case 0x09:
		if op == 0x0009 {
			return OpNOP
		}
		return OpIllegal
	case 0x19:
		return OpDIV0U
	case 0x29:
		return OpMOVT
	case 0x0a:
		return OpSTSMACH
	case 0x1a:
		return OpSTSMACL
	case 0x2a:
		return OpSTSPR
	case 0x0b:
		return OpRTS
	case 0x1b:
		return OpSLEEP
	case 0x2b:
		return OpRTE
	}
	return OpIllegal
}

var group0010 = [16]Op{
	OpMOVBS, OpMOVWS, OpMOVLS, OpIllegal,
	OpMOVBM, OpMOVWM, OpMOVLM, OpDIV0S,
	OpTST, OpAND, OpXOR, OpOR,
	OpCMPSTR, OpXTRCT, OpMULU, OpMULS,
}

var group0011 = [16]Op{
	OpCMPEQ, OpIllegal, OpCMPHS, OpCMPGE,
	OpDIV1, OpDMULU, OpCMPHI, OpCMPGT,
	OpSUB, OpIllegal, OpSUBC, OpSUBV,
	OpADD, OpDMULS, OpADDC, OpADDV,
}

func decode0100(op uint16) Op {
	if op&15 == 15 {
		return OpMACW
	}
	switch op & 0x3f {
	case 0x00:
		return OpSHLL
	case 0x01:
		return OpSHLR
	case 0x02:
		return OpSTSMMACH
	case 0x03:
		return OpSTCMSR
	case 0x04:
		return OpROTL
	case 0x05:
		return OpROTR
	case 0x06:
		return OpLDSMMACH
	case 0x07:
		return OpLDCMSR
	case 0x08:
		return OpSHLL2
	case 0x09:
		return OpSHLR2
	case 0x0a:
		return OpLDSMACH
	case 0x0b:
		return OpJSR
	case 0x0e:
		return OpLDCSR

	case 0x10:
		return OpDT
	case 0x11:
		return OpCMPPZ
	case 0x12:
		return OpSTSMMACL
	case 0x13:
		return OpSTCMGBR
	case 0x15:
		return OpCMPPL
	case 0x16:
		return OpLDSMMACL
	case 0x17:
		return OpLDCMGBR
	case 0x18:
		return OpSHLL8
	case 0x19:
		return OpSHLR8
	case 0x1a:
		return OpLDSMACL
	case 0x1b:
		return OpTAS
	case 0x1e:
		return OpLDCGBR

	case 0x20:
		return OpSHAL
	case 0x21:
		return OpSHAR
	case 0x22:
		return OpSTSMPR
	case 0x23:
		return OpSTCMVBR
	case 0x24:
		return OpROTCL
	case 0x25:
		return OpROTCR
	case 0x26:
		return OpLDSMPR
	case 0x27:
		return OpLDCMVBR
	case 0x28:
		return OpSHLL16
	case 0x29:
		return OpSHLR16
	case 0x2a:
		return OpLDSPR
	case 0x2b:
		return OpJMP
	case 0x2e:
		return OpLDCVBR
	}
	return OpIllegal
}

var group0110 = [16]Op{
	OpMOVBL, OpMOVWL, OpMOVLL, OpMOV,
	OpMOVBP, OpMOVWP, OpMOVLP, OpNOT,
	OpSWAPB, OpSWAPW, OpNEGC, OpNEG,
	OpEXTUB, OpEXTUW, OpEXTSB, OpEXTSW,
}

var group1000 = [16]Op{
	OpMOVBS4, OpMOVWS4, OpIllegal, OpIllegal,
	OpMOVBL4, OpMOVWL4, OpIllegal, OpIllegal,
	OpCMPIM, OpBT, OpIllegal, OpBF,
	OpIllegal, OpBTS, OpIllegal, OpBFS,
}

var group1100 = [16]Op{
	OpMOVBSG, OpMOVWSG, OpMOVLSG, OpTRAPA,
	OpMOVBLG, OpMOVWLG, OpMOVLLG, OpMOVA,
	OpTSTI, OpANDI, OpXORI, OpORI,
	OpTSTM, OpANDM, OpXORM, OpORM,
}

// delayed reports whether the instruction has a delay slot.
func (o Op) delayed() bool {
	switch o {
	case OpBRA, OpBRAF, OpBSR, OpBSRF, OpBTS, OpBFS, OpJMP, OpJSR, OpRTS, OpRTE:
		return true
	}
	return false
}
