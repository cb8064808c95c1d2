package sh2

import (
	"encoding/binary"
	"fmt"
	"strings"

	"github.com/pkg/errors"

	"github.com/jnnycn007/fbalpha2012-cps3/go/models"
)

type ins struct {
	addr  uint64
	name  string
	args  string
	bytes []byte
}

func (i *ins) String() string {
	if i.args == "" {
		return i.name
	}
	return i.name + " " + i.args
}

func (i *ins) Addr() uint64     { return i.addr }
func (i *ins) Bytes() []byte    { return i.bytes }
func (i *ins) Mnemonic() string { return i.name }
func (i *ins) OpStr() string    { return i.args }

// Argument templates expand these verbs:
//
//	%n %m  registers from the N and M fields
//	%s     signed 8-bit immediate
//	%u     unsigned 8-bit immediate
//	%1 %2 %4  4-bit displacement scaled by 1, 2 or 4
//	%G %H %L  8-bit displacement scaled by 1, 2 or 4
//	%b %B  8- and 12-bit branch targets
//	%w %l  PC-relative word and long addresses
type form struct {
	name string
	args string
}

var forms = [opCount]form{
	OpIllegal: {".word", ""},
	OpNOP:     {"nop", ""},

	OpADD:    {"add", "%m,%n"},
	OpADDI:   {"add", "%s,%n"},
	OpADDC:   {"addc", "%m,%n"},
	OpADDV:   {"addv", "%m,%n"},
	OpAND:    {"and", "%m,%n"},
	OpANDI:   {"and", "%u,r0"},
	OpANDM:   {"and.b", "%u,@(r0,gbr)"},
	OpBF:     {"bf", "%b"},
	OpBFS:    {"bf/s", "%b"},
	OpBRA:    {"bra", "%B"},
	OpBRAF:   {"braf", "%n"},
	OpBSR:    {"bsr", "%B"},
	OpBSRF:   {"bsrf", "%n"},
	OpBT:     {"bt", "%b"},
	OpBTS:    {"bt/s", "%b"},
	OpCLRMAC: {"clrmac", ""},
	OpCLRT:   {"clrt", ""},
	OpCMPEQ:  {"cmp/eq", "%m,%n"},
	OpCMPGE:  {"cmp/ge", "%m,%n"},
	OpCMPGT:  {"cmp/gt", "%m,%n"},
	OpCMPHI:  {"cmp/hi", "%m,%n"},
	OpCMPHS:  {"cmp/hs", "%m,%n"},
	OpCMPPL:  {"cmp/pl", "%n"},
	OpCMPPZ:  {"cmp/pz", "%n"},
	OpCMPSTR: {"cmp/str", "%m,%n"},
	OpCMPIM:  {"cmp/eq", "%s,r0"},
	OpDIV0S:  {"div0s", "%m,%n"},
	OpDIV0U:  {"div0u", ""},
	OpDIV1:   {"div1", "%m,%n"},
	OpDMULS:  {"dmuls.l", "%m,%n"},
	OpDMULU:  {"dmulu.l", "%m,%n"},
	OpDT:     {"dt", "%n"},
	OpEXTSB:  {"exts.b", "%m,%n"},
	OpEXTSW:  {"exts.w", "%m,%n"},
	OpEXTUB:  {"extu.b", "%m,%n"},
	OpEXTUW:  {"extu.w", "%m,%n"},
	OpJMP:    {"jmp", "@%n"},
	OpJSR:    {"jsr", "@%n"},

	OpLDCSR:    {"ldc", "%n,sr"},
	OpLDCGBR:   {"ldc", "%n,gbr"},
	OpLDCVBR:   {"ldc", "%n,vbr"},
	OpLDCMSR:   {"ldc.l", "@%n+,sr"},
	OpLDCMGBR:  {"ldc.l", "@%n+,gbr"},
	OpLDCMVBR:  {"ldc.l", "@%n+,vbr"},
	OpLDSMACH:  {"lds", "%n,mach"},
	OpLDSMACL:  {"lds", "%n,macl"},
	OpLDSPR:    {"lds", "%n,pr"},
	OpLDSMMACH: {"lds.l", "@%n+,mach"},
	OpLDSMMACL: {"lds.l", "@%n+,macl"},
	OpLDSMPR:   {"lds.l", "@%n+,pr"},

	OpMACL: {"mac.l", "@%m+,@%n+"},
	OpMACW: {"mac.w", "@%m+,@%n+"},

	OpMOV:    {"mov", "%m,%n"},
	OpMOVBS:  {"mov.b", "%m,@%n"},
	OpMOVWS:  {"mov.w", "%m,@%n"},
	OpMOVLS:  {"mov.l", "%m,@%n"},
	OpMOVBL:  {"mov.b", "@%m,%n"},
	OpMOVWL:  {"mov.w", "@%m,%n"},
	OpMOVLL:  {"mov.l", "@%m,%n"},
	OpMOVBM:  {"mov.b", "%m,@-%n"},
	OpMOVWM:  {"mov.w", "%m,@-%n"},
	OpMOVLM:  {"mov.l", "%m,@-%n"},
	OpMOVBP:  {"mov.b", "@%m+,%n"},
	OpMOVWP:  {"mov.w", "@%m+,%n"},
	OpMOVLP:  {"mov.l", "@%m+,%n"},
	OpMOVBS0: {"mov.b", "%m,@(r0,%n)"},
	OpMOVWS0: {"mov.w", "%m,@(r0,%n)"},
	OpMOVLS0: {"mov.l", "%m,@(r0,%n)"},
	OpMOVBL0: {"mov.b", "@(r0,%m),%n"},
	OpMOVWL0: {"mov.w", "@(r0,%m),%n"},
	OpMOVLL0: {"mov.l", "@(r0,%m),%n"},
	OpMOVI:   {"mov", "%s,%n"},
	OpMOVWI:  {"mov.w", "@(%w,pc),%n"},
	OpMOVLI:  {"mov.l", "@(%l,pc),%n"},
	OpMOVBLG: {"mov.b", "@(%G,gbr),r0"},
	OpMOVWLG: {"mov.w", "@(%H,gbr),r0"},
	OpMOVLLG: {"mov.l", "@(%L,gbr),r0"},
	OpMOVBSG: {"mov.b", "r0,@(%G,gbr)"},
	OpMOVWSG: {"mov.w", "r0,@(%H,gbr)"},
	OpMOVLSG: {"mov.l", "r0,@(%L,gbr)"},
	OpMOVBS4: {"mov.b", "r0,@(%1,%m)"},
	OpMOVWS4: {"mov.w", "r0,@(%2,%m)"},
	OpMOVLS4: {"mov.l", "%m,@(%4,%n)"},
	OpMOVBL4: {"mov.b", "@(%1,%m),r0"},
	OpMOVWL4: {"mov.w", "@(%2,%m),r0"},
	OpMOVLL4: {"mov.l", "@(%4,%m),%n"},
	OpMOVA:   {"mova", "@(%l,pc),r0"},
	OpMOVT:   {"movt", "%n"},

	OpMULL:  {"mul.l", "%m,%n"},
	OpMULS:  {"muls.w", "%m,%n"},
	OpMULU:  {"mulu.w", "%m,%n"},
	OpNEG:   {"neg", "%m,%n"},
	OpNEGC:  {"negc", "%m,%n"},
	OpNOT:   {"not", "%m,%n"},
	OpOR:    {"or", "%m,%n"},
	OpORI:   {"or", "%u,r0"},
	OpORM:   {"or.b", "%u,@(r0,gbr)"},
	OpROTCL: {"rotcl", "%n"},
	OpROTCR: {"rotcr", "%n"},
	OpROTL:  {"rotl", "%n"},
	OpROTR:  {"rotr", "%n"},
	OpRTE:   {"rte", ""},
	OpRTS:   {"rts", ""},
	OpSETT:  {"sett", ""},

	OpSHAL:   {"shal", "%n"},
	OpSHAR:   {"shar", "%n"},
	OpSHLL:   {"shll", "%n"},
	OpSHLL2:  {"shll2", "%n"},
	OpSHLL8:  {"shll8", "%n"},
	OpSHLL16: {"shll16", "%n"},
	OpSHLR:   {"shlr", "%n"},
	OpSHLR2:  {"shlr2", "%n"},
	OpSHLR8:  {"shlr8", "%n"},
	OpSHLR16: {"shlr16", "%n"},
	OpSLEEP:  {"sleep", ""},

	OpSTCSR:    {"stc", "sr,%n"},
	OpSTCGBR:   {"stc", "gbr,%n"},
	OpSTCVBR:   {"stc", "vbr,%n"},
	OpSTCMSR:   {"stc.l", "sr,@-%n"},
	OpSTCMGBR:  {"stc.l", "gbr,@-%n"},
	OpSTCMVBR:  {"stc.l", "vbr,@-%n"},
	OpSTSMACH:  {"sts", "mach,%n"},
	OpSTSMACL:  {"sts", "macl,%n"},
	OpSTSPR:    {"sts", "pr,%n"},
	OpSTSMMACH: {"sts.l", "mach,@-%n"},
	OpSTSMMACL: {"sts.l", "macl,@-%n"},
	OpSTSMPR:   {"sts.l", "pr,@-%n"},

	OpSUB:   {"sub", "%m,%n"},
	OpSUBC:  {"subc", "%m,%n"},
	OpSUBV:  {"subv", "%m,%n"},
	OpSWAPB: {"swap.b", "%m,%n"},
	OpSWAPW: {"swap.w", "%m,%n"},
	OpTAS:   {"tas.b", "@%n"},
	OpTRAPA: {"trapa", "%u"},
	OpTST:   {"tst", "%m,%n"},
	OpTSTI:  {"tst", "%u,r0"},
	OpTSTM:  {"tst.b", "%u,@(r0,gbr)"},
	OpXOR:   {"xor", "%m,%n"},
	OpXORI:  {"xor", "%u,r0"},
	OpXORM:  {"xor.b", "%u,@(r0,gbr)"},
	OpXTRCT: {"xtrct", "%m,%n"},
}

func (o Op) String() string {
	if o < opCount {
		return forms[o].name
	}
	return fmt.Sprintf("op(%d)", uint8(o))
}

// Format renders a decoded instruction located at addr.
func Format(addr uint32, op uint16) (name, args string) {
	in := Decode(op)
	f := forms[in.Op]
	if in.Op == OpIllegal {
		return f.name, fmt.Sprintf("0x%04x", op)
	}
	var b strings.Builder
	for i := 0; i < len(f.args); i++ {
		ch := f.args[i]
		if ch != '%' || i+1 == len(f.args) {
			b.WriteByte(ch)
			continue
		}
		i++
		switch f.args[i] {
		case 'n':
			fmt.Fprintf(&b, "r%d", in.N)
		case 'm':
			fmt.Fprintf(&b, "r%d", in.M)
		case 's':
			fmt.Fprintf(&b, "#%d", in.simm8())
		case 'u':
			fmt.Fprintf(&b, "#0x%02x", in.Imm)
		case '1', 'G':
			fmt.Fprintf(&b, "%d", in.Imm)
		case '2', 'H':
			fmt.Fprintf(&b, "%d", in.Imm*2)
		case '4', 'L':
			fmt.Fprintf(&b, "%d", in.Imm*4)
		case 'l':
			fmt.Fprintf(&b, "0x%08x", (addr+4)&^3+uint32(in.Imm)*4)
		case 'w':
			fmt.Fprintf(&b, "0x%08x", addr+4+uint32(in.Imm)*2)
		case 'b':
			fmt.Fprintf(&b, "0x%08x", addr+4+uint32(in.simm8()*2))
		case 'B':
			fmt.Fprintf(&b, "0x%08x", addr+4+uint32(in.simm12()*2))
		default:
			b.WriteByte('%')
			b.WriteByte(f.args[i])
		}
	}
	return f.name, b.String()
}

// Dis disassembles big-endian SH-2 code.
type Dis struct{}

func (d *Dis) Dis(mem []byte, addr uint64) ([]models.Ins, error) {
	var out []models.Ins
	for i := 0; i+2 <= len(mem); i += 2 {
		pc := uint32(addr) + uint32(i)
		op := binary.BigEndian.Uint16(mem[i:])
		name, args := Format(pc, op)
		out = append(out, &ins{
			addr:  uint64(pc),
			name:  name,
			args:  args,
			bytes: mem[i : i+2],
		})
	}
	if len(mem)%2 != 0 {
		return out, errors.Errorf("trailing byte at %#x", addr+uint64(len(mem)-1))
	}
	return out, nil
}

// Delayed reports whether op has a branch delay slot.
func Delayed(op uint16) bool {
	return Decode(op).Op.delayed()
}
