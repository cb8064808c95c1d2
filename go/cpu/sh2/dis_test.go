package sh2

import (
	"encoding/hex"
	"testing"
)

func TestDecodeGroups(t *testing.T) {
	cases := []struct {
		op   uint16
		want Op
	}{
		{0x0009, OpNOP},
		{0x0019, OpDIV0U},
		{0x0109, OpIllegal},
		{0x012f, OpMACL},
		{0x0123, OpBRAF},
		{0x1234, OpMOVLS4},
		{0x2003, OpIllegal},
		{0x300c, OpADD},
		{0x4f2b, OpJMP},
		{0x432f, OpMACW},
		{0x403c, OpIllegal},
		{0x6123, OpMOV},
		{0x8a00, OpIllegal},
		{0x8d10, OpBTS},
		{0xc3ff, OpTRAPA},
		{0xf000, OpIllegal},
	}
	for _, v := range cases {
		if got := Decode(v.op).Op; got != v.want {
			t.Errorf("%04x: %v, want %v", v.op, got, v.want)
		}
	}
}

func TestDecodeFields(t *testing.T) {
	in := Decode(0x5abc) // mov.l @(48,r11),r10
	if in.N != 10 || in.M != 11 || in.Imm != 0xc {
		t.Fatalf("fields %+v", in)
	}
	if d := Decode(0xafff).simm12(); d != -1 {
		t.Fatalf("bra disp %d", d)
	}
	if d := Decode(0x8bfd).simm8(); d != -3 {
		t.Fatalf("bf disp %d", d)
	}
}

func TestFormat(t *testing.T) {
	cases := []struct {
		addr uint32
		op   uint16
		want string
	}{
		{0x1000, 0x0009, "nop"},
		{0x1000, 0x312c, "add r2,r1"},
		{0x1000, 0x71ff, "add #-1,r1"},
		{0x1000, 0xa006, "bra 0x00001010"},
		{0x1004, 0x8bfc, "bf 0x00001000"},
		{0x1002, 0xd001, "mov.l @(0x00001008,pc),r0"},
		{0x1000, 0x9001, "mov.w @(0x00001006,pc),r0"},
		{0x1000, 0x5123, "mov.l @(12,r2),r1"},
		{0x1000, 0x80f1, "mov.b r0,@(1,r15)"},
		{0x1000, 0xc520, "mov.w @(64,gbr),r0"},
		{0x1000, 0x4f22, "sts.l pr,@-r15"},
		{0x1000, 0xffff, ".word 0xffff"},
	}
	for _, v := range cases {
		name, args := Format(v.addr, v.op)
		got := name
		if args != "" {
			got += " " + args
		}
		if got != v.want {
			t.Errorf("%04x: %q, want %q", v.op, got, v.want)
		}
	}
}

func TestDis(t *testing.T) {
	code, err := hex.DecodeString("e00170014110" + "8bfc" + "000b0009")
	if err != nil {
		t.Fatal(err)
	}
	out, err := (&Dis{}).Dis(code, 0x6000000)
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"mov", "add", "dt", "bf", "rts", "nop"}
	if len(out) != len(want) {
		t.Fatalf("got %d instructions", len(out))
	}
	for i, ins := range out {
		t.Log(ins)
		if ins.Mnemonic() != want[i] || ins.Addr() != 0x6000000+uint64(i*2) {
			t.Errorf("%d: %s at %#x", i, ins.Mnemonic(), ins.Addr())
		}
	}
	if _, err := (&Dis{}).Dis(code[:3], 0); err == nil {
		t.Fatal("odd length accepted")
	}
	if !Delayed(0x000b) || Delayed(0x8bfc) {
		t.Fatal("delay slot classification")
	}
}
