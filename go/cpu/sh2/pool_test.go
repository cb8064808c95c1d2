package sh2

import (
	"testing"

	"github.com/pkg/errors"
)

func TestPool(t *testing.T) {
	if _, err := NewPool(0); err == nil {
		t.Fatal("empty pool allowed")
	}
	p, err := NewPool(2)
	if err != nil {
		t.Fatal(err)
	}
	if p.Active() != -1 {
		t.Fatal("fresh pool has an open core")
	}
	a, err := p.Open(0)
	if err != nil {
		t.Fatal(err)
	}
	b, _ := p.Core(1)
	a.R[0] = 1
	if b.R[0] != 0 {
		t.Fatal("cores share registers")
	}
	if _, err := p.Open(2); errors.Cause(err) != ErrNoCore {
		t.Fatalf("open out of range: %v", err)
	}
	err = p.With(1, func(c *Core) error {
		if c != b || p.Active() != 1 {
			t.Fatal("With opened the wrong core")
		}
		return nil
	})
	if err != nil || p.Active() != 0 {
		t.Fatalf("With did not restore the open core: %v %d", err, p.Active())
	}
	p.Close()
	if p.Active() != -1 {
		t.Fatal("close left a core open")
	}
	p.Exit()
	if p.Len() != 0 {
		t.Fatal("exit kept cores")
	}
}
