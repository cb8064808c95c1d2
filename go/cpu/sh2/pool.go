package sh2

import (
	"github.com/pkg/errors"
)

var ErrNoCore = errors.New("sh2: no such core")

// Pool holds a fixed set of independent cores and tracks which one is open.
// Drivers that juggle several CPUs address them by index.
type Pool struct {
	cores  []*Core
	active int
}

// NewPool allocates count cores, each reset with open bus everywhere.
func NewPool(count int) (*Pool, error) {
	if count < 1 {
		return nil, errors.Errorf("sh2: pool needs at least one core, got %d", count)
	}
	p := &Pool{cores: make([]*Core, count), active: -1}
	for i := range p.cores {
		p.cores[i] = New()
	}
	return p, nil
}

// Exit releases every core. The pool is unusable afterwards.
func (p *Pool) Exit() {
	p.cores = nil
	p.active = -1
}

func (p *Pool) Len() int {
	return len(p.cores)
}

// Core returns core i without opening it.
func (p *Pool) Core(i int) (*Core, error) {
	if i < 0 || i >= len(p.cores) {
		return nil, errors.Wrapf(ErrNoCore, "index %d of %d", i, len(p.cores))
	}
	return p.cores[i], nil
}

// Open makes core i the active one.
func (p *Pool) Open(i int) (*Core, error) {
	c, err := p.Core(i)
	if err != nil {
		return nil, err
	}
	p.active = i
	return c, nil
}

func (p *Pool) Close() {
	p.active = -1
}

// Active returns the open core's index, or -1.
func (p *Pool) Active() int {
	return p.active
}

// With opens core i for the duration of fn and restores the previously open
// core afterwards.
func (p *Pool) With(i int, fn func(*Core) error) error {
	prev := p.active
	c, err := p.Open(i)
	if err != nil {
		return err
	}
	defer func() { p.active = prev }()
	return fn(c)
}
