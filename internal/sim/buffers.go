package sim

import (
	"sync"

	"github.com/san-kum/gravsim/internal/physics"
)

// bodyPool recycles the body slices used for pre-step snapshots.
type bodyPool struct {
	pool sync.Pool
}

func (p *bodyPool) Get(n int) []physics.Body {
	if v, ok := p.pool.Get().(*[]physics.Body); ok && cap(*v) >= n {
		return (*v)[:n]
	}
	return make([]physics.Body, n)
}

func (p *bodyPool) Put(b []physics.Body) {
	b = b[:0]
	p.pool.Put(&b)
}

func (p *bodyPool) GetAndCopy(src []physics.Body) []physics.Body {
	dst := p.Get(len(src))
	copy(dst, src)
	return dst
}
