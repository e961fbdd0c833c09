package bayesee

import "sort"

// idPool tracks which ids in [0, size) are in use.
// Taken ids are kept sorted so enumeration order is reproducible for a seed.
type idPool struct {
	taken []bool
	order []int
}

func newIDPool(size int) *idPool {
	return &idPool{taken: make([]bool, size), order: make([]int, 0, size)}
}

func (p *idPool) size() int { return len(p.taken) }

func (p *idPool) len() int { return len(p.order) }

func (p *idPool) isTaken(id int) bool { return p.taken[id] }

func (p *idPool) take(id int) {
	if p.taken[id] {
		panic(invariantf(id, "id %d is already taken", id))
	}
	p.taken[id] = true
	i := sort.SearchInts(p.order, id)
	p.order = append(p.order, 0)
	copy(p.order[i+1:], p.order[i:])
	p.order[i] = id
}

func (p *idPool) release(id int) {
	if !p.taken[id] {
		panic(invariantf(id, "id %d is not taken", id))
	}
	p.taken[id] = false
	i := sort.SearchInts(p.order, id)
	p.order = append(p.order[:i], p.order[i+1:]...)
}

// firstAvailable returns the lowest free id.
func (p *idPool) firstAvailable() (int, bool) {
	if len(p.order) == len(p.taken) {
		return -1, false
	}
	for id, used := range p.taken {
		if !used {
			return id, true
		}
	}
	return -1, false
}

// takenIDs appends the taken ids in ascending order to dst.
func (p *idPool) takenIDs(dst []int) []int {
	return append(dst[:0], p.order...)
}
