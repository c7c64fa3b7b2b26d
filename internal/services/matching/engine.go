package matching

import "math/rand"

// Candidate is one eligible participant entering a match run.
type Candidate struct {
	ID       int64
	Priority bool
}

type Pair struct {
	A int64
	B int64
}

// Constraints carries the two hard constraints of a run: block-list edges
// and recent partnerships. Both maps are symmetric.
type Constraints struct {
	blocked map[int64]map[int64]struct{}
	recent  map[int64]map[int64]struct{}
}

func NewConstraints() *Constraints {
	return &Constraints{
		blocked: make(map[int64]map[int64]struct{}),
		recent:  make(map[int64]map[int64]struct{}),
	}
}

func (c *Constraints) AddBlock(a, b int64) {
	addEdge(c.blocked, a, b)
	addEdge(c.blocked, b, a)
}

func (c *Constraints) AddRecentPartner(a, b int64) {
	addEdge(c.recent, a, b)
	addEdge(c.recent, b, a)
}

// Allows reports whether a and b may be paired today.
func (c *Constraints) Allows(a, b int64) bool {
	if a == b {
		return false
	}
	if _, ok := c.blocked[a][b]; ok {
		return false
	}
	if _, ok := c.recent[a][b]; ok {
		return false
	}
	return true
}

func addEdge(m map[int64]map[int64]struct{}, from, to int64) {
	set, ok := m[from]
	if !ok {
		set = make(map[int64]struct{})
		m[from] = set
	}
	set[to] = struct{}{}
}

// Result covers every candidate exactly once: each is either in a pair or
// on the waitlist.
type Result struct {
	Pairs    []Pair
	Waitlist []int64
}

// MatchPool pairs the eligible pool greedily in three passes: priority
// candidates with each other first, leftover priority candidates against the
// regular pool, then regulars with each other. Each group is shuffled before
// scanning so repeated runs don't favor positional order; a fixed rng seed
// makes the whole run reproducible. Greedy forward scanning is O(n^2) worst
// case and does not guarantee maximum cardinality, which is an accepted
// trade for determinism.
func MatchPool(candidates []Candidate, cons *Constraints, rng *rand.Rand) Result {
	if cons == nil {
		cons = NewConstraints()
	}

	priority := make([]int64, 0, len(candidates))
	regular := make([]int64, 0, len(candidates))
	for _, c := range candidates {
		if c.Priority {
			priority = append(priority, c.ID)
		} else {
			regular = append(regular, c.ID)
		}
	}

	if rng != nil {
		rng.Shuffle(len(priority), func(i, j int) { priority[i], priority[j] = priority[j], priority[i] })
		rng.Shuffle(len(regular), func(i, j int) { regular[i], regular[j] = regular[j], regular[i] })
	}

	matched := make(map[int64]struct{}, len(candidates))
	pairs := make([]Pair, 0, len(candidates)/2)

	pairWithin := func(pool []int64) {
		for i, a := range pool {
			if _, done := matched[a]; done {
				continue
			}
			for _, b := range pool[i+1:] {
				if _, done := matched[b]; done {
					continue
				}
				if !cons.Allows(a, b) {
					continue
				}
				matched[a] = struct{}{}
				matched[b] = struct{}{}
				pairs = append(pairs, Pair{A: a, B: b})
				break
			}
		}
	}

	pairAcross := func(left, right []int64) {
		for _, a := range left {
			if _, done := matched[a]; done {
				continue
			}
			for _, b := range right {
				if _, done := matched[b]; done {
					continue
				}
				if !cons.Allows(a, b) {
					continue
				}
				matched[a] = struct{}{}
				matched[b] = struct{}{}
				pairs = append(pairs, Pair{A: a, B: b})
				break
			}
		}
	}

	pairWithin(priority)
	pairAcross(priority, regular)
	pairWithin(regular)

	waitlist := make([]int64, 0)
	for _, pool := range [][]int64{priority, regular} {
		for _, id := range pool {
			if _, done := matched[id]; !done {
				waitlist = append(waitlist, id)
			}
		}
	}

	return Result{Pairs: pairs, Waitlist: waitlist}
}
