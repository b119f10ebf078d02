package prize

import (
	"math/rand"
	"sync"

	"github.com/rs/zerolog/log"
)

// PoolMultiplier is the number of prize items created per participant.
const PoolMultiplier = 100

// Item is a single prize. Items are indistinguishable once shuffled; an item
// popped from the pool is never returned to it.
type Item struct {
	Points int
	Label  string
}

// tiers apportions the pool by fixed ratios. Counts truncate per tier, so the
// built pool may hold slightly fewer than participants*PoolMultiplier items.
var tiers = []struct {
	Ratio  float64
	Points int
	Label  string
}{
	{0.10, 100, "(100 pts)"},
	{0.20, 50, "(50 pts)"},
	{0.40, 10, "(10 pts)"},
	{0.30, 0, "thanks for playing (0 pts)"},
}

// Pool is a finite, shuffled multiset of prize items. DrawOne is atomic with
// respect to concurrent callers: no item is ever handed out twice.
type Pool struct {
	mu    sync.Mutex
	items []Item
}

func NewPool() *Pool {
	return &Pool{}
}

// Initialize builds the tiered multiset for the given participant count,
// shuffles it uniformly, and replaces any prior pool contents.
func (p *Pool) Initialize(participants int) {
	total := participants * PoolMultiplier

	items := make([]Item, 0, total)
	for _, tier := range tiers {
		count := int(float64(total) * tier.Ratio)
		for i := 0; i < count; i++ {
			items = append(items, Item{Points: tier.Points, Label: tier.Label})
		}
	}
	rand.Shuffle(len(items), func(i, j int) {
		items[i], items[j] = items[j], items[i]
	})

	p.mu.Lock()
	p.items = items
	p.mu.Unlock()

	log.Info().Int("items", len(items)).Int("participants", participants).Msg("prize pool built")
}

// DrawOne pops the last item from the pool. The second return is false when
// the pool is exhausted.
func (p *Pool) DrawOne() (Item, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(p.items) == 0 {
		return Item{}, false
	}
	item := p.items[len(p.items)-1]
	p.items = p.items[:len(p.items)-1]
	return item, true
}

// Remaining reports how many items are left.
func (p *Pool) Remaining() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.items)
}
