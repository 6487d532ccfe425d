package draft

import (
	"sort"

	"tftstocks/internal/domain"
)

// SlotCount is the number of ranked positions.
const SlotCount = 8

var multipliers = [...]float64{1.3, 1.2, 1.1}

// Multiplier returns the score multiplier for a 1-based rank.
func Multiplier(rank int) float64 {
	if rank >= 1 && rank <= len(multipliers) {
		return multipliers[rank-1]
	}
	return 1
}

// Origin says where a dragged player comes from.
type Origin struct {
	slot   int
	inPool bool
}

// FromPool is the origin of a player dragged out of the unranked list.
func FromPool() Origin { return Origin{slot: -1, inPool: true} }

// FromSlot is the origin of a player dragged out of ranking slot i.
func FromSlot(i int) Origin { return Origin{slot: i} }

// IsPool reports whether the origin is the pool.
func (o Origin) IsPool() bool { return o.inPool }

// Slot returns the origin slot index, or -1 for the pool.
func (o Origin) Slot() int { return o.slot }

// Board holds the pool of unranked players and the fixed ranking slots.
// Every player id is either in the pool or in exactly one slot.
type Board struct {
	pool   []domain.Player
	slots  [SlotCount]*domain.Player
	locked bool
}

// NewBoard starts with every player in the pool and all slots empty.
func NewBoard(players []domain.Player) *Board {
	b := &Board{pool: make([]domain.Player, 0, len(players))}
	seen := make(map[int]struct{}, len(players))
	for _, p := range players {
		if _, dup := seen[p.ID]; dup {
			continue
		}
		seen[p.ID] = struct{}{}
		b.pool = append(b.pool, p)
	}
	return b
}

// MovePlayer relocates a player dropped on slot to. From the pool, an
// occupied destination sends its occupant back to the end of the pool.
// Between slots, the two occupants are swapped.
func (b *Board) MovePlayer(playerID int, from Origin, to int) error {
	if b.locked {
		return domain.ErrReadOnly
	}
	if !validSlot(to) {
		return domain.ErrSlotOutOfRange
	}

	if from.IsPool() {
		idx := b.poolIndex(playerID)
		if idx < 0 {
			return domain.ErrPlayerNotFound
		}
		player := b.pool[idx]
		b.pool = append(b.pool[:idx], b.pool[idx+1:]...)
		if occupant := b.slots[to]; occupant != nil {
			b.pool = append(b.pool, *occupant)
		}
		b.slots[to] = &player
		return nil
	}

	if !validSlot(from.slot) {
		return domain.ErrSlotOutOfRange
	}
	occupant := b.slots[from.slot]
	if occupant == nil || occupant.ID != playerID {
		return domain.ErrPlayerNotFound
	}
	b.slots[from.slot], b.slots[to] = b.slots[to], b.slots[from.slot]
	return nil
}

// ReturnToPool clears slot from and appends its occupant to the pool.
// An empty slot is left as is.
func (b *Board) ReturnToPool(from int) error {
	if b.locked {
		return domain.ErrReadOnly
	}
	if !validSlot(from) {
		return domain.ErrSlotOutOfRange
	}
	if occupant := b.slots[from]; occupant != nil {
		b.pool = append(b.pool, *occupant)
		b.slots[from] = nil
	}
	return nil
}

// Restore places a prior submission into the slots by rank and removes
// those players from the pool. Picks with a rank outside 1..SlotCount are
// ignored.
func (b *Board) Restore(picks []domain.SubmittedPick) {
	sorted := make([]domain.SubmittedPick, len(picks))
	copy(sorted, picks)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Rank < sorted[j].Rank })

	for _, pick := range sorted {
		slot := pick.Rank - 1
		if !validSlot(slot) {
			continue
		}
		if idx := b.poolIndex(pick.PlayerID); idx >= 0 {
			b.pool = append(b.pool[:idx], b.pool[idx+1:]...)
		} else if b.slotIndex(pick.PlayerID) >= 0 {
			continue
		}
		if occupant := b.slots[slot]; occupant != nil {
			b.pool = append(b.pool, *occupant)
		}
		player := pick.Player()
		b.slots[slot] = &player
	}
}

// Lock makes the board read-only.
func (b *Board) Lock() { b.locked = true }

// Locked reports whether the board rejects mutations.
func (b *Board) Locked() bool { return b.locked }

// Complete reports whether every slot is filled.
func (b *Board) Complete() bool {
	for _, s := range b.slots {
		if s == nil {
			return false
		}
	}
	return true
}

// Picks returns the ranking in slot order with ranks 1..SlotCount.
func (b *Board) Picks() ([]domain.Pick, error) {
	if !b.Complete() {
		return nil, domain.ErrIncompleteRanking
	}
	picks := make([]domain.Pick, 0, SlotCount)
	for i, s := range b.slots {
		picks = append(picks, domain.Pick{PlayerID: s.ID, TableName: s.TableName, Rank: i + 1})
	}
	return picks, nil
}

// Pool returns a copy of the unranked players in order.
func (b *Board) Pool() []domain.Player {
	out := make([]domain.Player, len(b.pool))
	copy(out, b.pool)
	return out
}

// Slot returns the occupant of slot i.
func (b *Board) Slot(i int) (domain.Player, bool) {
	if !validSlot(i) || b.slots[i] == nil {
		return domain.Player{}, false
	}
	return *b.slots[i], true
}

// Player finds a player anywhere on the board.
func (b *Board) Player(id int) (domain.Player, bool) {
	if idx := b.poolIndex(id); idx >= 0 {
		return b.pool[idx], true
	}
	if idx := b.slotIndex(id); idx >= 0 {
		return *b.slots[idx], true
	}
	return domain.Player{}, false
}

// Snapshot is a serializable view of the board.
type Snapshot struct {
	Pool   []domain.Player  `json:"pool"`
	Slots  []*domain.Player `json:"slots"`
	Locked bool             `json:"locked"`
}

// Snapshot copies the board state.
func (b *Board) Snapshot() Snapshot {
	slots := make([]*domain.Player, SlotCount)
	for i, s := range b.slots {
		if s != nil {
			p := *s
			slots[i] = &p
		}
	}
	return Snapshot{Pool: b.Pool(), Slots: slots, Locked: b.locked}
}

// SlotIDs lists the player id in each slot, 0 for empty.
func (b *Board) SlotIDs() []int {
	ids := make([]int, SlotCount)
	for i, s := range b.slots {
		if s != nil {
			ids[i] = s.ID
		}
	}
	return ids
}

// Arrange rebuilds a board over players from saved slot ids. Ids that are
// no longer in players are dropped and players not placed stay in the pool.
func Arrange(players []domain.Player, ids []int) *Board {
	b := NewBoard(players)
	for i, id := range ids {
		if id == 0 || !validSlot(i) {
			continue
		}
		idx := b.poolIndex(id)
		if idx < 0 {
			continue
		}
		player := b.pool[idx]
		b.pool = append(b.pool[:idx], b.pool[idx+1:]...)
		b.slots[i] = &player
	}
	return b
}

func (b *Board) poolIndex(id int) int {
	for i, p := range b.pool {
		if p.ID == id {
			return i
		}
	}
	return -1
}

func (b *Board) slotIndex(id int) int {
	for i, s := range b.slots {
		if s != nil && s.ID == id {
			return i
		}
	}
	return -1
}

func validSlot(i int) bool {
	return i >= 0 && i < SlotCount
}
