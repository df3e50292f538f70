package service

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rafaeljonasferreira-web/presence-dashboard/internal/domain"
)

// DefaultRankingLimit caps the room ranking sent with each snapshot.
const DefaultRankingLimit = 5

// Ledger is the single source of truth for presence state: which connections
// are open and which room, if any, each one occupies. It is mutated by the
// connection lifecycle handler and read by the snapshot broadcaster.
//
// Tie-break for rankings is first-occupied-first: every room gets a sequence
// number when it first gains an occupant, dropped again when it empties.
type Ledger struct {
	mu        sync.RWMutex
	conns     map[string]struct{} // registered connection ids
	connRoom  map[string]string   // connection id -> current room
	occupancy map[string]int      // room -> occupant count, entries always > 0
	roomSeq   map[string]uint64   // room -> first-occupied order
	nextSeq   uint64
}

func NewLedger() *Ledger {
	return &Ledger{
		conns:     make(map[string]struct{}),
		connRoom:  make(map[string]string),
		occupancy: make(map[string]int),
		roomSeq:   make(map[string]uint64),
	}
}

// Register records a newly opened connection.
func (l *Ledger) Register(id string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.conns[id] = struct{}{}
}

// Unregister removes a connection, leaving its room first if it occupies one.
// The vacated room's updated stat is returned for notification purposes.
// Unregistering an unknown id is a caller error; counters stay untouched.
func (l *Ledger) Unregister(id string) (domain.RoomStat, bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.conns[id]; !ok {
		return domain.RoomStat{}, false, fmt.Errorf("unregister %q: %w", id, domain.ErrUnknownConnection)
	}

	vacated, hadRoom := l.leaveLocked(id)
	delete(l.conns, id)

	return vacated, hadRoom, nil
}

// Join puts the connection into room, implicitly leaving its current room
// first. Room names are kept verbatim; an empty or whitespace-only name is
// rejected with no state change. Returns the room's new occupancy.
func (l *Ledger) Join(id, room string) (domain.RoomStat, error) {
	if strings.TrimSpace(room) == "" {
		return domain.RoomStat{}, domain.ErrEmptyRoomName
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.conns[id]; !ok {
		return domain.RoomStat{}, fmt.Errorf("join %q: %w", id, domain.ErrUnknownConnection)
	}

	l.leaveLocked(id)

	if _, seen := l.occupancy[room]; !seen {
		l.roomSeq[room] = l.nextSeq
		l.nextSeq++
	}
	l.occupancy[room]++
	l.connRoom[id] = room

	return domain.RoomStat{Name: room, Count: l.occupancy[room]}, nil
}

// Leave removes the connection from its current room. Reports false when the
// connection occupies no room. The returned stat carries the room's remaining
// occupancy, possibly zero.
func (l *Ledger) Leave(id string) (domain.RoomStat, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.leaveLocked(id)
}

// leaveLocked consolidates the decrement-and-maybe-delete path shared by
// Leave, Join and Unregister. Caller holds the write lock.
func (l *Ledger) leaveLocked(id string) (domain.RoomStat, bool) {
	room, ok := l.connRoom[id]
	if !ok {
		return domain.RoomStat{}, false
	}

	delete(l.connRoom, id)

	l.occupancy[room]--
	remaining := l.occupancy[room]
	if remaining <= 0 {
		delete(l.occupancy, room)
		delete(l.roomSeq, room)
	}

	return domain.RoomStat{Name: room, Count: remaining}, true
}

// Room reports the room the connection currently occupies.
func (l *Ledger) Room(id string) (string, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	room, ok := l.connRoom[id]
	return room, ok
}

func (l *Ledger) TotalConnections() int {
	l.mu.RLock()
	defer l.mu.RUnlock()

	return len(l.conns)
}

// MostPopularRoom returns the room with the strictly highest occupancy, or
// the {None, 0} sentinel when no room is occupied.
func (l *Ledger) MostPopularRoom() domain.RoomStat {
	l.mu.RLock()
	defer l.mu.RUnlock()

	return l.mostPopularLocked()
}

// TopRooms returns up to limit rooms ordered by occupancy descending.
// A non-positive limit falls back to DefaultRankingLimit.
func (l *Ledger) TopRooms(limit int) []domain.RoomStat {
	l.mu.RLock()
	defer l.mu.RUnlock()

	return l.topRoomsLocked(limit)
}

// Snapshot assembles the dashboard aggregate in one consistent read.
func (l *Ledger) Snapshot(limit int) domain.Snapshot {
	l.mu.RLock()
	defer l.mu.RUnlock()

	return domain.Snapshot{
		TotalUsers:      len(l.conns),
		MostPopularRoom: l.mostPopularLocked(),
		RoomRankings:    l.topRoomsLocked(limit),
		Timestamp:       time.Now().UTC().Format(time.RFC3339),
	}
}

func (l *Ledger) mostPopularLocked() domain.RoomStat {
	top := domain.RoomStat{Name: "None", Count: 0}
	var topSeq uint64

	for room, count := range l.occupancy {
		seq := l.roomSeq[room]
		switch {
		case count > top.Count:
			top = domain.RoomStat{Name: room, Count: count}
			topSeq = seq
		case count == top.Count && top.Count > 0 && seq < topSeq:
			top = domain.RoomStat{Name: room, Count: count}
			topSeq = seq
		}
	}

	return top
}

func (l *Ledger) topRoomsLocked(limit int) []domain.RoomStat {
	if limit <= 0 {
		limit = DefaultRankingLimit
	}

	stats := make([]domain.RoomStat, 0, len(l.occupancy))
	for room, count := range l.occupancy {
		stats = append(stats, domain.RoomStat{Name: room, Count: count})
	}

	sort.Slice(stats, func(i, j int) bool {
		if stats[i].Count != stats[j].Count {
			return stats[i].Count > stats[j].Count
		}
		return l.roomSeq[stats[i].Name] < l.roomSeq[stats[j].Name]
	})

	if len(stats) > limit {
		stats = stats[:limit]
	}

	return stats
}
