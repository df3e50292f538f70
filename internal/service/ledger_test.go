package service_test

import (
	"fmt"
	"sync"
	"testing"

	"github.com/rafaeljonasferreira-web/presence-dashboard/internal/domain"
	"github.com/rafaeljonasferreira-web/presence-dashboard/internal/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fill registers n fresh connections and joins them all to room. Returns the ids.
func fill(t *testing.T, l *service.Ledger, room string, n int) []string {
	t.Helper()

	ids := make([]string, 0, n)
	for i := 0; i < n; i++ {
		id := fmt.Sprintf("conn-%s-%d", room, i)
		l.Register(id)
		_, err := l.Join(id, room)
		require.NoError(t, err)
		ids = append(ids, id)
	}
	return ids
}

func TestLedger_RegisterUnregister(t *testing.T) {
	l := service.NewLedger()
	assert.Equal(t, 0, l.TotalConnections())

	l.Register("a")
	l.Register("b")
	assert.Equal(t, 2, l.TotalConnections())

	_, hadRoom, err := l.Unregister("a")
	require.NoError(t, err)
	assert.False(t, hadRoom)
	assert.Equal(t, 1, l.TotalConnections())
}

func TestLedger_UnregisterUnknown(t *testing.T) {
	l := service.NewLedger()
	l.Register("a")

	_, _, err := l.Unregister("ghost")
	require.ErrorIs(t, err, domain.ErrUnknownConnection)
	assert.Equal(t, 1, l.TotalConnections(), "counters must stay untouched")

	// unregistering twice is a caller error, not silently ignored
	_, _, err = l.Unregister("a")
	require.NoError(t, err)
	_, _, err = l.Unregister("a")
	require.ErrorIs(t, err, domain.ErrUnknownConnection)
	assert.Equal(t, 0, l.TotalConnections())
}

func TestLedger_Join(t *testing.T) {
	tests := []struct {
		name     string
		room     string
		register bool
		wantErr  error
		want     domain.RoomStat
	}{
		{
			name:     "normal join",
			room:     "lobby",
			register: true,
			want:     domain.RoomStat{Name: "lobby", Count: 1},
		},
		{
			name:     "empty room name rejected",
			room:     "",
			register: true,
			wantErr:  domain.ErrEmptyRoomName,
		},
		{
			name:     "whitespace-only room name rejected",
			room:     "   ",
			register: true,
			wantErr:  domain.ErrEmptyRoomName,
		},
		{
			name:     "unknown connection rejected",
			room:     "lobby",
			register: false,
			wantErr:  domain.ErrUnknownConnection,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := service.NewLedger()
			if tt.register {
				l.Register("c1")
			}

			stat, err := l.Join("c1", tt.room)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				assert.Empty(t, l.TopRooms(0), "rejected join must not mutate state")
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, stat)
		})
	}
}

func TestLedger_JoinReplacesNotAccumulates(t *testing.T) {
	l := service.NewLedger()
	fill(t, l, "alpha", 3)

	l.Register("mover")
	stat, err := l.Join("mover", "alpha")
	require.NoError(t, err)
	assert.Equal(t, 4, stat.Count)

	// moving to beta decrements alpha by exactly one
	stat, err = l.Join("mover", "beta")
	require.NoError(t, err)
	assert.Equal(t, domain.RoomStat{Name: "beta", Count: 1}, stat)

	rooms := l.TopRooms(0)
	require.Len(t, rooms, 2)
	assert.Equal(t, domain.RoomStat{Name: "alpha", Count: 3}, rooms[0])
	assert.Equal(t, domain.RoomStat{Name: "beta", Count: 1}, rooms[1])

	total := 0
	for _, r := range rooms {
		total += r.Count
	}
	assert.Equal(t, 4, total, "total occupancy across rooms unchanged by a move")
}

func TestLedger_RejoinSameRoomKeepsCount(t *testing.T) {
	l := service.NewLedger()
	ids := fill(t, l, "alpha", 2)

	stat, err := l.Join(ids[0], "alpha")
	require.NoError(t, err)
	assert.Equal(t, domain.RoomStat{Name: "alpha", Count: 2}, stat)
}

func TestLedger_Leave(t *testing.T) {
	l := service.NewLedger()
	ids := fill(t, l, "alpha", 2)

	stat, ok := l.Leave(ids[0])
	require.True(t, ok)
	assert.Equal(t, domain.RoomStat{Name: "alpha", Count: 1}, stat)

	// leaving again is a silent no-op
	_, ok = l.Leave(ids[0])
	assert.False(t, ok)

	// last occupant out removes the room entirely
	stat, ok = l.Leave(ids[1])
	require.True(t, ok)
	assert.Equal(t, domain.RoomStat{Name: "alpha", Count: 0}, stat)
	assert.Empty(t, l.TopRooms(0))
	assert.Equal(t, domain.RoomStat{Name: "None", Count: 0}, l.MostPopularRoom())
}

func TestLedger_DisconnectCleansUp(t *testing.T) {
	l := service.NewLedger()
	fill(t, l, "lobby", 2)

	vacated, hadRoom, err := l.Unregister("conn-lobby-0")
	require.NoError(t, err)
	require.True(t, hadRoom)
	assert.Equal(t, domain.RoomStat{Name: "lobby", Count: 1}, vacated)
	assert.Equal(t, 1, l.TotalConnections())

	snap := l.Snapshot(0)
	assert.Equal(t, 1, snap.TotalUsers)
	assert.Equal(t, domain.RoomStat{Name: "lobby", Count: 1}, snap.MostPopularRoom)
}

func TestLedger_MostPopularRoom(t *testing.T) {
	l := service.NewLedger()
	assert.Equal(t, domain.RoomStat{Name: "None", Count: 0}, l.MostPopularRoom())

	fill(t, l, "small", 1)
	fill(t, l, "big", 3)
	assert.Equal(t, domain.RoomStat{Name: "big", Count: 3}, l.MostPopularRoom())
}

func TestLedger_MostPopularRoomTieBreak(t *testing.T) {
	l := service.NewLedger()
	fill(t, l, "first", 2)
	fill(t, l, "second", 2)

	// equal counts: the room occupied first wins
	assert.Equal(t, domain.RoomStat{Name: "first", Count: 2}, l.MostPopularRoom())
}

func TestLedger_TopRooms(t *testing.T) {
	l := service.NewLedger()

	// A:5 B:9 C:2 D:9 E:1 F:7, registered in that order
	for _, r := range []struct {
		name string
		n    int
	}{
		{"A", 5}, {"B", 9}, {"C", 2}, {"D", 9}, {"E", 1}, {"F", 7},
	} {
		fill(t, l, r.name, r.n)
	}

	top := l.TopRooms(5)
	require.Len(t, top, 5)
	assert.Equal(t, []domain.RoomStat{
		{Name: "B", Count: 9},
		{Name: "D", Count: 9}, // tie with B, B was seen first
		{Name: "F", Count: 7},
		{Name: "A", Count: 5},
		{Name: "C", Count: 2},
	}, top)

	assert.Equal(t, domain.RoomStat{Name: "B", Count: 9}, l.MostPopularRoom())

	// non-positive limit falls back to the default of 5
	assert.Len(t, l.TopRooms(0), 5)
	assert.Len(t, l.TopRooms(2), 2)
}

func TestLedger_EmptiedRoomLosesItsSlot(t *testing.T) {
	l := service.NewLedger()
	ids := fill(t, l, "old", 1)
	fill(t, l, "young", 1)

	// empty "old" and revive it: it now ranks after "young" on ties
	_, ok := l.Leave(ids[0])
	require.True(t, ok)
	_, err := l.Join(ids[0], "old")
	require.NoError(t, err)

	assert.Equal(t, []domain.RoomStat{
		{Name: "young", Count: 1},
		{Name: "old", Count: 1},
	}, l.TopRooms(0))
}

func TestLedger_Snapshot(t *testing.T) {
	l := service.NewLedger()

	snap := l.Snapshot(0)
	assert.Equal(t, 0, snap.TotalUsers)
	assert.Equal(t, domain.RoomStat{Name: "None", Count: 0}, snap.MostPopularRoom)
	require.NotNil(t, snap.RoomRankings, "empty ranking must marshal as []")
	assert.Empty(t, snap.RoomRankings)
	assert.NotEmpty(t, snap.Timestamp)
}

func TestLedger_CounterConsistency(t *testing.T) {
	l := service.NewLedger()

	rooms := []string{"r1", "r2", "r3"}
	expected := map[string]int{}
	for i := 0; i < 30; i++ {
		id := fmt.Sprintf("c%d", i)
		l.Register(id)
		room := rooms[i%len(rooms)]
		_, err := l.Join(id, room)
		require.NoError(t, err)
		expected[room]++
	}

	// every third connection disconnects, every fifth moves to r1
	for i := 0; i < 30; i++ {
		id := fmt.Sprintf("c%d", i)
		room := rooms[i%len(rooms)]
		switch {
		case i%3 == 0:
			_, _, err := l.Unregister(id)
			require.NoError(t, err)
			expected[room]--
		case i%5 == 0:
			_, err := l.Join(id, "r1")
			require.NoError(t, err)
			expected[room]--
			expected["r1"]++
		}
	}

	got := map[string]int{}
	for _, s := range l.TopRooms(len(rooms)) {
		assert.Positive(t, s.Count, "no room entry with count <= 0 may persist")
		got[s.Name] = s.Count
	}
	for room, count := range expected {
		if count > 0 {
			assert.Equal(t, count, got[room], "room %s", room)
		} else {
			assert.NotContains(t, got, room)
		}
	}
}

func TestLedger_ConcurrentMutations(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping concurrency test in short mode")
	}

	l := service.NewLedger()
	rooms := []string{"a", "b", "c", "d"}

	const workers = 50
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()

			id := fmt.Sprintf("conn-%d", w)
			l.Register(id)
			for i := 0; i < 100; i++ {
				_, err := l.Join(id, rooms[(w+i)%len(rooms)])
				assert.NoError(t, err)
				if i%7 == 0 {
					l.Leave(id)
				}
				_ = l.Snapshot(0)
			}
		}(w)
	}
	wg.Wait()

	assert.Equal(t, workers, l.TotalConnections())

	total := 0
	for _, s := range l.TopRooms(len(rooms)) {
		assert.Positive(t, s.Count)
		total += s.Count
	}
	assert.LessOrEqual(t, total, workers)
}
