package domain

// RoomStat is one entry of the occupancy ranking.
type RoomStat struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// Snapshot is the aggregate state pushed to every client on each broadcast tick.
// RoomRankings is always non-nil so an empty ranking marshals as [].
type Snapshot struct {
	TotalUsers      int        `json:"totalUsers"`
	MostPopularRoom RoomStat   `json:"mostPopularRoom"`
	RoomRankings    []RoomStat `json:"roomRankings"`
	Timestamp       string     `json:"timestamp"`
}
