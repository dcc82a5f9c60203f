package model

import "time"

// LeaderboardPage is one page of members ordered by reputation descending.
type LeaderboardPage struct {
	Members   []Member
	Total     int
	Pages     int
	Timestamp time.Time
}

// RankedMember is a member annotated with its position in the full leaderboard.
// Rank is 1-based; 0 means the member could not be located.
type RankedMember struct {
	Member
	Rank int `json:"rank"`
}

// SearchPage is one page of search matches with global ranks.
type SearchPage struct {
	Members   []RankedMember
	Total     int
	Pages     int
	Timestamp time.Time
}

// PageCount returns ceil(total/size), or 0 when size is not positive.
func PageCount(total, size int) int {
	if size <= 0 || total <= 0 {
		return 0
	}
	return (total + size - 1) / size
}

// Offset returns the zero-based offset of a 1-based page.
func Offset(page, size int) int {
	if page < 1 {
		return 0
	}
	return (page - 1) * size
}
