// Package ranking groups votes by song and turns them into leaderboards and feeds.
package ranking

import (
	"fmt"
	"sort"
	"strings"

	"tunetally/internal/models"
)

// CountPolicy decides how a vote contributes to its group's count.
type CountPolicy int

const (
	// Unsigned counts every vote as one, whatever its direction.
	Unsigned CountPolicy = iota
	// Signed adds one for an upvote and subtracts one for a downvote.
	Signed
)

func (p CountPolicy) String() string {
	if p == Signed {
		return "signed"
	}
	return "unsigned"
}

// ParseCountPolicy accepts "signed" or "unsigned", case-insensitively.
func ParseCountPolicy(s string) (CountPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "signed":
		return Signed, nil
	case "unsigned":
		return Unsigned, nil
	default:
		return Unsigned, fmt.Errorf("unknown count policy %q", s)
	}
}

// Options configures Aggregate.
type Options struct {
	Policy       CountPolicy
	Contributors bool
}

// Group is every vote for one (song, artist) pair.
type Group struct {
	Song         string               `json:"song"`
	Artist       string               `json:"artist"`
	VoteCount    int                  `json:"voteCount"`
	Sample       models.Vote          `json:"sample"`
	Contributors []models.UserSummary `json:"contributors,omitempty"`
}

type groupKey struct {
	song   string
	artist string
}

// Aggregate groups votes by exact (song, artist). Groups come back in the order
// their first vote appears, and that first vote becomes the group's Sample.
func Aggregate(votes []models.Vote, opts Options) []Group {
	groups := make([]Group, 0)
	index := make(map[groupKey]int)
	seen := make(map[groupKey]map[string]struct{})

	for _, v := range votes {
		key := groupKey{song: v.Song, artist: v.Artist}
		i, ok := index[key]
		if !ok {
			i = len(groups)
			index[key] = i
			groups = append(groups, Group{Song: v.Song, Artist: v.Artist, Sample: v})
		}

		g := &groups[i]
		g.VoteCount += weight(v, opts.Policy)

		if opts.Contributors {
			users, ok := seen[key]
			if !ok {
				users = make(map[string]struct{})
				seen[key] = users
			}
			if _, dup := users[v.UserID]; !dup {
				users[v.UserID] = struct{}{}
				g.Contributors = append(g.Contributors, contributor(v))
			}
		}
	}

	return groups
}

func weight(v models.Vote, policy CountPolicy) int {
	if policy == Signed && v.VoteType == models.VoteDown {
		return -1
	}
	return 1
}

func contributor(v models.Vote) models.UserSummary {
	if v.Voter != nil {
		return *v.Voter
	}
	return models.UserSummary{ID: v.UserID}
}

// SortByCount orders groups by VoteCount, highest first. Ties keep their order.
func SortByCount(groups []Group) {
	sort.SliceStable(groups, func(i, j int) bool {
		return groups[i].VoteCount > groups[j].VoteCount
	})
}

// SortByRecency orders groups by their sample vote's creation time.
func SortByRecency(groups []Group, newestFirst bool) {
	sort.SliceStable(groups, func(i, j int) bool {
		a, b := groups[i].Sample.CreatedAt, groups[j].Sample.CreatedAt
		if newestFirst {
			return a.After(b)
		}
		return a.Before(b)
	})
}

// SplitTop returns the first n groups and the remainder.
func SplitTop(groups []Group, n int) (top, rest []Group) {
	if n < 0 {
		n = 0
	}
	if n > len(groups) {
		n = len(groups)
	}
	return groups[:n], groups[n:]
}
