package rankings

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"tunetally/internal/calendar"
	"tunetally/internal/models"
	"tunetally/internal/ranking"
	"tunetally/internal/store"
)

// ErrInvalidQuery indicates an unknown scope, window, sort or paging value.
var ErrInvalidQuery = errors.New("invalid leaderboard query")

// TopSize is how many groups a count-sorted leaderboard puts on the podium.
const TopSize = 3

// MaxLimit caps the page size.
const MaxLimit = 100

// Scope selects whose votes are ranked.
type Scope string

const (
	ScopeEveryone Scope = "everyone"
	ScopeFriends  Scope = "friends"
	ScopeSelf     Scope = "self"
)

// Window selects which votes by date are ranked.
type Window string

const (
	WindowAll   Window = "all"
	WindowToday Window = "today"
)

// Sort selects the order of the returned groups.
type Sort string

const (
	SortCount  Sort = "count"
	SortNewest Sort = "newest"
	SortOldest Sort = "oldest"
)

// PageMode chooses what page and limit apply to.
type PageMode string

const (
	// PageVotes pages the raw votes and aggregates only the fetched page.
	PageVotes PageMode = "votes"
	// PageGroups aggregates the whole scope and pages the sorted groups.
	PageGroups PageMode = "groups"
)

// Query describes one leaderboard or feed request. Zero values pick the defaults.
type Query struct {
	ViewerID     string
	Scope        Scope
	Window       Window
	Policy       *ranking.CountPolicy
	Sort         Sort
	Page         int
	Limit        int
	Mode         PageMode
	Contributors bool
	IncludeSelf  bool
}

// Leaderboard is the ranked result. Top and Rest are only set for count sorting.
type Leaderboard struct {
	Groups     []ranking.Group `json:"groups"`
	Top        []ranking.Group `json:"top,omitempty"`
	Rest       []ranking.Group `json:"rest,omitempty"`
	TotalCount int             `json:"totalCount"`
	Page       int             `json:"page,omitempty"`
	Limit      int             `json:"limit,omitempty"`
	Policy     string          `json:"policy"`
}

// VoteStore fetches votes for aggregation.
type VoteStore interface {
	ListVotes(ctx context.Context, filter store.VoteFilter) ([]models.Vote, error)
	CountVotes(ctx context.Context, filter store.VoteFilter) (int, error)
}

// FriendLister resolves a user's friends.
type FriendLister interface {
	FriendIDs(ctx context.Context, userID string) ([]string, error)
}

// Service builds leaderboards and feeds.
type Service interface {
	Leaderboard(ctx context.Context, q Query) (Leaderboard, error)
}

// Option customises the service.
type Option func(*service)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *service) { s.now = now }
}

// WithLocation sets the time zone that defines "today".
func WithLocation(loc *time.Location) Option {
	return func(s *service) {
		if loc != nil {
			s.loc = loc
		}
	}
}

type service struct {
	votes   VoteStore
	friends FriendLister
	now     func() time.Time
	loc     *time.Location
}

// New constructs a rankings Service.
func New(votes VoteStore, friends FriendLister, opts ...Option) Service {
	s := &service{
		votes:   votes,
		friends: friends,
		now:     time.Now,
		loc:     time.Local,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *service) Leaderboard(ctx context.Context, q Query) (Leaderboard, error) {
	if err := ctx.Err(); err != nil {
		return Leaderboard{}, err
	}

	q, err := normalize(q)
	if err != nil {
		return Leaderboard{}, err
	}

	filter, err := s.scopeFilter(ctx, q)
	if err != nil {
		return Leaderboard{}, err
	}

	policy := ranking.Unsigned
	if q.Window == WindowToday {
		policy = ranking.Signed
	}
	if q.Policy != nil {
		policy = *q.Policy
	}
	opts := ranking.Options{Policy: policy, Contributors: q.Contributors}

	board := Leaderboard{Policy: policy.String()}
	if q.Limit > 0 {
		board.Page = q.Page
		board.Limit = q.Limit
	}

	switch q.Mode {
	case PageGroups:
		votes, err := s.votes.ListVotes(ctx, filter)
		if err != nil {
			return Leaderboard{}, err
		}
		groups := ranking.Aggregate(votes, opts)
		sortGroups(groups, q.Sort)
		board.TotalCount = len(groups)
		board.Groups = pageOf(groups, q.Page, q.Limit)
	default:
		total, err := s.votes.CountVotes(ctx, filter)
		if err != nil {
			return Leaderboard{}, err
		}
		if q.Limit > 0 {
			filter.Offset = (q.Page - 1) * q.Limit
			filter.Limit = q.Limit
		}
		votes, err := s.votes.ListVotes(ctx, filter)
		if err != nil {
			return Leaderboard{}, err
		}
		groups := ranking.Aggregate(votes, opts)
		sortGroups(groups, q.Sort)
		board.TotalCount = total
		board.Groups = groups
	}

	if q.Sort == SortCount {
		board.Top, board.Rest = ranking.SplitTop(board.Groups, TopSize)
	}

	return board, nil
}

func (s *service) scopeFilter(ctx context.Context, q Query) (store.VoteFilter, error) {
	var filter store.VoteFilter

	switch q.Scope {
	case ScopeEveryone:
		filter.AllUsers = true
	case ScopeSelf:
		filter.UserIDs = []string{q.ViewerID}
	case ScopeFriends:
		ids, err := s.friends.FriendIDs(ctx, q.ViewerID)
		if err != nil {
			return store.VoteFilter{}, err
		}
		if q.IncludeSelf {
			ids = append(ids, q.ViewerID)
		}
		filter.UserIDs = ids
	}

	if q.Window == WindowToday {
		filter.Since, filter.Until = calendar.Day(s.now(), s.loc)
	}

	return filter, nil
}

func normalize(q Query) (Query, error) {
	if q.Scope == "" {
		q.Scope = ScopeEveryone
	}
	if q.Window == "" {
		q.Window = WindowAll
	}
	if q.Sort == "" {
		q.Sort = SortCount
	}
	if q.Mode == "" {
		q.Mode = PageVotes
	}

	switch q.Scope {
	case ScopeEveryone:
	case ScopeFriends, ScopeSelf:
		if strings.TrimSpace(q.ViewerID) == "" {
			return Query{}, fmt.Errorf("%w: %s scope requires a signed-in user", store.ErrUnauthorized, q.Scope)
		}
	default:
		return Query{}, fmt.Errorf("%w: unknown scope %q", ErrInvalidQuery, q.Scope)
	}
	switch q.Window {
	case WindowAll, WindowToday:
	default:
		return Query{}, fmt.Errorf("%w: unknown window %q", ErrInvalidQuery, q.Window)
	}
	switch q.Sort {
	case SortCount, SortNewest, SortOldest:
	default:
		return Query{}, fmt.Errorf("%w: unknown sort %q", ErrInvalidQuery, q.Sort)
	}
	switch q.Mode {
	case PageVotes, PageGroups:
	default:
		return Query{}, fmt.Errorf("%w: unknown pagination mode %q", ErrInvalidQuery, q.Mode)
	}

	switch {
	case q.Limit < 0:
		return Query{}, fmt.Errorf("%w: limit must not be negative", ErrInvalidQuery)
	case q.Limit > MaxLimit:
		q.Limit = MaxLimit
	}
	if q.Page < 1 {
		q.Page = 1
	}
	if q.Limit > 0 && q.Page-1 > math.MaxInt/q.Limit {
		return Query{}, fmt.Errorf("%w: page %d is out of range", ErrInvalidQuery, q.Page)
	}

	return q, nil
}

func sortGroups(groups []ranking.Group, by Sort) {
	switch by {
	case SortNewest:
		ranking.SortByRecency(groups, true)
	case SortOldest:
		ranking.SortByRecency(groups, false)
	default:
		ranking.SortByCount(groups)
	}
}

func pageOf(groups []ranking.Group, page, limit int) []ranking.Group {
	if limit <= 0 {
		return groups
	}
	start := (page - 1) * limit
	if start < 0 || start >= len(groups) {
		return []ranking.Group{}
	}
	end := start + limit
	if end > len(groups) {
		end = len(groups)
	}
	return groups[start:end]
}
