package votes

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"tunetally/internal/calendar"
	"tunetally/internal/lock"
	"tunetally/internal/models"
	"tunetally/internal/store"
)

// Store defines the persistence hooks for voting workflows.
type Store interface {
	CreateVote(ctx context.Context, vote models.Vote, day time.Time) (models.Vote, error)
	LatestVoteSince(ctx context.Context, userID string, since time.Time) (models.Vote, error)
	FirstVote(ctx context.Context, userID string) (models.Vote, error)
	LastVote(ctx context.Context, userID string) (models.Vote, error)
	VotesByUser(ctx context.Context, userID string) ([]models.Vote, error)
	DeleteVote(ctx context.Context, id int64) (models.DeletedVote, error)
}

// Service coordinates casting and querying votes.
type Service interface {
	Cast(ctx context.Context, userID string, req models.VoteRequest) (models.Vote, error)
	Today(ctx context.Context, userID string) (models.Vote, error)
	First(ctx context.Context, userID string) (models.Vote, error)
	Last(ctx context.Context, userID string) (models.Vote, error)
	All(ctx context.Context, userID string) ([]models.Vote, error)
	Delete(ctx context.Context, id int64) (models.DeletedVote, error)
}

// Option customises the service.
type Option func(*service)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *service) { s.now = now }
}

// WithLocation sets the time zone whose calendar day bounds a user's daily vote.
func WithLocation(loc *time.Location) Option {
	return func(s *service) {
		if loc != nil {
			s.loc = loc
		}
	}
}

type service struct {
	store  Store
	locker lock.Locker
	now    func() time.Time
	loc    *time.Location
}

// New constructs a voting Service. Vote creation is serialized per user through locker.
func New(store Store, locker lock.Locker, opts ...Option) Service {
	s := &service{
		store:  store,
		locker: locker,
		now:    time.Now,
		loc:    time.Local,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *service) Cast(ctx context.Context, userID string, req models.VoteRequest) (models.Vote, error) {
	if err := ctx.Err(); err != nil {
		return models.Vote{}, err
	}

	vote := models.Vote{
		UserID:   strings.TrimSpace(userID),
		Song:     strings.TrimSpace(req.Song),
		Artist:   strings.TrimSpace(req.Artist),
		VoteType: req.VoteType,
		ImageURL: req.ImageURL,
	}
	if err := validate(vote); err != nil {
		return models.Vote{}, err
	}

	unlock, err := s.locker.Lock(ctx, "vote:"+vote.UserID)
	if err != nil {
		return models.Vote{}, fmt.Errorf("lock voter: %w", err)
	}
	defer unlock()

	now := s.now()
	dayStart, _ := calendar.Day(now, s.loc)

	_, err = s.store.LatestVoteSince(ctx, vote.UserID, dayStart)
	switch {
	case err == nil:
		return models.Vote{}, store.ErrAlreadyVotedToday
	case !errors.Is(err, store.ErrVoteNotFound):
		return models.Vote{}, err
	}

	vote.CreatedAt = now.UTC()
	return s.store.CreateVote(ctx, vote, dayStart)
}

func (s *service) Today(ctx context.Context, userID string) (models.Vote, error) {
	if err := ctx.Err(); err != nil {
		return models.Vote{}, err
	}
	dayStart, _ := calendar.Day(s.now(), s.loc)
	return s.store.LatestVoteSince(ctx, userID, dayStart)
}

func (s *service) First(ctx context.Context, userID string) (models.Vote, error) {
	if err := ctx.Err(); err != nil {
		return models.Vote{}, err
	}
	return s.store.FirstVote(ctx, userID)
}

func (s *service) Last(ctx context.Context, userID string) (models.Vote, error) {
	if err := ctx.Err(); err != nil {
		return models.Vote{}, err
	}
	return s.store.LastVote(ctx, userID)
}

func (s *service) All(ctx context.Context, userID string) ([]models.Vote, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.store.VotesByUser(ctx, userID)
}

func (s *service) Delete(ctx context.Context, id int64) (models.DeletedVote, error) {
	if err := ctx.Err(); err != nil {
		return models.DeletedVote{}, err
	}
	if id <= 0 {
		return models.DeletedVote{}, store.ErrVoteNotFound
	}
	return s.store.DeleteVote(ctx, id)
}

func validate(v models.Vote) error {
	switch {
	case v.UserID == "":
		return fmt.Errorf("%w: userId is required", store.ErrInvalidVote)
	case v.Song == "":
		return fmt.Errorf("%w: song is required", store.ErrInvalidVote)
	case v.Artist == "":
		return fmt.Errorf("%w: artist is required", store.ErrInvalidVote)
	case !v.VoteType.Valid():
		return fmt.Errorf("%w: voteType must be %q or %q", store.ErrInvalidVote, models.VoteUp, models.VoteDown)
	}
	return nil
}
