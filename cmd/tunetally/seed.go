package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jaswdr/faker"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v3"

	"tunetally/internal/calendar"
	"tunetally/internal/config"
	"tunetally/internal/models"
	"tunetally/internal/store"
)

func seedCommand() *cli.Command {
	return &cli.Command{
		Name:  "seed",
		Usage: "Fill the database with demo users, friendships and votes",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "users", Usage: "Number of demo users", Value: 12},
			&cli.IntFlag{Name: "days", Usage: "Days of vote history to generate", Value: 14},
			&cli.IntFlag{Name: "songs", Usage: "Size of the song catalogue votes are drawn from", Value: 15},
			&cli.StringFlag{Name: "admin", Usage: "User id to create and grant admin rights"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg, err := config.LoadTooling(cmd.String("env-file"))
			if err != nil {
				return err
			}
			setupLogging(cfg.Logging)

			db, err := openDatabase(ctx, cfg.Database.URL)
			if err != nil {
				return err
			}
			defer db.Close()

			s := seeder{
				store: store.New(db),
				fake:  faker.New(),
				loc:   cfg.Voting.Location,
				now:   time.Now(),
			}
			return s.run(ctx, seedPlan{
				Users: int(cmd.Int("users")),
				Days:  int(cmd.Int("days")),
				Songs: int(cmd.Int("songs")),
				Admin: cmd.String("admin"),
			})
		},
	}
}

type seedPlan struct {
	Users int
	Days  int
	Songs int
	Admin string
}

type song struct {
	title  string
	artist string
}

type seeder struct {
	store *store.Store
	fake  faker.Faker
	loc   *time.Location
	now   time.Time
}

func (s seeder) run(ctx context.Context, plan seedPlan) error {
	if plan.Users < 2 || plan.Days < 1 || plan.Songs < 1 {
		return errors.New("seed needs at least 2 users, 1 day and 1 song")
	}

	ids := make([]string, 0, plan.Users+1)
	for i := 0; i < plan.Users; i++ {
		person := s.fake.Person()
		name := person.FirstName() + " " + person.LastName()
		image := s.fake.Internet().URL()

		user, err := s.store.UpsertUser(ctx, "seed-"+s.fake.UUID().V4(), name, &image)
		if err != nil {
			return fmt.Errorf("seed user: %w", err)
		}
		ids = append(ids, user.ID)
	}

	if plan.Admin != "" {
		if _, err := s.store.UpsertUser(ctx, plan.Admin, "Admin", nil); err != nil {
			return fmt.Errorf("seed admin: %w", err)
		}
		if err := s.store.SetAdmin(ctx, plan.Admin, true); err != nil {
			return fmt.Errorf("grant admin: %w", err)
		}
		ids = append(ids, plan.Admin)
	}

	friendships, pending, err := s.seedFriends(ctx, ids)
	if err != nil {
		return err
	}

	catalogue := make([]song, plan.Songs)
	for i := range catalogue {
		music := s.fake.Music()
		catalogue[i] = song{title: music.Name(), artist: music.Author()}
	}

	votes, err := s.seedVotes(ctx, ids, catalogue, plan.Days)
	if err != nil {
		return err
	}

	log.Info().
		Int("users", len(ids)).
		Int("friendships", friendships).
		Int("pending_requests", pending).
		Int("votes", votes).
		Msg("seed complete")
	return nil
}

// seedFriends links each user to the next one and leaves every third pair
// further along as a pending request.
func (s seeder) seedFriends(ctx context.Context, ids []string) (friendships, pending int, err error) {
	for i := 0; i+1 < len(ids); i++ {
		sender, receiver := ids[i], ids[i+1]
		if _, err := s.store.CreateFriendRequest(ctx, sender, receiver); err != nil {
			if errors.Is(err, store.ErrAlreadyFriends) {
				continue
			}
			return 0, 0, fmt.Errorf("seed friend request: %w", err)
		}
		if _, err := s.store.AcceptFriendRequest(ctx, sender, receiver); err != nil {
			return 0, 0, fmt.Errorf("seed friendship: %w", err)
		}
		friendships++
	}

	for i := 0; i+2 < len(ids); i += 3 {
		_, err := s.store.CreateFriendRequest(ctx, ids[i], ids[i+2])
		switch {
		case err == nil:
			pending++
		case errors.Is(err, store.ErrFriendRequestExists), errors.Is(err, store.ErrAlreadyFriends):
		default:
			return 0, 0, fmt.Errorf("seed pending request: %w", err)
		}
	}

	return friendships, pending, nil
}

// seedVotes casts at most one vote per user per day, skipping roughly a third of the days.
func (s seeder) seedVotes(ctx context.Context, ids []string, catalogue []song, days int) (int, error) {
	count := 0
	for d := days - 1; d >= 0; d-- {
		dayStart, _ := calendar.Day(s.now.AddDate(0, 0, -d), s.loc)

		for _, id := range ids {
			if s.fake.IntBetween(0, 2) == 0 {
				continue
			}

			pick := catalogue[s.fake.IntBetween(0, len(catalogue)-1)]
			voteType := models.VoteUp
			if s.fake.IntBetween(0, 3) == 0 {
				voteType = models.VoteDown
			}
			cover := s.fake.Internet().URL()

			vote := models.Vote{
				UserID:    id,
				Song:      pick.title,
				Artist:    pick.artist,
				VoteType:  voteType,
				ImageURL:  &cover,
				CreatedAt: dayStart.Add(time.Duration(s.fake.IntBetween(0, 23*60)) * time.Minute).UTC(),
			}
			if vote.CreatedAt.After(s.now) {
				vote.CreatedAt = s.now.UTC()
			}

			_, err := s.store.CreateVote(ctx, vote, dayStart)
			switch {
			case err == nil:
				count++
			case errors.Is(err, store.ErrAlreadyVotedToday):
			default:
				return count, fmt.Errorf("seed vote: %w", err)
			}
		}
	}
	return count, nil
}
