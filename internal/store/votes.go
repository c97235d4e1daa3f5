package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"

	"tunetally/internal/models"
)

var (
	// ErrInvalidVote indicates validation failure for vote payloads.
	ErrInvalidVote = errors.New("invalid vote")
	// ErrVoteNotFound signals a missing vote record.
	ErrVoteNotFound = errors.New("vote not found")
	// ErrAlreadyVotedToday is returned when the user already holds a vote for the current day.
	ErrAlreadyVotedToday = errors.New("already voted today")
)

const voteDayLayout = "2006-01-02"

// VoteFilter narrows ListVotes and CountVotes. When AllUsers is false only votes
// cast by UserIDs are considered; an empty UserIDs then matches nothing.
type VoteFilter struct {
	AllUsers bool
	UserIDs  []string
	Since    time.Time
	Until    time.Time
	Offset   int
	Limit    int
}

func (f VoteFilter) matchesNothing() bool {
	return !f.AllUsers && len(f.UserIDs) == 0
}

// CreateVote persists a vote. day is the calendar day, in the voting time zone,
// the vote counts against; a second vote for the same day yields ErrAlreadyVotedToday.
func (s *Store) CreateVote(ctx context.Context, vote models.Vote, day time.Time) (models.Vote, error) {
	if err := validateVote(vote); err != nil {
		return models.Vote{}, err
	}
	vote.Song = strings.TrimSpace(vote.Song)
	vote.Artist = strings.TrimSpace(vote.Artist)
	if vote.CreatedAt.IsZero() {
		vote.CreatedAt = time.Now().UTC()
	}

	err := s.db.QueryRowContext(ctx, `
		INSERT INTO votes (user_id, song, artist, vote_type, image_url, created_at, vote_day)
		VALUES ($1, $2, $3, $4, $5, $6, $7::date)
		RETURNING id
	`, vote.UserID, vote.Song, vote.Artist, string(vote.VoteType), vote.ImageURL, vote.CreatedAt, day.Format(voteDayLayout)).Scan(&vote.ID)
	if err != nil {
		switch {
		case isUniqueViolation(err):
			return models.Vote{}, ErrAlreadyVotedToday
		case isForeignKeyViolation(err):
			return models.Vote{}, ErrUserNotFound
		}
		return models.Vote{}, fmt.Errorf("insert vote: %w", err)
	}

	return vote, nil
}

// LatestVoteSince returns the user's most recent vote cast at or after since.
func (s *Store) LatestVoteSince(ctx context.Context, userID string, since time.Time) (models.Vote, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, user_id, song, artist, vote_type, image_url, created_at
		FROM votes
		WHERE user_id = $1 AND created_at >= $2
		ORDER BY created_at DESC, id DESC
		LIMIT 1
	`, userID, since)

	return s.singleVote(row)
}

// FirstVote returns the user's earliest vote.
func (s *Store) FirstVote(ctx context.Context, userID string) (models.Vote, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, user_id, song, artist, vote_type, image_url, created_at
		FROM votes
		WHERE user_id = $1
		ORDER BY created_at ASC, id ASC
		LIMIT 1
	`, userID)

	return s.singleVote(row)
}

// LastVote returns the user's latest vote.
func (s *Store) LastVote(ctx context.Context, userID string) (models.Vote, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, user_id, song, artist, vote_type, image_url, created_at
		FROM votes
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT 1
	`, userID)

	return s.singleVote(row)
}

// VotesByUser lists every vote the user has cast, newest first.
func (s *Store) VotesByUser(ctx context.Context, userID string) ([]models.Vote, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, song, artist, vote_type, image_url, created_at
		FROM votes
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("list user votes: %w", err)
	}
	defer rows.Close()

	votes := make([]models.Vote, 0)
	for rows.Next() {
		v, err := scanVote(rows)
		if err != nil {
			return nil, fmt.Errorf("scan vote: %w", err)
		}
		votes = append(votes, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate votes: %w", err)
	}

	return votes, nil
}

// ListVotes returns votes matching filter with the voter's summary attached,
// newest first.
func (s *Store) ListVotes(ctx context.Context, filter VoteFilter) ([]models.Vote, error) {
	if filter.matchesNothing() {
		return []models.Vote{}, nil
	}

	query := `
		SELECT v.id, v.user_id, v.song, v.artist, v.vote_type, v.image_url, v.created_at, u.name, u.image
		FROM votes v
		JOIN users u ON u.id = v.user_id
	`
	where, args := voteFilterClauses(filter)
	query += where
	query += " ORDER BY v.created_at DESC, v.id DESC"

	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if filter.Offset > 0 {
		args = append(args, filter.Offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list votes: %w", err)
	}
	defer rows.Close()

	votes := make([]models.Vote, 0)
	for rows.Next() {
		var (
			v     models.Vote
			voter models.UserSummary
		)
		if err := rows.Scan(
			&v.ID,
			&v.UserID,
			&v.Song,
			&v.Artist,
			&v.VoteType,
			&v.ImageURL,
			&v.CreatedAt,
			&voter.Name,
			&voter.Image,
		); err != nil {
			return nil, fmt.Errorf("scan vote: %w", err)
		}
		voter.ID = v.UserID
		v.Voter = &voter
		votes = append(votes, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate votes: %w", err)
	}

	return votes, nil
}

// CountVotes returns how many votes match filter, ignoring Offset and Limit.
func (s *Store) CountVotes(ctx context.Context, filter VoteFilter) (int, error) {
	if filter.matchesNothing() {
		return 0, nil
	}

	where, args := voteFilterClauses(filter)

	var total int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM votes v"+where, args...).Scan(&total); err != nil {
		return 0, fmt.Errorf("count votes: %w", err)
	}
	return total, nil
}

// DeleteVote removes a vote and archives it into deleted_votes within one transaction.
func (s *Store) DeleteVote(ctx context.Context, id int64) (models.DeletedVote, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return models.DeletedVote{}, fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if tx != nil {
			_ = tx.Rollback()
		}
	}()

	var archived models.DeletedVote
	err = tx.QueryRowContext(ctx, `
		SELECT id, user_id, song, artist, vote_type, created_at
		FROM votes
		WHERE id = $1
		FOR UPDATE
	`, id).Scan(&archived.OriginalID, &archived.UserID, &archived.Song, &archived.Artist, &archived.VoteType, &archived.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.DeletedVote{}, ErrVoteNotFound
		}
		return models.DeletedVote{}, fmt.Errorf("load vote: %w", err)
	}

	archived.DeletedAt = time.Now().UTC()
	if err := tx.QueryRowContext(ctx, `
		INSERT INTO deleted_votes (original_id, user_id, song, artist, vote_type, created_at, deleted_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`, archived.OriginalID, archived.UserID, archived.Song, archived.Artist, string(archived.VoteType), archived.CreatedAt, archived.DeletedAt).Scan(&archived.ID); err != nil {
		return models.DeletedVote{}, fmt.Errorf("archive vote: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM votes WHERE id = $1`, id); err != nil {
		return models.DeletedVote{}, fmt.Errorf("delete vote: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return models.DeletedVote{}, fmt.Errorf("commit tx: %w", err)
	}
	tx = nil

	return archived, nil
}

func (s *Store) singleVote(row *sql.Row) (models.Vote, error) {
	v, err := scanVote(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Vote{}, ErrVoteNotFound
		}
		return models.Vote{}, fmt.Errorf("get vote: %w", err)
	}
	return v, nil
}

func voteFilterClauses(filter VoteFilter) (string, []any) {
	var (
		clauses []string
		args    []any
	)

	if !filter.AllUsers {
		args = append(args, pq.Array(filter.UserIDs))
		clauses = append(clauses, fmt.Sprintf("v.user_id = ANY($%d)", len(args)))
	}
	if !filter.Since.IsZero() {
		args = append(args, filter.Since)
		clauses = append(clauses, fmt.Sprintf("v.created_at >= $%d", len(args)))
	}
	if !filter.Until.IsZero() {
		args = append(args, filter.Until)
		clauses = append(clauses, fmt.Sprintf("v.created_at < $%d", len(args)))
	}

	if len(clauses) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

func validateVote(vote models.Vote) error {
	switch {
	case strings.TrimSpace(vote.UserID) == "":
		return fmt.Errorf("%w: userId is required", ErrInvalidVote)
	case strings.TrimSpace(vote.Song) == "":
		return fmt.Errorf("%w: song is required", ErrInvalidVote)
	case strings.TrimSpace(vote.Artist) == "":
		return fmt.Errorf("%w: artist is required", ErrInvalidVote)
	case !vote.VoteType.Valid():
		return fmt.Errorf("%w: voteType must be %q or %q", ErrInvalidVote, models.VoteUp, models.VoteDown)
	}
	return nil
}

func scanVote(scanner rowScanner) (models.Vote, error) {
	var v models.Vote
	err := scanner.Scan(
		&v.ID,
		&v.UserID,
		&v.Song,
		&v.Artist,
		&v.VoteType,
		&v.ImageURL,
		&v.CreatedAt,
	)
	return v, err
}
