package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	contractx "github.com/tanpawarit/dikas-orlando/agent/contract"
	"github.com/uptrace/bun"
)

// DefaultUserName is given to profiles created on first contact.
const DefaultUserName = "Novo Usuário"

// Store keeps user profiles and conversation history in SQL.
type Store struct {
	db  *bun.DB
	now func() time.Time
}

var (
	_ contractx.ProfileWriter = (*Store)(nil)
	_ contractx.HistoryStore  = (*Store)(nil)
)

func NewStore(db *bun.DB) *Store {
	return &Store{db: db, now: time.Now}
}

func (s *Store) GetByPhone(ctx context.Context, phone string) (*contractx.UserProfile, error) {
	phone = strings.TrimSpace(phone)
	if phone == "" {
		return nil, fmt.Errorf("%w: phone is empty", contractx.ErrValidation)
	}

	var m userModel
	err := s.db.NewSelect().Model(&m).Where("phone = ?", phone).Limit(1).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, contractx.ErrProfileNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select user by phone: %w", err)
	}
	return m.profile(), nil
}

// SaveProfile inserts the profile or updates the row with the same id.
// A missing id is filled with a new ULID.
func (s *Store) SaveProfile(ctx context.Context, profile *contractx.UserProfile) error {
	if profile == nil || strings.TrimSpace(profile.Phone) == "" {
		return fmt.Errorf("%w: profile needs a phone", contractx.ErrValidation)
	}
	now := s.now().UTC()
	if profile.ID == "" {
		profile.ID = ulid.Make().String()
	}
	if profile.CreatedAt.IsZero() {
		profile.CreatedAt = now
	}

	m := &userModel{
		ID:                 profile.ID,
		Name:               profile.Name,
		Phone:              strings.TrimSpace(profile.Phone),
		Email:              profile.Email,
		WelcomeMessageSent: profile.WelcomeMessageSent,
		CreatedAt:          profile.CreatedAt,
		UpdatedAt:          now,
	}
	_, err := s.db.NewInsert().
		Model(m).
		On("CONFLICT (id) DO UPDATE").
		Set("name = EXCLUDED.name").
		Set("email = EXCLUDED.email").
		Set("welcome_message_sent = EXCLUDED.welcome_message_sent").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("upsert user: %w", err)
	}
	return nil
}

// EnsureProfile returns the profile for phone, creating a default one on
// first contact. created reports whether a row was inserted.
func (s *Store) EnsureProfile(ctx context.Context, phone string) (profile *contractx.UserProfile, created bool, err error) {
	profile, err = s.GetByPhone(ctx, phone)
	if err == nil {
		return profile, false, nil
	}
	if !errors.Is(err, contractx.ErrProfileNotFound) {
		return nil, false, err
	}

	profile = &contractx.UserProfile{Name: DefaultUserName, Phone: strings.TrimSpace(phone)}
	if err := s.SaveProfile(ctx, profile); err != nil {
		return nil, false, err
	}
	return profile, true, nil
}

func (s *Store) GetHistory(ctx context.Context, sessionID string, limit int) ([]contractx.Turn, error) {
	conv, err := s.conversation(ctx, s.db, sessionID)
	if errors.Is(err, sql.ErrNoRows) {
		return []contractx.Turn{}, nil
	}
	if err != nil {
		return nil, err
	}

	var rows []messageModel
	q := s.db.NewSelect().
		Model(&rows).
		Where("conversation_id = ?", conv.ID).
		Order("sequence DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("select messages: %w", err)
	}

	turns := make([]contractx.Turn, len(rows))
	for i := range rows {
		turns[len(rows)-1-i] = rows[i].turn()
	}
	return turns, nil
}

// SaveHistory appends turns with sequence numbers continuing from the last
// stored one. The conversation row is created on first save.
func (s *Store) SaveHistory(ctx context.Context, sessionID string, turns []contractx.Turn) error {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return fmt.Errorf("%w: session id is empty", contractx.ErrValidation)
	}
	if len(turns) == 0 {
		return nil
	}

	return s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		now := s.now().UTC()

		conv, err := s.conversation(ctx, tx, sessionID)
		if errors.Is(err, sql.ErrNoRows) {
			conv = &conversationModel{ID: ulid.Make().String(), SessionID: sessionID, CreatedAt: now}
			conv.UpdatedAt = now
			if _, err := tx.NewInsert().Model(conv).Exec(ctx); err != nil {
				return fmt.Errorf("insert conversation: %w", err)
			}
		} else if err != nil {
			return err
		}

		var last sql.NullInt64
		if err := tx.NewSelect().
			Model((*messageModel)(nil)).
			ColumnExpr("MAX(sequence)").
			Where("conversation_id = ?", conv.ID).
			Scan(ctx, &last); err != nil {
			return fmt.Errorf("select last sequence: %w", err)
		}

		rows := make([]messageModel, 0, len(turns))
		for i, t := range turns {
			created := t.CreatedAt
			if created.IsZero() {
				created = now
			}
			rows = append(rows, messageModel{
				ID:             ulid.Make().String(),
				ConversationID: conv.ID,
				Sequence:       last.Int64 + int64(i) + 1,
				Role:           string(t.Role),
				Content:        t.Content,
				CreatedAt:      created.UTC(),
			})
		}
		if _, err := tx.NewInsert().Model(&rows).Exec(ctx); err != nil {
			return fmt.Errorf("insert messages: %w", err)
		}

		if _, err := tx.NewUpdate().
			Model((*conversationModel)(nil)).
			Set("updated_at = ?", now).
			Where("id = ?", conv.ID).
			Exec(ctx); err != nil {
			return fmt.Errorf("touch conversation: %w", err)
		}
		return nil
	})
}

func (s *Store) conversation(ctx context.Context, db bun.IDB, sessionID string) (*conversationModel, error) {
	var conv conversationModel
	err := db.NewSelect().Model(&conv).Where("session_id = ?", sessionID).Limit(1).Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("select conversation: %w", err)
	}
	return &conv, nil
}
