// Package ledger persists purchased gift cards and answers retrieval lookups.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"strings"

	dbutil "github.com/luxspa/giftspa/internal/db"
	"github.com/luxspa/giftspa/internal/models"
	"github.com/luxspa/giftspa/internal/security"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ErrAlreadyRecorded is returned when a gift card id is saved twice.
var ErrAlreadyRecorded = errors.New("ledger: gift card already recorded")

// ErrCardNumberTaken is returned when another gift card already holds the card number.
var ErrCardNumberTaken = errors.New("ledger: card number already taken")

// Repository is the append-only purchase ledger.
type Repository interface {
	Save(ctx context.Context, card *models.GiftCard) error
	FindByEmailAndLast4(ctx context.Context, email, last4 string) (*models.GiftCard, error)
	List(ctx context.Context, filter ListFilter) ([]models.GiftCard, error)
	Get(ctx context.Context, id string) (*models.GiftCard, error)
}

// ListFilter narrows List results.
type ListFilter struct {
	Query    string   // Substring over card number, names and emails.
	Statuses []string // Any of these statuses; empty means all.
	Limit    int      // Zero means no limit.
	Offset   int
}

// Store is the gorm-backed Repository.
type Store struct {
	db           *gorm.DB
	lookupSecret string
}

// NewStore constructs a Store. lookupSecret keys the retrieval digest.
func NewStore(db *gorm.DB, lookupSecret string) *Store {
	return &Store{db: db, lookupSecret: lookupSecret}
}

// Save appends a finalized gift card and fills its lookup digest.
func (s *Store) Save(ctx context.Context, card *models.GiftCard) error {
	if card == nil {
		return errors.New("ledger: nil gift card")
	}
	if strings.TrimSpace(card.ID) == "" {
		return errors.New("ledger: gift card id is empty")
	}
	digest, errDigest := s.digest(card.DeliveryEmail, card.PaymentMethodLast4)
	if errDigest != nil {
		return errDigest
	}
	card.LookupDigest = digest

	var existing int64
	if errCount := s.db.WithContext(ctx).Model(&models.GiftCard{}).Where("id = ?", card.ID).Count(&existing).Error; errCount != nil {
		return fmt.Errorf("ledger: check existing: %w", errCount)
	}
	if existing > 0 {
		return ErrAlreadyRecorded
	}
	var taken int64
	if errCount := s.db.WithContext(ctx).Model(&models.GiftCard{}).Where("card_number = ?", card.CardNumber).Count(&taken).Error; errCount != nil {
		return fmt.Errorf("ledger: check card number: %w", errCount)
	}
	if taken > 0 {
		return ErrCardNumberTaken
	}
	if errCreate := s.db.WithContext(ctx).Create(card).Error; errCreate != nil {
		if isCardNumberConflict(errCreate) {
			return ErrCardNumberTaken
		}
		return fmt.Errorf("ledger: save: %w", errCreate)
	}
	return nil
}

// isCardNumberConflict matches a unique violation on card_number raised by a concurrent insert.
func isCardNumberConflict(err error) bool {
	msg := strings.ToLower(err.Error())
	if !strings.Contains(msg, "card_number") {
		return false
	}
	return errors.Is(err, gorm.ErrDuplicatedKey) || strings.Contains(msg, "unique") || strings.Contains(msg, "duplicate")
}

// FindByEmailAndLast4 returns the earliest purchase whose delivery email matches case-insensitively
// and whose payment last4 matches exactly. No match yields nil, nil.
func (s *Store) FindByEmailAndLast4(ctx context.Context, email, last4 string) (*models.GiftCard, error) {
	email = strings.TrimSpace(email)
	last4 = strings.TrimSpace(last4)
	if email == "" || last4 == "" {
		return nil, nil
	}
	digest, errDigest := s.digest(email, last4)
	if errDigest != nil {
		return nil, errDigest
	}

	var rows []models.GiftCard
	if errFind := s.db.WithContext(ctx).
		Where("lookup_digest = ?", digest).
		Order("purchase_date ASC, id ASC").
		Find(&rows).Error; errFind != nil {
		return nil, fmt.Errorf("ledger: lookup: %w", errFind)
	}
	for i := range rows {
		if strings.EqualFold(rows[i].DeliveryEmail, email) && rows[i].PaymentMethodLast4 == last4 {
			return &rows[i], nil
		}
	}
	return nil, nil
}

// List returns gift cards newest first.
func (s *Store) List(ctx context.Context, filter ListFilter) ([]models.GiftCard, error) {
	q := s.db.WithContext(ctx).Model(&models.GiftCard{})
	if query := strings.TrimSpace(filter.Query); query != "" {
		pattern := dbutil.ContainsPattern(s.db, query)
		clauses := make([]string, 0, 5)
		args := make([]any, 0, 5)
		for _, column := range []string{"card_number", "recipient_name", "sender_name", "delivery_email", "sender_email"} {
			clauses = append(clauses, dbutil.CaseInsensitiveLikeExpr(s.db, column))
			args = append(args, pattern)
		}
		q = q.Where("("+strings.Join(clauses, " OR ")+")", args...)
	}
	if len(filter.Statuses) > 0 {
		statuses := normalizeStatuses(filter.Statuses)
		if len(statuses) == 0 {
			return []models.GiftCard{}, nil
		}
		q = q.Where("status IN ?", statuses)
	}
	if filter.Limit > 0 {
		q = q.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		q = q.Offset(filter.Offset)
	}

	var rows []models.GiftCard
	if errFind := q.Order("purchase_date DESC, id DESC").Find(&rows).Error; errFind != nil {
		return nil, fmt.Errorf("ledger: list: %w", errFind)
	}
	return rows, nil
}

// Get loads one gift card by id; a missing card yields nil, nil.
func (s *Store) Get(ctx context.Context, id string) (*models.GiftCard, error) {
	var card models.GiftCard
	if errFind := s.db.WithContext(ctx).Where("id = ?", strings.TrimSpace(id)).First(&card).Error; errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("ledger: get: %w", errFind)
	}
	return &card, nil
}

// Summary aggregates the ledger for the admin dashboard.
type Summary struct {
	Total       int64            `json:"total"`
	ByStatus    map[string]int64 `json:"byStatus"`
	TotalAmount decimal.Decimal  `json:"totalAmount"`
}

// Summarize counts cards by status and sums their amounts.
func (s *Store) Summarize(ctx context.Context) (Summary, error) {
	type statusRow struct {
		Status string
		Count  int64
	}
	var rows []statusRow
	if errFind := s.db.WithContext(ctx).
		Model(&models.GiftCard{}).
		Select("status, COUNT(*) AS count").
		Group("status").
		Scan(&rows).Error; errFind != nil {
		return Summary{}, fmt.Errorf("ledger: summarize: %w", errFind)
	}
	out := Summary{ByStatus: map[string]int64{
		models.GiftCardStatusActive:   0,
		models.GiftCardStatusRedeemed: 0,
		models.GiftCardStatusExpired:  0,
	}}
	for _, row := range rows {
		out.ByStatus[row.Status] = row.Count
		out.Total += row.Count
	}

	var amounts []decimal.Decimal
	if errPluck := s.db.WithContext(ctx).Model(&models.GiftCard{}).Pluck("amount", &amounts).Error; errPluck != nil {
		return Summary{}, fmt.Errorf("ledger: sum amounts: %w", errPluck)
	}
	out.TotalAmount = decimal.Sum(decimal.Zero, amounts...)
	return out, nil
}

func (s *Store) digest(email, last4 string) (string, error) {
	if strings.TrimSpace(email) == "" {
		return "", nil
	}
	return security.LookupDigest(s.lookupSecret, email, last4)
}

func normalizeStatuses(in []string) []string {
	out := make([]string, 0, len(in))
	for _, raw := range in {
		for _, part := range strings.Split(raw, ",") {
			status := strings.ToLower(strings.TrimSpace(part))
			switch status {
			case models.GiftCardStatusActive, models.GiftCardStatusRedeemed, models.GiftCardStatusExpired:
				out = append(out, status)
			}
		}
	}
	return out
}
