package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mmynk/splitledger/internal/errs"
	"github.com/mmynk/splitledger/internal/models"
)

// CreateUser inserts a user known to the ledger.
func (s *SQLiteStore) CreateUser(ctx context.Context, user *models.User) error {
	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC().Truncate(time.Second)
	}

	_, err := s.db.ExecContext(ctx,
		"INSERT INTO users (id, name, email, created_at) VALUES (?, ?, ?, ?)",
		user.ID, user.Name, user.Email, user.CreatedAt.Unix(),
	)
	if err != nil {
		return classify(err, "failed to create user")
	}
	return nil
}

// GetUserByID retrieves a user by their ID.
func (s *SQLiteStore) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	user := &models.User{}
	var createdAt int64
	err := s.db.QueryRowContext(ctx,
		"SELECT id, name, email, created_at FROM users WHERE id = ?",
		id,
	).Scan(&user.ID, &user.Name, &user.Email, &createdAt)
	if err == sql.ErrNoRows {
		return nil, errs.Newf(errs.NotFound, "user not found: %s", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user by id: %w", err)
	}

	user.CreatedAt = time.Unix(createdAt, 0).UTC()
	return user, nil
}

// CreateTag inserts a tag.
func (s *SQLiteStore) CreateTag(ctx context.Context, tag *models.Tag) error {
	if tag.ID == "" {
		tag.ID = uuid.New().String()
	}
	_, err := s.db.ExecContext(ctx, "INSERT INTO tags (id, name) VALUES (?, ?)", tag.ID, tag.Name)
	if err != nil {
		return classify(err, "failed to create tag")
	}
	return nil
}

// AddReceipt attaches a receipt to an expense.
func (s *SQLiteStore) AddReceipt(ctx context.Context, receipt *models.Receipt) error {
	if receipt.ID == "" {
		receipt.ID = uuid.New().String()
	}
	if receipt.CreatedAt.IsZero() {
		receipt.CreatedAt = time.Now().UTC().Truncate(time.Second)
	}
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO receipts (id, expense_id, url, created_at) VALUES (?, ?, ?, ?)",
		receipt.ID, receipt.ExpenseID, receipt.URL, receipt.CreatedAt.Unix(),
	)
	if err != nil {
		return classify(err, "failed to add receipt")
	}
	return nil
}

// ListReceipts retrieves the receipts of an expense.
func (s *SQLiteStore) ListReceipts(ctx context.Context, expenseID string) ([]*models.Receipt, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, expense_id, url, created_at FROM receipts WHERE expense_id = ? ORDER BY created_at",
		expenseID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list receipts: %w", err)
	}
	defer rows.Close()

	var receipts []*models.Receipt
	for rows.Next() {
		receipt := &models.Receipt{}
		var createdAt int64
		if err := rows.Scan(&receipt.ID, &receipt.ExpenseID, &receipt.URL, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan receipt: %w", err)
		}
		receipt.CreatedAt = time.Unix(createdAt, 0).UTC()
		receipts = append(receipts, receipt)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate receipts: %w", err)
	}
	return receipts, nil
}
