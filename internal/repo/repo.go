package repo

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"rewario/internal/domain"
)

// Repo reads and writes the wallet ledger and the event log.
type Repo struct {
	DB *sql.DB
}

var ErrNotFound = domain.ErrNotFound

func (r Repo) InsertTransaction(ctx context.Context, tx *sql.Tx, t domain.Transaction) error {
	if t.ID == "" {
		return errors.New("transaction id required")
	}
	if t.UserID == "" {
		return errors.New("transaction user_id required")
	}
	const q = `INSERT INTO wallet_transactions(id,user_id,kind,coins,source,created_at) VALUES (?,?,?,?,?,?)`
	var err error
	if tx != nil {
		_, err = tx.ExecContext(ctx, q, t.ID, t.UserID, string(t.Kind), t.Coins, t.Source, t.CreatedAt)
	} else {
		_, err = r.DB.ExecContext(ctx, q, t.ID, t.UserID, string(t.Kind), t.Coins, t.Source, t.CreatedAt)
	}
	return err
}

func (r Repo) GetTransaction(ctx context.Context, id string) (domain.Transaction, error) {
	var t domain.Transaction
	var kind string
	err := r.DB.QueryRowContext(ctx, `SELECT id,user_id,kind,coins,source,created_at FROM wallet_transactions WHERE id=?`, id).
		Scan(&t.ID, &t.UserID, &kind, &t.Coins, &t.Source, &t.CreatedAt)
	if err == sql.ErrNoRows {
		return t, ErrNotFound
	}
	t.Kind = domain.TransactionKind(kind)
	return t, err
}

// ListTransactions returns a user's ledger, newest first. limit <= 0 means no limit.
func (r Repo) ListTransactions(ctx context.Context, userID string, limit int) ([]domain.Transaction, error) {
	query := `SELECT id,user_id,kind,coins,source,created_at FROM wallet_transactions WHERE user_id=? ORDER BY created_at DESC, rowid DESC`
	args := []any{userID}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	res := []domain.Transaction{}
	for rows.Next() {
		var t domain.Transaction
		var kind string
		if err := rows.Scan(&t.ID, &t.UserID, &kind, &t.Coins, &t.Source, &t.CreatedAt); err != nil {
			return nil, err
		}
		t.Kind = domain.TransactionKind(kind)
		res = append(res, t)
	}
	return res, rows.Err()
}

// Totals sums a user's ledger per transaction kind.
func (r Repo) Totals(ctx context.Context, userID string) (map[domain.TransactionKind]int, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT kind, COALESCE(SUM(coins),0) FROM wallet_transactions WHERE user_id=? GROUP BY kind`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	res := map[domain.TransactionKind]int{}
	for rows.Next() {
		var kind string
		var total int
		if err := rows.Scan(&kind, &total); err != nil {
			return nil, err
		}
		res[domain.TransactionKind(kind)] = total
	}
	return res, rows.Err()
}

type EventFilters struct {
	Type       string
	EntityKind string
	EntityID   string
	ActorID    string
	Limit      int
}

// LatestEvents returns the newest events matching the filters.
func (r Repo) LatestEvents(ctx context.Context, f EventFilters) ([]domain.Event, error) {
	var (
		clauses []string
		args    []any
	)
	if f.Type != "" {
		clauses = append(clauses, "type=?")
		args = append(args, f.Type)
	}
	if f.EntityKind != "" {
		clauses = append(clauses, "entity_kind=?")
		args = append(args, f.EntityKind)
	}
	if f.EntityID != "" {
		clauses = append(clauses, "entity_id=?")
		args = append(args, f.EntityID)
	}
	if f.ActorID != "" {
		clauses = append(clauses, "actor_id=?")
		args = append(args, f.ActorID)
	}
	query := `SELECT id,ts,type,entity_kind,COALESCE(entity_id,''),actor_id,payload_json FROM events`
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " ORDER BY id DESC"
	if f.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, f.Limit)
	}
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	res := []domain.Event{}
	for rows.Next() {
		var e domain.Event
		if err := rows.Scan(&e.ID, &e.TS, &e.Type, &e.EntityKind, &e.EntityID, &e.ActorID, &e.Payload); err != nil {
			return nil, err
		}
		res = append(res, e)
	}
	return res, rows.Err()
}
