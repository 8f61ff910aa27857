package outline

import (
	"context"
	"crypto/rand"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/mattn/go-sqlite3"

	"github.com/starford/skythread/internal/apperr"
	"github.com/starford/skythread/internal/models"
)

const (
	uidAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789-_"
	uidLength   = 9
)

// NewUID returns a random 9-character block identifier.
func NewUID() string {
	buf := make([]byte, uidLength)
	_, _ = rand.Read(buf)
	for i, b := range buf {
		buf[i] = uidAlphabet[b&63]
	}
	return string(buf)
}

// FetchBlockWithChildren returns a block and its direct children.
func (db *DB) FetchBlockWithChildren(ctx context.Context, id string) (models.OutlineNode, error) {
	var node models.OutlineNode
	err := db.conn.QueryRowContext(ctx, `SELECT uid, text, ord FROM blocks WHERE uid = ?`, id).
		Scan(&node.ID, &node.Text, &node.Order)
	if errors.Is(err, sql.ErrNoRows) {
		return models.OutlineNode{}, fmt.Errorf("outline: block %s: %w", id, apperr.ErrNotFound)
	}
	if err != nil {
		return models.OutlineNode{}, fmt.Errorf("outline: fetch block: %w", err)
	}

	rows, err := db.conn.QueryContext(ctx, `SELECT uid, text, ord FROM blocks WHERE parent_uid = ? ORDER BY ord ASC`, id)
	if err != nil {
		return models.OutlineNode{}, fmt.Errorf("outline: fetch children: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var child models.OutlineNode
		if err := rows.Scan(&child.ID, &child.Text, &child.Order); err != nil {
			return models.OutlineNode{}, err
		}
		node.Children = append(node.Children, child)
	}
	return node, rows.Err()
}

// BlockText returns a block's text.
func (db *DB) BlockText(ctx context.Context, id string) (string, bool, error) {
	var text string
	err := db.conn.QueryRowContext(ctx, `SELECT text FROM blocks WHERE uid = ?`, id).Scan(&text)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("outline: block text: %w", err)
	}
	return text, true, nil
}

// UpdateBlockText replaces a block's text.
func (db *DB) UpdateBlockText(ctx context.Context, id, text string) error {
	res, err := db.conn.ExecContext(ctx,
		`UPDATE blocks SET text = ?, updated_at = ? WHERE uid = ?`, text, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("outline: update block: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("outline: update block: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("outline: block %s: %w", id, apperr.ErrNotFound)
	}
	return nil
}

// CreateBlock inserts a block under ParentID (or at top level).
func (db *DB) CreateBlock(ctx context.Context, nb NewBlock) (models.OutlineNode, error) {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return models.OutlineNode{}, fmt.Errorf("outline: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	var parent any
	if nb.ParentID != "" {
		var exists int
		err := tx.QueryRowContext(ctx, `SELECT 1 FROM blocks WHERE uid = ?`, nb.ParentID).Scan(&exists)
		if errors.Is(err, sql.ErrNoRows) {
			return models.OutlineNode{}, fmt.Errorf("outline: parent %s: %w", nb.ParentID, apperr.ErrNotFound)
		}
		if err != nil {
			return models.OutlineNode{}, fmt.Errorf("outline: lookup parent: %w", err)
		}
		parent = nb.ParentID
	}

	order := 0
	if nb.Order != nil {
		order = *nb.Order
	} else {
		var last sql.NullInt64
		err := tx.QueryRowContext(ctx, `SELECT MAX(ord) FROM blocks WHERE parent_uid IS ?`, parent).Scan(&last)
		if err != nil {
			return models.OutlineNode{}, fmt.Errorf("outline: next order: %w", err)
		}
		if last.Valid {
			order = int(last.Int64) + 1
		}
	}

	id := nb.ID
	if id == "" {
		id = NewUID()
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO blocks (uid, parent_uid, text, ord, updated_at) VALUES (?, ?, ?, ?, ?)`,
		id, parent, nb.Text, order, time.Now().UTC())
	if err != nil {
		return models.OutlineNode{}, constraintErr(err)
	}
	if err := tx.Commit(); err != nil {
		return models.OutlineNode{}, fmt.Errorf("outline: commit: %w", err)
	}
	return models.OutlineNode{ID: id, Text: nb.Text, Order: order}, nil
}

// DeleteBlock removes a block and, through the foreign key, its descendants.
func (db *DB) DeleteBlock(ctx context.Context, id string) error {
	res, err := db.conn.ExecContext(ctx, `DELETE FROM blocks WHERE uid = ?`, id)
	if err != nil {
		return fmt.Errorf("outline: delete block: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("outline: block %s: %w", id, apperr.ErrNotFound)
	}
	return nil
}

func constraintErr(err error) error {
	var se sqlite3.Error
	if errors.As(err, &se) && se.Code == sqlite3.ErrConstraint {
		switch se.ExtendedCode {
		case sqlite3.ErrConstraintPrimaryKey:
			return fmt.Errorf("outline: insert block: %w", apperr.ErrAlreadyExists)
		case sqlite3.ErrConstraintUnique:
			return fmt.Errorf("outline: sibling order taken: %w", apperr.ErrConflict)
		}
	}
	return fmt.Errorf("outline: insert block: %w", err)
}
