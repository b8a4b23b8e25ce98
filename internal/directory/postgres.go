package directory

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
)

// PostgresDirectory reads membership and usernames from the application's
// PostgreSQL database. It never writes; user and membership rows are owned
// by the main application.
type PostgresDirectory struct {
	db *sql.DB
}

// NewPostgresDirectory creates a directory backed by the given database
// handle.
func NewPostgresDirectory(db *sql.DB) *PostgresDirectory {
	return &PostgresDirectory{db: db}
}

// RoomExists reports whether the conversation has any membership rows. A
// conversation with no members is indistinguishable from a deleted one here,
// which matches how the typing endpoints treat it.
func (d *PostgresDirectory) RoomExists(ctx context.Context, roomID int64) (bool, error) {
	var exists bool
	err := d.db.QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM conversation_members
			WHERE conversation_id = $1
		)`, roomID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("directory: room lookup: %w", err)
	}
	return exists, nil
}

// IsMember reports whether the user is a member of the conversation.
func (d *PostgresDirectory) IsMember(ctx context.Context, roomID int64, userID string) (bool, error) {
	uid, err := strconv.ParseInt(userID, 10, 64)
	if err != nil {
		return false, nil // non-numeric IDs cannot exist in this schema
	}

	var exists bool
	err = d.db.QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM conversation_members
			WHERE conversation_id = $1 AND user_id = $2
		)`, roomID, uid).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("directory: membership check: %w", err)
	}
	return exists, nil
}

// Members returns all users in the conversation, sorted by username.
func (d *PostgresDirectory) Members(ctx context.Context, roomID int64) ([]User, error) {
	rows, err := d.db.QueryContext(ctx, `
		SELECT u.id, u.username
		FROM conversation_members m
		JOIN users u ON u.id = m.user_id
		WHERE m.conversation_id = $1
		ORDER BY u.username`, roomID)
	if err != nil {
		return nil, fmt.Errorf("directory: members query: %w", err)
	}
	defer rows.Close()

	users := []User{}
	for rows.Next() {
		var id int64
		var username string
		if err := rows.Scan(&id, &username); err != nil {
			return nil, fmt.Errorf("directory: members scan: %w", err)
		}
		users = append(users, User{ID: strconv.FormatInt(id, 10), Username: username})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("directory: members rows: %w", err)
	}
	return users, nil
}

// UserByName resolves a username. Returns nil when no such user exists.
func (d *PostgresDirectory) UserByName(ctx context.Context, username string) (*User, error) {
	var id int64
	err := d.db.QueryRowContext(ctx,
		`SELECT id FROM users WHERE username = $1`, username).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("directory: user lookup: %w", err)
	}
	return &User{ID: strconv.FormatInt(id, 10), Username: username}, nil
}
