package database

import (
	"context"

	"github.com/google/uuid"
)

const getStaff = `SELECT id, full_name, role, pin_hash, is_active FROM staff WHERE id = $1 AND is_active = true`

func (q *Queries) GetStaff(ctx context.Context, id uuid.UUID) (Staff, error) {
	var s Staff
	err := q.db.QueryRow(ctx, getStaff, id).Scan(&s.ID, &s.FullName, &s.Role, &s.PinHash, &s.IsActive)
	return s, err
}

const listActiveManagers = `SELECT id, full_name, role, pin_hash, is_active FROM staff
WHERE role = 'MANAGER' AND is_active = true
ORDER BY full_name`

func (q *Queries) ListActiveManagers(ctx context.Context) ([]Staff, error) {
	rows, err := q.db.Query(ctx, listActiveManagers)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Staff
	for rows.Next() {
		var s Staff
		if err := rows.Scan(&s.ID, &s.FullName, &s.Role, &s.PinHash, &s.IsActive); err != nil {
			return nil, err
		}
		items = append(items, s)
	}
	return items, rows.Err()
}

type CreateStaffParams struct {
	FullName string
	Role     string
	PinHash  string
}

const createStaff = `INSERT INTO staff (full_name, role, pin_hash) VALUES ($1, $2, $3)
RETURNING id, full_name, role, pin_hash, is_active`

func (q *Queries) CreateStaff(ctx context.Context, arg CreateStaffParams) (Staff, error) {
	var s Staff
	err := q.db.QueryRow(ctx, createStaff, arg.FullName, arg.Role, arg.PinHash).
		Scan(&s.ID, &s.FullName, &s.Role, &s.PinHash, &s.IsActive)
	return s, err
}

const listStaff = `SELECT id, full_name, role, pin_hash, is_active FROM staff
WHERE is_active = true
ORDER BY role, full_name`

func (q *Queries) ListStaff(ctx context.Context) ([]Staff, error) {
	rows, err := q.db.Query(ctx, listStaff)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Staff
	for rows.Next() {
		var s Staff
		if err := rows.Scan(&s.ID, &s.FullName, &s.Role, &s.PinHash, &s.IsActive); err != nil {
			return nil, err
		}
		items = append(items, s)
	}
	return items, rows.Err()
}

// UpdateStaffParams keeps the stored hash when PinHash is empty.
type UpdateStaffParams struct {
	ID       uuid.UUID
	FullName string
	Role     string
	PinHash  string
}

const updateStaff = `UPDATE staff
SET full_name = $2, role = $3, pin_hash = COALESCE(NULLIF($4, ''), pin_hash)
WHERE id = $1 AND is_active = true
RETURNING id, full_name, role, pin_hash, is_active`

func (q *Queries) UpdateStaff(ctx context.Context, arg UpdateStaffParams) (Staff, error) {
	var s Staff
	err := q.db.QueryRow(ctx, updateStaff, arg.ID, arg.FullName, arg.Role, arg.PinHash).
		Scan(&s.ID, &s.FullName, &s.Role, &s.PinHash, &s.IsActive)
	return s, err
}

const deactivateStaff = `UPDATE staff SET is_active = false WHERE id = $1 AND is_active = true RETURNING id`

func (q *Queries) DeactivateStaff(ctx context.Context, id uuid.UUID) (uuid.UUID, error) {
	var out uuid.UUID
	err := q.db.QueryRow(ctx, deactivateStaff, id).Scan(&out)
	return out, err
}
