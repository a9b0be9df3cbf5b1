package entity

import "time"

type UserRole string

const (
	RoleCustomer UserRole = "customer"
	RoleAdmin    UserRole = "admin"
)

type User struct {
	Timestamps
	ID           int64      `db:"id"`
	Username     string     `db:"username"`
	PasswordHash string     `db:"password"`
	Role         UserRole   `db:"role"`
	IsActive     bool       `db:"is_active"`
	DeletedAt    *time.Time `db:"deleted_at"`
}
