package entity

import "github.com/google/uuid"

type Room struct {
	Timestamps
	ID          uuid.UUID `db:"id"`
	Name        string    `db:"name"`
	Type        string    `db:"type"`
	Capacity    int       `db:"capacity"`
	Maintenance bool      `db:"maintenance"`
}
