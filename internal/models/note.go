package models

import "time"

// Anonymous stands in for the author until the service has real identities.
const Anonymous = "anonymous"

type Note struct {
	ID        int       `db:"id"`
	Content   string    `db:"content"`
	Author    string    `db:"author"`
	CreatedAt time.Time `db:"created_at"`
}
