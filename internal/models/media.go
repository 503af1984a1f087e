package models

import "time"

type Media struct {
	ID         int       `db:"id"`
	Title      string    `db:"title"`       // имя файла после очистки
	URL        string    `db:"url"`         // путь, по которому клиент забирает файл
	UploadedBy string    `db:"uploaded_by"` // пока всегда заглушка
	CreatedAt  time.Time `db:"created_at"`
}
