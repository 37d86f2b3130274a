package domain

import "time"

// User is an account that either books appointments or receives them when Provider is set.
type User struct {
	ID        int64
	Name      string
	Email     string
	Provider  bool
	Avatar    *File
	CreatedAt time.Time
	UpdatedAt time.Time
}

// File is an uploaded asset referenced by users, such as an avatar.
type File struct {
	ID   int64
	Name string
	Path string
}
