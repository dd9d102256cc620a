package domain

import "time"

type Customer struct {
	ID        int64
	Name      string
	Surname   string
	Email     string
	Address   string
	City      string
	State     string
	ZipCode   string
	Country   string
	Phone     string
	CreatedAt time.Time
	UpdatedAt time.Time
}
