package domain

import "time"

// Customer owns feedback items. Only the fields replies need are modelled here.
type Customer struct {
	ID        string
	Name      string
	Email     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Feedback is a customer message that replies answer.
type Feedback struct {
	ID           string
	CustomerID   string
	CustomerName string
	Content      string
	AssignedTo   *string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
