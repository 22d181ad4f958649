package domain

// Rating is a 1..5 score one party of a completed order gives the other.
// A user rates each order at most once.
type Rating struct {
	OrderID  int64
	RaterID  int64
	TargetID int64
	Score    int
}
