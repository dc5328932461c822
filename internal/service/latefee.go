package service

import "time"

// DefaultLateFeePerDay is the charge, in minor units of the wallet currency,
// for each started day past the due date.
const DefaultLateFeePerDay = 10

// LateFee computes the penalty for returning at now against dueDate. Returns
// on or before the due date cost nothing; any fraction of a day late counts as
// a whole day.
func LateFee(now, dueDate time.Time, perDay int64) int64 {
	if !now.After(dueDate) {
		return 0
	}
	late := now.Sub(dueDate)
	daysLate := int64(late / (24 * time.Hour))
	if late%(24*time.Hour) > 0 {
		daysLate++
	}
	return daysLate * perDay
}
