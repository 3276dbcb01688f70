package core

// MonthStart returns the first day of d's month.
func (d Date) MonthStart() Date {
	return NewDate(d.Year(), int(d.Month()), 1)
}

// MonthEnd returns the last day of d's month.
func (d Date) MonthEnd() Date {
	return Date{Time: d.MonthStart().AddDate(0, 1, -1)}
}

// PreviousMonth returns the first day of the month before d's month.
// January rolls back to December of the previous year.
func (d Date) PreviousMonth() Date {
	return Date{Time: d.MonthStart().AddDate(0, -1, 0)}
}

// SameMonth reports whether d and o fall in the same calendar month.
func (d Date) SameMonth(o Date) bool {
	return d.Year() == o.Year() && d.Month() == o.Month()
}

// MonthLabel renders d's month as "Jan 2006".
func (d Date) MonthLabel() string {
	return d.Format("Jan 2006")
}
