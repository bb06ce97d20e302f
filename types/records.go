package types

// Appointment is one booked visit.
// Date is "dd-mm-yyyy" and Time is "hh:mm AM/PM"; both are stored verbatim.
type Appointment struct {
	Name string `json:"name"`
	Date string `json:"date"`
	Time string `json:"time"`
}

// Account is a client's running payment record.
type Account struct {
	Name        string  `json:"name"`
	TotalAmount float64 `json:"total_amount"`
	TotalPaid   float64 `json:"total_paid"`
}

// Owed is the outstanding balance, never negative.
func (a Account) Owed() float64 {
	owed := a.TotalAmount - a.TotalPaid
	if owed < 0 {
		return 0
	}
	return owed
}

// ClinicStats aggregates all accounts for the stats view.
type ClinicStats struct {
	Clients     int     `json:"clients"`
	TotalPaid   float64 `json:"total_paid"`
	TotalAmount float64 `json:"total_amount"`
	TotalOwed   float64 `json:"total_owed"`
}
