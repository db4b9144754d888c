package domain

// ActiveTimes maps an identifier to the number of seconds it has been active
type ActiveTimes map[string]int64

// ActivityRequest is a client-reported activity ping
type ActivityRequest struct {
	ID    string `json:"id"`
	Reset bool   `json:"reset"`
}
