package models

import "time"

// Counselor availability states. Offline counselors are managed by the staff
// dashboards; the engine never selects or transitions them.
const (
	CounselorStatusAvailable = "available"
	CounselorStatusBusy      = "busy"
)

// Counselor is a staff member with bounded assignment capacity. The engine
// only mutates CurrentLoad, the derived Status, and LastActive; everything
// else is maintained by the admin side of the platform.
type Counselor struct {
	ID          int64     `json:"id"`
	UserID      string    `json:"user_id"`
	Name        string    `json:"name"`
	Status      string    `json:"status"`
	Specialties []string  `json:"specialties"`
	CurrentLoad int       `json:"current_load"`
	MaxLoad     int       `json:"max_load"`
	LastActive  time.Time `json:"last_active"`
}

// HasCapacity reports whether the counselor can take at least one more unit
// of load. Checked independently of Status, which may be stale.
func (c *Counselor) HasCapacity() bool {
	return c.CurrentLoad < c.MaxLoad
}

// DeriveStatus returns the availability implied by the current load:
// busy once CurrentLoad reaches MaxLoad, available otherwise.
func (c *Counselor) DeriveStatus() string {
	if c.CurrentLoad >= c.MaxLoad {
		return CounselorStatusBusy
	}
	return CounselorStatusAvailable
}
