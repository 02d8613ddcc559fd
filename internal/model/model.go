package model

// Selected is the tri-state registration marker. "none" is equivalent to the
// absence of a registration record when reading.
type Selected string

const (
	SelectedNone  Selected = "none"
	SelectedBlack Selected = "black"
	SelectedGreen Selected = "green"
)

func (s Selected) Valid() bool {
	switch s {
	case SelectedNone, SelectedBlack, SelectedGreen:
		return true
	}
	return false
}

// Registered reports whether the marker counts as a registration at all.
func (s Selected) Registered() bool {
	return s == SelectedBlack || s == SelectedGreen
}

const (
	GenderMale   = "male"
	GenderFemale = "female"
)

type User struct {
	ID        int    `json:"id"`
	Name      string `json:"name"`
	Gender    string `json:"gender"`
	AvatarURL string `json:"avatar_url,omitempty"`
}

// Event is a scheduled race. Date is a "DD.MM" short form; the year is
// implicit, the field only drives in-season ordering.
type Event struct {
	ID       int    `json:"id"`
	Name     string `json:"name"`
	Date     string `json:"date"`
	Location string `json:"location,omitempty"`
	URL      string `json:"url,omitempty"`
	LogoURL  string `json:"logo_url,omitempty"`
}

// Registration joins a user to an event. At most one record exists per
// (UserID, EventID) pair.
type Registration struct {
	ID       int      `json:"id"`
	UserID   int      `json:"user_id"`
	EventID  int      `json:"event_id"`
	Selected Selected `json:"selected"`
}

// UserDraft carries the mutable user fields for create/update. An empty
// AvatarURL on update leaves the stored avatar untouched; only the dedicated
// avatar operation replaces it.
type UserDraft struct {
	Name      string
	Gender    string
	AvatarURL string
}

// EventDraft carries the mutable event fields. The logo is deliberately
// absent: it changes only through the dedicated logo operation.
type EventDraft struct {
	Name     string
	Date     string
	Location string
	URL      string
}
