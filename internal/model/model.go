package model

import "time"

// Roles a user can hold.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// Positions within the organization.
var Positions = []string{
	"Ketua",
	"Wakil Ketua",
	"Kepala Divisi Mekanik",
	"Kepala Divisi Kontrol",
	"Kru Mekanik",
	"Kru Kontrol",
	"Official",
}

// Divisions a meeting or schedule can belong to.
var Divisions = []string{"Kontrol", "Mekanik"}

// Meeting title categories.
var MeetingTitles = []string{"Bersih-bersih", "Ngoprek", "Progres report", "Ideation"}

// DefaultMeetingTitle is used when the materializer creates a meeting.
const DefaultMeetingTitle = "Ngoprek"

// User is a registered member of the organization.
type User struct {
	ID                        string     `json:"id"`
	Name                      string     `json:"name"`
	Email                     string     `json:"email"`
	PasswordHash              string     `json:"-"`
	Role                      string     `json:"role"`
	Position                  string     `json:"position"`
	Division                  string     `json:"division,omitempty"`
	Generation                int        `json:"generation"`
	AvatarURL                 string     `json:"avatar_url,omitempty"`
	DateOfBirth               *time.Time `json:"date_of_birth,omitempty"`
	TotalMeetingsAttended     int        `json:"total_meetings_attended"`
	TotalLateMeetingsAttended int        `json:"total_late_meetings_attended"`
	CreatedAt                 time.Time  `json:"created_at"`
}

// Meeting is a single gathering members can attend. Dates are unique: no two
// meetings share an exact timestamp.
type Meeting struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Division  string    `json:"division"`
	Date      time.Time `json:"date"`
	CreatedAt time.Time `json:"created_at"`
}

// AttendanceRecord links one user to one meeting. At most one record exists
// per (user, meeting) pair. LateTime is signed: positive means the user
// arrived after the scheduled start.
type AttendanceRecord struct {
	ID         string        `json:"id"`
	UserID     string        `json:"user_id"`
	MeetingID  string        `json:"meeting_id"`
	LateTime   time.Duration `json:"late_time"`
	AttendedAt time.Time     `json:"attended_at"`
	Meeting    *Meeting      `json:"meeting,omitempty"`
}

// Schedule defines a recurring (or one-shot) meeting slot. Hour and minute
// are wall-clock values in the configured schedule timezone.
type Schedule struct {
	ID         string     `json:"id"`
	Division   string     `json:"division"`
	Day        string     `json:"day"`
	Hour       int        `json:"hour"`
	Minute     int        `json:"minute"`
	IsJustOnce bool       `json:"is_just_once"`
	DateEnd    *time.Time `json:"date_end,omitempty"`
	Active     bool       `json:"active"`
	CreatedAt  time.Time  `json:"created_at"`
}

// ValidTitle reports whether t is one of the meeting title categories.
func ValidTitle(t string) bool {
	for _, v := range MeetingTitles {
		if v == t {
			return true
		}
	}
	return false
}

// ValidPosition reports whether p is a known organizational position.
func ValidPosition(p string) bool {
	for _, v := range Positions {
		if v == p {
			return true
		}
	}
	return false
}
