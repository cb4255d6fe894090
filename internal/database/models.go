package database

import "time"

// Timestamps are persisted as UTC RFC3339 text. The retention queries compare
// them lexicographically, which is safe for this format.
func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

type Participant struct {
	ID         int64
	Name       string
	SelectedAt string
}

type Response struct {
	ID            int64
	ParticipantID int64
	PeopleCount   int
	FoodText      string
	CreatedAt     string
}

// ResponseWithParticipant is the joined view used by the survey and admin pages.
type ResponseWithParticipant struct {
	Response
	ParticipantName string
}

type GuestListEntry struct {
	ID        int64
	Name      string
	CreatedAt string
}

type FoodEntry struct {
	ID        int64
	FoodText  string
	CreatedAt string
}

type ResponseToken struct {
	ResponseID int64
	Token      string
	CreatedAt  string
}

type GateQuestion struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

type Settings struct {
	SurveyTitle       string
	GateQuestionCount int
	GateQuestions     []GateQuestion
	HintsContent      string
	FooterContent     string
}

type LoginAttempt struct {
	IPAddress     string
	AttemptCount  int
	LastAttemptAt string
}

type PageVisit struct {
	ID        int64
	IPAddress string
	PagePath  string
	VisitedAt string
}

// VisitCount aggregates page visits per client IP for the admin activity view.
type VisitCount struct {
	IPAddress string
	Visits    int
	LastVisit string
}
