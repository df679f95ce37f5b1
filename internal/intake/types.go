package intake

import "time"

// SessionStatus is the lifecycle state of a patient session. Sessions only
// ever move active -> completed.
type SessionStatus string

const (
	StatusActive    SessionStatus = "active"
	StatusCompleted SessionStatus = "completed"
)

// Message roles as stored in the transcript.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Session is one patient conversation, owned by a clinic via its code.
type Session struct {
	ID               int64         `json:"id"`
	ClinicCode       string        `json:"clinic_code"`
	Status           SessionStatus `json:"status"`
	ProviderThreadID *string       `json:"provider_thread_id,omitempty"`
	CreatedAt        time.Time     `json:"created_at"`
	CompletedAt      *time.Time    `json:"completed_at,omitempty"`
}

// Message is one turn in a session transcript. Append-only.
type Message struct {
	ID        int64     `json:"id"`
	SessionID int64     `json:"session_id"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// Anamnesis is the structured nine-field medical history extracted from a
// completed session. Field names follow the Norwegian clinical schema.
type Anamnesis struct {
	ID                 int64     `json:"id"`
	SessionID          int64     `json:"session_id"`
	Hovedplage         string    `json:"hovedplage"`
	TidligereSykdommer string    `json:"tidligereSykdommer"`
	Medisinering       string    `json:"medisinering"`
	Allergier          string    `json:"allergier"`
	Familiehistorie    string    `json:"familiehistorie"`
	SosialLivsstil     string    `json:"sosialLivsstil"`
	ROS                string    `json:"ros"`
	PasientMaal        string    `json:"pasientMaal"`
	FriOppsummering    string    `json:"friOppsummering"`
	CreatedAt          time.Time `json:"created_at"`
}

// AnamnesisFields is the provider-facing nine-field payload, before it is
// attached to a session.
type AnamnesisFields struct {
	Hovedplage         string `json:"hovedplage"`
	TidligereSykdommer string `json:"tidligereSykdommer"`
	Medisinering       string `json:"medisinering"`
	Allergier          string `json:"allergier"`
	Familiehistorie    string `json:"familiehistorie"`
	SosialLivsstil     string `json:"sosialLivsstil"`
	ROS                string `json:"ros"`
	PasientMaal        string `json:"pasientMaal"`
	FriOppsummering    string `json:"friOppsummering"`
}

// Rating is the patient's satisfaction feedback for a completed session.
type Rating struct {
	ID        int64     `json:"id"`
	SessionID int64     `json:"session_id"`
	Score     int       `json:"score"`
	Comment   *string   `json:"comment,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Doctor is referenced by the engine only for clinic-code validation.
// Credential handling lives in the auth package.
type Doctor struct {
	ID         int64     `json:"id"`
	Email      string    `json:"email"`
	ClinicCode string    `json:"clinic_code"`
	CreatedAt  time.Time `json:"created_at"`
}
