package event

import "time"

// PhoneVerifiedDestination is the default topic; deployments may override it
// with modules.phoneotp.events_topic.
const PhoneVerifiedDestination string = "phone_verified"

type PhoneVerifiedMessage struct {
	Phone       string    `json:"phone"`
	ChallengeID int64     `json:"challenge_id"`
	VerifiedAt  time.Time `json:"verified_at"`
}
