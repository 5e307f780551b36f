package client

import "fmt"

// Gym is a climbing gym with its walls and boulders.
type Gym struct {
	ID       int       `json:"id"`
	Name     string    `json:"name"`
	Walls    []Wall    `json:"walls,omitempty"`
	Boulders []Boulder `json:"boulders,omitempty"`
}

// Wall is a zone of a gym that boulders are set on.
type Wall struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// Boulder is a single climbing route.
type Boulder struct {
	ID             int      `json:"id"`
	Wall           int      `json:"wall"`
	Setter         *int     `json:"setter"`
	SetterGrade    string   `json:"setter_grade"`
	ConsensusGrade string   `json:"concensus_grade"`
	Color          string   `json:"color"`
	Difficulty     string   `json:"difficulty"`
	ClimbingStyle  string   `json:"climbing_style"`
	DateSet        string   `json:"date_set"`
	IsActive       bool     `json:"is_active"`
	NumAscents     int      `json:"num_ascents"`
	UserHasSent    bool     `json:"user_has_sent"`
	Ascents        []Ascent `json:"ascents,omitempty"`
}

// Grade returns the consensus grade, falling back to the setter's grade.
func (b Boulder) Grade() string {
	if b.ConsensusGrade != "" {
		return b.ConsensusGrade
	}
	return b.SetterGrade
}

// AscentType is how a boulder was climbed.
type AscentType string

const (
	Flash AscentType = "flash"
	Send  AscentType = "send"
)

// ParseAscentType validates s as an AscentType.
func ParseAscentType(s string) (AscentType, error) {
	switch AscentType(s) {
	case Flash, Send:
		return AscentType(s), nil
	}
	return "", fmt.Errorf("invalid ascent type %q (must be one of: flash, send)", s)
}

// Ascent is one logged climb of a boulder.
type Ascent struct {
	ID          int        `json:"id"`
	Climber     int        `json:"climber"`
	Boulder     int        `json:"boulder"`
	AscentType  AscentType `json:"ascent_type"`
	DateClimbed string     `json:"date_climbed"`
	Points      int        `json:"points"`
}

// AscentResult is the API answer to logging an ascent.
type AscentResult struct {
	Ascent  Ascent  `json:"ascent"`
	Boulder Boulder `json:"boulder"`
}

// LeaderboardEntry is one ranked climber.
type LeaderboardEntry struct {
	ID          int    `json:"id"`
	Username    string `json:"username"`
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	TotalPoints int    `json:"total_points"`
	Rank        int    `json:"rank"`
}

// ProfileAscent is an ascent as listed on the user's profile.
type ProfileAscent struct {
	ID           int        `json:"id"`
	BoulderID    int        `json:"boulder_id"`
	BoulderGrade string     `json:"boulder_grade"`
	BoulderColor string     `json:"boulder_color"`
	WallName     string     `json:"wall_name"`
	GymName      string     `json:"gym_name"`
	AscentType   AscentType `json:"ascent_type"`
	DateClimbed  string     `json:"date_climbed"`
	Points       int        `json:"points"`
}

// ProfileStats summarizes the user's ascents.
type ProfileStats struct {
	TotalAscents int `json:"total_ascents"`
	TotalPoints  int `json:"total_points"`
	FlashCount   int `json:"flash_count"`
	SendCount    int `json:"send_count"`
}

// UserProfile is the signed-in user's profile.
type UserProfile struct {
	ID        int             `json:"id"`
	Username  string          `json:"username"`
	Email     string          `json:"email"`
	FirstName string          `json:"first_name"`
	LastName  string          `json:"last_name"`
	Ascents   []ProfileAscent `json:"ascents"`
	Stats     ProfileStats    `json:"stats"`
}
