package domain

// DefaultMaxMembers is the classroom size used when nothing is configured.
const DefaultMaxMembers = 5

type RoomID string

type Room struct {
	ID         RoomID                 `json:"id"`
	Members    []Participant          `json:"members"`
	Whiteboard *WhiteboardCredentials `json:"whiteboard,omitempty"`
}

// Host returns the member holding RoleHost, if any.
func (r Room) Host() (Participant, bool) {
	for _, m := range r.Members {
		if m.Role == RoleHost {
			return m, true
		}
	}
	return Participant{}, false
}

// WhiteboardCredentials are handed out by the provisioning API and passed
// through untouched to the whiteboard SDK.
type WhiteboardCredentials struct {
	UUID      string `json:"uuid"`
	RoomToken string `json:"roomToken"`
}

func (c WhiteboardCredentials) Valid() bool {
	return c.UUID != "" && c.RoomToken != ""
}

// MediaSurface binds a participant's stream to a named render target.
type MediaSurface struct {
	ParticipantID UserID
	TargetID      string
}
