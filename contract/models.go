package contract

// User is a profile document in the users collection, keyed by UID.
type User struct {
	UID         string `json:"uid"`
	Email       string `json:"email"`
	DisplayName string `json:"displayName"`
	PhotoURL    string `json:"photoUrl,omitempty"`
	AboutMe     string `json:"aboutMe"`
}

// Room is a two-party conversation. ID is the store key of the room document,
// which is not required to look like RoomName.
type Room struct {
	ID           string    `json:"id"`
	RoomName     string    `json:"roomName"`
	Participants []string  `json:"participants"`
	Messages     []Message `json:"messages"`
}

// Message is a ledger entry. Timestamp is always an ISO-8601 UTC string.
type Message struct {
	ID        string `json:"id"`
	Sender    string `json:"sender"`
	Text      string `json:"text"`
	Timestamp string `json:"timestamp"`
	HTML      string `json:"html,omitempty"`
}

// ChatPreview summarises a room by its most recent message.
type ChatPreview struct {
	RoomID       string   `json:"roomId"`
	RoomName     string   `json:"roomName"`
	Participants []string `json:"participants,omitempty"`
	LastMessage  *Message `json:"lastMessage"`
}

// ChatRoomPreview is a ChatPreview joined with the peer's profile.
type ChatRoomPreview struct {
	Friend      User     `json:"friend"`
	LastMessage *Message `json:"lastMessage"`
	RoomID      string   `json:"roomId"`
	RoomName    string   `json:"roomName"`
}
