package contract

// RegisterRequest carries the profile fields a user picks at sign up. The
// email always comes from the verified ID token.
type RegisterRequest struct {
	DisplayName string `json:"displayName"`
	PhotoURL    string `json:"photoUrl"`
}

type UpdateUserRequest struct {
	DisplayName *string `json:"displayName"`
	AboutMe     *string `json:"aboutMe"`
}

type PhotoResponse struct {
	PhotoURL string `json:"photoUrl"`
}

type FriendRequest struct {
	FriendUID string `json:"friendUid"`
}

type RemoveFriendResponse struct {
	FriendUID string `json:"friendUid"`
}

type ResolveRoomRequest struct {
	FriendUID string `json:"friendUid"`
}

type SendMessageRequest struct {
	Text string `json:"text"`
}

type SendMessageResponse struct {
	ID string `json:"id"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}
