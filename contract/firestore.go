package contract

// Firestore collection names.
const (
	UsersCollection     = "users"
	FriendsCollection   = "friends"
	ChatRoomsCollection = "chatRooms"
	MessagesCollection  = "messages"
)

// Firestore field names shared by readers and writers.
const (
	FieldUID          = "uid"
	FieldEmail        = "email"
	FieldDisplayName  = "displayName"
	FieldPhotoURL     = "photoUrl"
	FieldAboutMe      = "aboutMe"
	FieldRoomName     = "roomName"
	FieldParticipants = "participants"
	FieldSender       = "sender"
	FieldText         = "text"
	FieldTimestamp    = "timestamp"
	FieldAddedAt      = "addedAt"
)
