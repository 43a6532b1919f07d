package transport

import "github.com/google/uuid"

// CreateThreadRequest opens a conversation on an intervention.
type CreateThreadRequest struct {
	Title        string      `json:"title" validate:"max=200"`
	Participants []uuid.UUID `json:"participants" validate:"max=50"`
}

// AddParticipantRequest invites a user into a thread.
type AddParticipantRequest struct {
	UserID uuid.UUID `json:"userId" validate:"required"`
}

// PostMessageRequest is a new message in a thread.
type PostMessageRequest struct {
	Content string `json:"content" validate:"required,max=10000"`
}

// ListMessagesRequest holds paging for the messages endpoint.
type ListMessagesRequest struct {
	Limit  int `form:"limit" validate:"min=0,max=200"`
	Offset int `form:"offset" validate:"min=0"`
}
