package domain

// CreateRoomCommand requests a new room on the server. No optimistic room
// insertion happens: the directory refreshes after creation instead.
type CreateRoomCommand struct {
	Name      string   `validate:"required,min=1,max=120"`
	Type      RoomType `validate:"required,oneof=direct group support"`
	MemberIDs []string `validate:"required,min=1,dive,required"`
}

// SendCommand is a user-initiated message send. File, when present, is
// uploaded first; its attachment fields end up on the posted message.
type SendCommand struct {
	Content string
	Type    MessageType
	File    *FileUpload
	ReplyTo string
}

// FileUpload is an in-memory file to push through the upload endpoint before
// the message itself is posted.
type FileUpload struct {
	Name string
	Data []byte
}

// Attachment is the upload endpoint's answer, denormalized onto the message.
type Attachment struct {
	URL  string
	Name string
	Size int64
}

// PostMessageRequest is the wire-level message post, after any upload
// round-trip resolved the attachment fields.
type PostMessageRequest struct {
	RoomID   string
	Content  string
	Type     MessageType
	FileURL  string
	FileName string
	FileSize int64
	ReplyTo  string
}

// Pagination is the server's paging metadata for message history.
type Pagination struct {
	Page       int
	TotalPages int
}

// HasMore reports whether older pages remain past the current one.
func (p Pagination) HasMore() bool { return p.Page < p.TotalPages }
