package errors

import "fmt"

var (
	ErrWorkerPanic     = fmt.Errorf("worker panic")
	ErrNoRoomSelected  = fmt.Errorf("no room selected")
	ErrServerRejected  = fmt.Errorf("server rejected request")
	ErrUploadFailed    = fmt.Errorf("file upload failed")
	ErrNoJoinEndpoint  = fmt.Errorf("join endpoint not available")
	ErrSocketClosed    = fmt.Errorf("socket closed")
	ErrInvalidCommand  = fmt.Errorf("invalid command")
	ErrFetchInProgress = fmt.Errorf("a fetch is already in progress")
)
