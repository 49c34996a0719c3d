package client

import (
	"errors"
	"fmt"

	"github.com/dkeye/Classroom/internal/domain"
	"github.com/dkeye/Classroom/internal/protocol"
)

var (
	ErrLoginPending   = errors.New("login already in progress")
	ErrSessionActive  = errors.New("session already active")
	ErrNoSession      = errors.New("no active session")
	ErrConnectionLost = errors.New("connection lost")
	ErrLoggedOut      = errors.New("logged out")
	ErrAckTimeout     = errors.New("no acknowledgement in time")
	ErrQueueFull      = errors.New("send queue full")
)

// ServerError is an error frame answering one of our requests.
type ServerError struct {
	Code    string
	Message string
}

func (e *ServerError) Error() string {
	return fmt.Sprintf("server: %s: %s", e.Code, e.Message)
}

func serverError(f protocol.Error) *ServerError {
	return &ServerError{Code: f.Code, Message: f.Message}
}

func joinReason(code string) domain.JoinReason {
	switch code {
	case protocol.CodeRoomFull:
		return domain.JoinRoomFull
	case protocol.CodeRoomNotFound:
		return domain.JoinRoomNotFound
	case protocol.CodeHostTaken:
		return domain.JoinHostTaken
	default:
		return domain.JoinInvalid
	}
}

// deliveryReason names why a send failed, for DeliveryError.Reason.
func deliveryReason(err error) string {
	var se *ServerError
	switch {
	case errors.As(err, &se):
		return se.Code
	case errors.Is(err, ErrLoggedOut):
		return "logout"
	case errors.Is(err, ErrAckTimeout):
		return "timeout"
	case errors.Is(err, ErrQueueFull):
		return "queue_full"
	case errors.Is(err, ErrNoSession):
		return "no_session"
	default:
		return "connection_lost"
	}
}
