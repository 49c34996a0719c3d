package domain

import "fmt"

// AuthError reports a rejected or impossible login.
type AuthError struct {
	Reason string
	Err    error
}

func (e *AuthError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("auth: %s: %v", e.Reason, e.Err)
	}
	return "auth: " + e.Reason
}

func (e *AuthError) Unwrap() error { return e.Err }

type JoinReason string

const (
	JoinRoomFull     JoinReason = "room_full"
	JoinRoomNotFound JoinReason = "room_not_found"
	JoinHostTaken    JoinReason = "host_taken"
	JoinNetwork      JoinReason = "network"
	JoinInvalid      JoinReason = "invalid"
)

// JoinError reports a failed room join. The session stays valid.
type JoinError struct {
	Room   RoomID
	Reason JoinReason
	Err    error
}

func (e *JoinError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("join %q: %s: %v", e.Room, e.Reason, e.Err)
	}
	return fmt.Sprintf("join %q: %s", e.Room, e.Reason)
}

func (e *JoinError) Unwrap() error { return e.Err }

// DeliveryError rejects a chat send. There is no automatic resend.
type DeliveryError struct {
	Reason string
	Err    error
}

func (e *DeliveryError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("delivery: %s: %v", e.Reason, e.Err)
	}
	return "delivery: " + e.Reason
}

func (e *DeliveryError) Unwrap() error { return e.Err }

// DeviceError reports that a capture device is unavailable.
type DeviceError struct {
	Device string
	Err    error
}

func (e *DeviceError) Error() string {
	return fmt.Sprintf("device %s: %v", e.Device, e.Err)
}

func (e *DeviceError) Unwrap() error { return e.Err }

// ProvisionError reports a whiteboard provisioning failure.
// Code is the API status code, zero when the request never completed.
type ProvisionError struct {
	Code int
	Err  error
}

func (e *ProvisionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("provision whiteboard (code %d): %v", e.Code, e.Err)
	}
	return fmt.Sprintf("provision whiteboard: unexpected code %d", e.Code)
}

func (e *ProvisionError) Unwrap() error { return e.Err }
