package notify

import (
	"context"
	"errors"
)

var (
	// ErrObserverUnreachable means the observer cannot receive direct messages.
	ErrObserverUnreachable = errors.New("observer unreachable")
	// ErrForbidden means the bot may not post to the channel.
	ErrForbidden = errors.New("forbidden")
	// ErrPayloadTooLarge means the platform rejected the message size.
	ErrPayloadTooLarge = errors.New("payload too large")
	// ErrInvalidNotification means the notification itself is malformed.
	ErrInvalidNotification = errors.New("invalid notification")
)

// IsPermanent reports whether retrying the delivery can never succeed.
func IsPermanent(err error) bool {
	return errors.Is(err, ErrInvalidNotification) ||
		errors.Is(err, ErrObserverUnreachable) ||
		errors.Is(err, ErrForbidden) ||
		errors.Is(err, ErrPayloadTooLarge)
}

// Sink delivers one payload to one destination.
type Sink interface {
	DeliverDirect(ctx context.Context, observerID string, payload Payload) error
	DeliverToChannel(ctx context.Context, channelID string, payload Payload) error
}
