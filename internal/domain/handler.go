package domain

import "context"

// EventHandler receives transport-neutral bot events.
type EventHandler interface {
	HandleStart(ctx context.Context, chatID int64, languageCode string)
	HandlePhoto(ctx context.Context, ev PhotoEvent)
	HandleText(ctx context.Context, ev TextEvent)
}

// Fetcher downloads the raw bytes of the largest photo size.
type Fetcher interface {
	Fetch(ctx context.Context, photos []PhotoSize) ([]byte, error)
}

// Normalizer bounds an image's size and re-encodes it for upload.
type Normalizer interface {
	Normalize(raw []byte) ([]byte, error)
}

// Identifier turns a normalized image into a short product label.
type Identifier interface {
	Identify(ctx context.Context, jpeg []byte) (string, error)
}

// Replier sends messages back to a chat.
type Replier interface {
	Reply(ctx context.Context, chatID int64, text string) error
	ReplyWithLink(ctx context.Context, chatID int64, text, buttonText, url string) error
}
