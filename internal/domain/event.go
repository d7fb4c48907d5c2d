package domain

// PhotoSize is one resolution of a photo as delivered by the bot transport.
type PhotoSize struct {
	FileID   string
	Width    int
	Height   int
	FileSize int
}

// PhotoEvent is an inbound message carrying a photo attachment.
// Photos is ordered smallest to largest, as Telegram sends them.
type PhotoEvent struct {
	ChatID       int64
	MessageID    int
	LanguageCode string
	Photos       []PhotoSize
}

// LargestPhoto returns the last (highest resolution) entry of photos.
func LargestPhoto(photos []PhotoSize) (PhotoSize, bool) {
	if len(photos) == 0 {
		return PhotoSize{}, false
	}
	return photos[len(photos)-1], true
}

// TextEvent is an inbound plain-text message that is treated as a product query.
type TextEvent struct {
	ChatID       int64
	MessageID    int
	LanguageCode string
	Text         string
}
