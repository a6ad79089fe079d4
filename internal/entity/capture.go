package entity

import "time"

// ImageFormat is the raster encoding of a capture.
type ImageFormat string

const (
	FormatPNG  ImageFormat = "png"
	FormatJPEG ImageFormat = "jpeg"
)

// MIMEType returns the media type sent alongside the image bytes.
func (f ImageFormat) MIMEType() string {
	switch f {
	case FormatJPEG:
		return "image/jpeg"
	default:
		return "image/png"
	}
}

// Extension returns the file extension used by on-disk stores.
func (f ImageFormat) Extension() string {
	if f == FormatJPEG {
		return ".jpg"
	}
	return ".png"
}

// Capture is a full-page raster snapshot of one target.
type Capture struct {
	TargetID   string
	Image      []byte
	Format     ImageFormat
	CapturedAt time.Time
}

// RecoveredText is the plain text a vision model read from one capture.
type RecoveredText struct {
	TargetID string
	Text     string
}
