package models

import (
	"strings"
	"time"

	"github.com/mssola/useragent"
)

// Device is a wallet installation that receives wake-up pushes. It exists
// only while at least one Registration references it.
type Device struct {
	ID          string    `db:"device_id"`
	PushAddress string    `db:"push_address"`
	Platform    string    `db:"platform"`
	CreatedAt   time.Time `db:"created_at"`
	UpdatedAt   time.Time `db:"updated_at"`
}

// Registration binds a device to a pass serial.
type Registration struct {
	DeviceID     string    `db:"device_id"`
	SerialNumber string    `db:"serial_number"`
	CreatedAt    time.Time `db:"created_at"`
}

// SerialList answers "which of my passes changed". LastUpdated is the
// newest last_update across SerialNumbers, zero when the list is empty.
type SerialList struct {
	LastUpdated   time.Time
	SerialNumbers []string
}

// Empty reports whether nothing matched.
func (l SerialList) Empty() bool {
	return len(l.SerialNumbers) == 0
}

// PlatformFromUserAgent derives a short platform label ("iPhone", "iPad",
// "Macintosh") from the registering client's User-Agent.
func PlatformFromUserAgent(ua string) string {
	ua = strings.TrimSpace(ua)
	if ua == "" {
		return ""
	}
	parsed := useragent.New(ua)
	if p := parsed.Platform(); p != "" {
		return p
	}
	if os := parsed.OS(); os != "" {
		return os
	}
	name, _ := parsed.Browser()
	return name
}
