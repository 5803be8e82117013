// Package device provides the registry of participant devices.
package device

import (
	"errors"
	"time"
)

// Repository errors.
var (
	ErrDeviceNotFound = errors.New("device not found")
)

// Platform represents a client platform.
type Platform string

const (
	PlatformIOS     Platform = "IOS"
	PlatformAndroid Platform = "ANDROID"
	PlatformWeb     Platform = "WEB"
)

// Device represents a registered participant device.
type Device struct {
	ID         string
	Platform   Platform
	Model      *string
	OSVersion  *string
	AppVersion *string
	LastSeenAt time.Time
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// ListOptions contains options for listing devices.
type ListOptions struct {
	Limit int
}

// ListResult contains the result of listing devices.
type ListResult struct {
	Items      []*Device
	NextCursor string
}
