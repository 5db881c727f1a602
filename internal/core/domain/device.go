package domain

import (
	"errors"
	"strings"
	"time"
)

// DeviceType is the platform a device runs.
type DeviceType string

const (
	DeviceIOS   DeviceType = "iOS"
	DeviceMacOS DeviceType = "macOS"
)

// DeviceStatus is the lifecycle state of an enrolled device.
type DeviceStatus string

const (
	DeviceLocked        DeviceStatus = "locked"
	DeviceUnlocked      DeviceStatus = "unlocked"
	DeviceSetupComplete DeviceStatus = "setup_complete"
	DeviceMonitoring    DeviceStatus = "monitoring"
)

// MaxDevices is the per-subscriber enrollment cap.
const MaxDevices = 3

var (
	ErrDeviceNotFound       = errors.New("device not found")
	ErrDeviceCap            = errors.New("device limit reached")
	ErrUnknownType          = errors.New("unknown device type")
	ErrConfirmationRequired = errors.New("unlock requires interactive confirmation")
)

// Device is an enrolled device. Created when a setup flow completes, mutated
// by unlock operations, removed when an unlock flow fully completes.
type Device struct {
	ID         string       `json:"id" bson:"_id"`
	Name       string       `json:"name" bson:"name"`
	Type       DeviceType   `json:"type" bson:"type"`
	Status     DeviceStatus `json:"status" bson:"status"`
	AddedDate  time.Time    `json:"added_date" bson:"added_date"`
	Pincode    string       `json:"pincode" bson:"pincode"`
	AudioURL   string       `json:"audio_url,omitempty" bson:"audio_url,omitempty"`
	ProfileURL string       `json:"profile_url,omitempty" bson:"profile_url,omitempty"`
	// MDMPincode is set for macOS devices only.
	MDMPincode string       `json:"mdm_pincode,omitempty" bson:"mdm_pincode,omitempty"`
}

// SafeRemoteURL drops inline data: URIs, keeping only remote references.
// Audio and profile artifacts must never be stored as inline-encoded binary;
// a data: payload here would blow up record size and leak through every list
// response.
func SafeRemoteURL(u string) string {
	if strings.HasPrefix(strings.ToLower(strings.TrimSpace(u)), "data:") {
		return ""
	}
	return u
}

// ParseDeviceType validates the wire value for a device type.
func ParseDeviceType(s string) (DeviceType, error) {
	switch DeviceType(s) {
	case DeviceIOS:
		return DeviceIOS, nil
	case DeviceMacOS:
		return DeviceMacOS, nil
	}
	return "", ErrUnknownType
}
