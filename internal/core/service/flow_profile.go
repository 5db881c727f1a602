package service

import (
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/screentimejourney/dashboard-service/internal/core/domain"
	"github.com/screentimejourney/dashboard-service/internal/core/ports"
)

// mobileconfigContentType is the MIME type for managed-configuration profiles.
const mobileconfigContentType = "application/x-apple-aspen-config"

// ErrAudioGuideFirst is returned when a macOS profile is requested before the
// audio-guide step has produced the run's shared PIN.
var ErrAudioGuideFirst = errors.New("generate the audio guide first, its PIN is reused by the profile")

// GenerateProfile builds the content-filtering configuration profile for a
// setup run. The step is optional and never required to advance. PIN policy:
// macOS reuses the shared PIN already produced by the audio-guide step (and
// fails with an instruction to generate it first when absent); iOS mints a
// fresh one. The PIN is persisted to the backend keyed by a freshly minted
// profile id, best-effort only.
func (s *FlowService) GenerateProfile(ctx context.Context, runID, subscriberID string) (*ports.ProfileArtifact, error) {
	run, err := s.load(ctx, runID, subscriberID)
	if err != nil {
		return nil, err
	}
	if run.Descriptor.FlowID != domain.FlowDeviceSetup {
		return nil, domain.ErrStepNotAdvanceable
	}

	deviceType, err := domain.ParseDeviceType(run.FormValues["device_type"])
	if err != nil {
		return nil, err
	}

	ensureDeviceID(run)

	var pin string
	switch deviceType {
	case domain.DeviceMacOS:
		if run.Artifacts.Pincode == "" {
			return nil, ErrAudioGuideFirst
		}
		pin = run.Artifacts.Pincode
		run.Artifacts.MDMPincode = pin
	case domain.DeviceIOS:
		pin = mintPincode()
	}

	profileID := uuid.NewString()
	// Storage failure never blocks the user; the profile still downloads.
	if err := s.backend.StorePin(ctx, profileID, pin); err != nil {
		s.log.Warn().Err(err).Str("profile_id", profileID).Msg("pin storage failed, continuing")
	}

	content := buildConfigProfile(run.FormValues["device_name"], deviceType, profileID, pin)

	if err := s.save(ctx, run); err != nil {
		return nil, err
	}

	s.log.Info().Str("run_id", run.ID).Str("profile_id", profileID).Str("device_type", string(deviceType)).Msg("configuration profile generated")
	return &ports.ProfileArtifact{
		Filename:    profileFilename(deviceType, run.Artifacts.DeviceID, time.Now().UTC()),
		ContentType: mobileconfigContentType,
		Content:     content,
	}, nil
}

// profileFilename encodes device type, a short id fragment, and a timestamp so
// repeated downloads never collide.
func profileFilename(deviceType domain.DeviceType, deviceID string, now time.Time) string {
	frag := deviceID
	if len(frag) > 8 {
		frag = frag[:8]
	}
	return fmt.Sprintf("%s-%s-%d.mobileconfig", strings.ToLower(string(deviceType)), frag, now.Unix())
}

// buildConfigProfile renders the XML property-list document. macOS profiles
// embed the removal PIN; iOS profiles rely on backend-held PINs only.
func buildConfigProfile(deviceName string, deviceType domain.DeviceType, profileID, pin string) []byte {
	var b bytes.Buffer
	b.WriteString(xml.Header)
	b.WriteString(`<!DOCTYPE plist PUBLIC "-//Apple//DTD PLIST 1.0//EN" "http://www.apple.com/DTDs/PropertyList-1.0.dtd">` + "\n")
	b.WriteString("<plist version=\"1.0\">\n<dict>\n")

	writeKey(&b, "PayloadDisplayName", "Screen Time Journey Filter — "+deviceName)
	writeKey(&b, "PayloadDescription", "Content filtering profile for your journey device.")
	writeKey(&b, "PayloadIdentifier", "com.screentimejourney.filter."+profileID)
	writeKey(&b, "PayloadOrganization", "Screen Time Journey")
	writeKey(&b, "PayloadType", "Configuration")
	writeKey(&b, "PayloadUUID", profileID)
	b.WriteString("\t<key>PayloadVersion</key>\n\t<integer>1</integer>\n")

	if deviceType == domain.DeviceMacOS {
		writeKey(&b, "RemovalPassword", pin)
		b.WriteString("\t<key>PayloadRemovalDisallowed</key>\n\t<true/>\n")
	}

	b.WriteString("\t<key>PayloadContent</key>\n\t<array>\n\t\t<dict>\n")
	b.WriteString("\t\t\t<key>PayloadType</key>\n\t\t\t<string>com.apple.webcontent-filter</string>\n")
	b.WriteString("\t\t\t<key>PayloadUUID</key>\n\t\t\t<string>" + xmlEscape(uuid.NewString()) + "</string>\n")
	b.WriteString("\t\t\t<key>PayloadVersion</key>\n\t\t\t<integer>1</integer>\n")
	b.WriteString("\t\t\t<key>FilterType</key>\n\t\t\t<string>BuiltIn</string>\n")
	b.WriteString("\t\t\t<key>AutoFilterEnabled</key>\n\t\t\t<true/>\n")
	b.WriteString("\t\t</dict>\n\t</array>\n")

	b.WriteString("</dict>\n</plist>\n")
	return b.Bytes()
}

func writeKey(b *bytes.Buffer, key, value string) {
	b.WriteString("\t<key>" + key + "</key>\n\t<string>" + xmlEscape(value) + "</string>\n")
}

func xmlEscape(s string) string {
	var b bytes.Buffer
	_ = xml.EscapeText(&b, []byte(s))
	return b.String()
}
