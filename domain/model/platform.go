package model

import "strings"

// Platform is the closed set of social networks the worker can publish to.
type Platform string

const (
	PlatformFacebook  Platform = "facebook"
	PlatformInstagram Platform = "instagram"
	PlatformTwitter   Platform = "twitter"
	PlatformYouTube   Platform = "youtube"
	PlatformLinkedIn  Platform = "linkedin"
)

// AllPlatforms lists every supported platform in a stable order.
func AllPlatforms() []Platform {
	return []Platform{PlatformFacebook, PlatformInstagram, PlatformTwitter, PlatformYouTube, PlatformLinkedIn}
}

// ParsePlatform normalizes a raw platform string. ok is false for anything
// outside the supported set.
func ParsePlatform(s string) (Platform, bool) {
	p := Platform(strings.ToLower(strings.TrimSpace(s)))
	switch p {
	case PlatformFacebook, PlatformInstagram, PlatformTwitter, PlatformYouTube, PlatformLinkedIn:
		return p, true
	}
	return "", false
}

func (p Platform) String() string { return string(p) }
