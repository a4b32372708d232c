// Package platform enumerates the push platforms the broker can address and the
// delivery attributes each one gets by default.
package platform

import (
	"fmt"
	"strings"
)

// Platform is a push platform known to the broker. The set is closed: values
// can only be obtained from the exported variables or from Parse.
type Platform struct {
	kind kind
}

type kind uint8

const (
	kindUnknown kind = iota
	kindAndroid
	kindIOS
	kindIOSSandbox
	kindIOSVoIP
	kindIOSVoIPSandbox
	kindAmazon
)

var (
	Unknown        = Platform{kindUnknown}
	Android        = Platform{kindAndroid}
	IOS            = Platform{kindIOS}
	IOSSandbox     = Platform{kindIOSSandbox}
	IOSVoIP        = Platform{kindIOSVoIP}
	IOSVoIPSandbox = Platform{kindIOSVoIPSandbox}
	Amazon         = Platform{kindAmazon}
)

// All returns every valid platform in declaration order.
func All() []Platform {
	return []Platform{Android, IOS, IOSSandbox, IOSVoIP, IOSVoIPSandbox, Amazon}
}

// String returns the canonical name. It is both the key of the broker's
// multi-platform message structure and the tag used in metadata.
func (p Platform) String() string {
	switch p.kind {
	case kindAndroid:
		return "GCM"
	case kindIOS:
		return "APNS"
	case kindIOSSandbox:
		return "APNS_SANDBOX"
	case kindIOSVoIP:
		return "APNS_VOIP"
	case kindIOSVoIPSandbox:
		return "APNS_VOIP_SANDBOX"
	case kindAmazon:
		return "ADM"
	case kindUnknown:
		return "UNKNOWN"
	}
	return "UNKNOWN"
}

// Valid reports whether p is one of the enumerated platforms.
func (p Platform) Valid() bool {
	return p.kind != kindUnknown && p.kind <= kindAmazon
}

// IsApple reports whether p is delivered through APNs.
func (p Platform) IsApple() bool {
	switch p.kind {
	case kindIOS, kindIOSSandbox, kindIOSVoIP, kindIOSVoIPSandbox:
		return true
	}
	return false
}

var aliases = map[string]Platform{
	"ANDROID":     Android,
	"FCM":         Android,
	"IOS":         IOS,
	"IOS_SANDBOX": IOSSandbox,
}

// Parse resolves a canonical name (GCM, APNS, ...) or a common alias
// (android, ios, ios_sandbox, fcm). Matching is case-insensitive.
func Parse(name string) (Platform, error) {
	n := strings.ToUpper(strings.TrimSpace(name))
	for _, p := range All() {
		if p.String() == n {
			return p, nil
		}
	}
	if p, ok := aliases[n]; ok {
		return p, nil
	}
	return Unknown, fmt.Errorf("unknown push platform %q", name)
}

// MarshalText encodes the canonical name.
func (p Platform) MarshalText() ([]byte, error) {
	if !p.Valid() {
		return nil, fmt.Errorf("cannot encode invalid push platform")
	}
	return []byte(p.String()), nil
}

// UnmarshalText accepts anything Parse accepts.
func (p *Platform) UnmarshalText(text []byte) error {
	parsed, err := Parse(string(text))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}
