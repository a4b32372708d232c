package platform

// Delivery attribute names understood by the Android gateway.
const (
	AttrCollapseKey    = "collapse_key"
	AttrDelayWhileIdle = "delay_while_idle"
	AttrTimeToLive     = "time_to_live"
	AttrDryRun         = "dry_run"
)

// DefaultAttributes returns the delivery attributes a message body starts from.
// Only Android carries defaults; every other platform gets an empty map. The map
// is freshly allocated on each call.
func DefaultAttributes(p Platform) map[string]any {
	switch p.kind {
	case kindAndroid:
		return map[string]any{
			AttrCollapseKey:    "single",
			AttrDelayWhileIdle: true,
			AttrTimeToLive:     30,
			AttrDryRun:         false,
		}
	case kindUnknown, kindIOS, kindIOSSandbox, kindIOSVoIP, kindIOSVoIPSandbox, kindAmazon:
		return map[string]any{}
	}
	return map[string]any{}
}
