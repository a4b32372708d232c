package envelope

import (
	"encoding/json"
	"errors"
	"fmt"

	"firebase.google.com/go/v4/messaging"
	"github.com/sideshow/apns2/payload"

	"github.com/tinywideclouds/go-sns-push-service/pkg/platform"
)

// apsKey holds the alert dictionary in an APNs payload; data may not replace it.
const apsKey = "aps"

var errReservedAPSKey = errors.New(`data key "aps" is reserved by APNs`)

// Content is the platform-neutral, user-visible part of a notification.
type Content struct {
	Title string `json:"title"`
	Body  string `json:"body"`
	Sound string `json:"sound,omitempty"`
}

// FieldsFor renders content and data into the custom fields of p's body. The
// result is meant to be passed to Build, which layers it over the defaults.
func FieldsFor(p platform.Platform, content Content, data map[string]string) (map[string]any, error) {
	switch {
	case p == platform.Android:
		fields := map[string]any{
			"notification": &messaging.Notification{
				Title: content.Title,
				Body:  content.Body,
			},
		}
		if len(data) > 0 {
			fields["data"] = data
		}
		return fields, nil

	case p.IsApple():
		builder := payload.NewPayload().
			AlertTitle(content.Title).
			AlertBody(content.Body)
		if content.Sound != "" {
			builder.Sound(content.Sound)
		}
		for k, v := range data {
			if k == apsKey {
				return nil, &EncodingError{Platform: p, Err: errReservedAPSKey}
			}
			builder.Custom(k, v)
		}
		return toFields(p, builder)

	case p == platform.Amazon:
		merged := make(map[string]string, len(data)+2)
		for k, v := range data {
			merged[k] = v
		}
		merged["title"] = content.Title
		merged["body"] = content.Body
		return map[string]any{"data": merged}, nil
	}

	return nil, &EncodingError{Platform: p, Err: errInvalidPlatform}
}

func toFields(p platform.Platform, v any) (map[string]any, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, &EncodingError{Platform: p, Err: err}
	}
	var fields map[string]any
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, &EncodingError{Platform: p, Err: fmt.Errorf("payload is not an object: %w", err)}
	}
	return fields, nil
}
