// Package envelope builds the broker's multi-platform message structure: a JSON
// object keyed by platform name whose value is that platform's body, itself
// JSON, carried as a string.
package envelope

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"maps"

	"github.com/tinywideclouds/go-sns-push-service/pkg/platform"
)

// EncodingError reports a payload that could not be serialized. It is always
// returned before any network call is made.
type EncodingError struct {
	Platform platform.Platform
	Err      error
}

func (e *EncodingError) Error() string {
	return fmt.Sprintf("failed to encode %s message: %v", e.Platform, e.Err)
}

func (e *EncodingError) Unwrap() error {
	return e.Err
}

var errInvalidPlatform = errors.New("invalid push platform")

// Build produces the platform body: the platform's default delivery attributes
// with custom overlaid on top. Custom keys win on collision. A nil or empty
// custom map is valid; for platforms without defaults the body is "{}".
func Build(p platform.Platform, custom map[string]any) (string, error) {
	if !p.Valid() {
		return "", &EncodingError{Platform: p, Err: errInvalidPlatform}
	}

	fields := platform.DefaultAttributes(p)
	maps.Copy(fields, custom)

	body, err := marshal(fields)
	if err != nil {
		return "", &EncodingError{Platform: p, Err: err}
	}
	return body, nil
}

// Wrap places body under the platform's canonical name. The body stays a JSON
// string value, as the broker expects when the message structure is "json".
func Wrap(p platform.Platform, body string) (string, error) {
	if !p.Valid() {
		return "", &EncodingError{Platform: p, Err: errInvalidPlatform}
	}

	env, err := marshal(map[string]string{p.String(): body})
	if err != nil {
		return "", &EncodingError{Platform: p, Err: err}
	}
	return env, nil
}

// BuildAndWrap is Build followed by Wrap.
func BuildAndWrap(p platform.Platform, custom map[string]any) (string, error) {
	body, err := Build(p, custom)
	if err != nil {
		return "", err
	}
	return Wrap(p, body)
}

// Unwrap returns the body stored under p's key in a serialized envelope.
func Unwrap(p platform.Platform, env string) (string, error) {
	var m map[string]string
	if err := json.Unmarshal([]byte(env), &m); err != nil {
		return "", &EncodingError{Platform: p, Err: err}
	}
	body, ok := m[p.String()]
	if !ok {
		return "", &EncodingError{Platform: p, Err: fmt.Errorf("envelope has no %s entry", p)}
	}
	return body, nil
}

func marshal(v any) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return "", err
	}
	return string(bytes.TrimSuffix(buf.Bytes(), []byte("\n"))), nil
}
