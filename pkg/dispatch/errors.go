package dispatch

import (
	"errors"
	"fmt"

	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	"github.com/aws/smithy-go"

	"github.com/tinywideclouds/go-sns-push-service/pkg/envelope"
)

var (
	// ErrInvalidArgument is returned for empty or malformed caller input. No
	// broker call has been made when it is returned.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrInvalidRegion is returned by the constructors for a region the broker
	// does not serve.
	ErrInvalidRegion = errors.New("invalid region")
	// ErrInvalidState is returned by every operation on a closed Client.
	ErrInvalidState = errors.New("dispatch client is closed")
)

// BrokerError carries a remote rejection or transport failure verbatim.
type BrokerError struct {
	// Op is the broker operation, e.g. "Publish".
	Op string
	// StatusCode is the HTTP status of the broker response, zero when the
	// request never got one.
	StatusCode int
	// Code is the broker's error code, e.g. "InvalidParameter".
	Code    string
	Message string
	Err     error
}

func (e *BrokerError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("sns %s failed: %s", e.Op, e.Message)
	}
	return fmt.Sprintf("sns %s failed (status %d, code %s): %s", e.Op, e.StatusCode, e.Code, e.Message)
}

func (e *BrokerError) Unwrap() error {
	return e.Err
}

func newBrokerError(op string, err error) *BrokerError {
	be := &BrokerError{Op: op, Message: err.Error(), Err: err}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		be.Code = apiErr.ErrorCode()
		be.Message = apiErr.ErrorMessage()
	}

	var respErr *awshttp.ResponseError
	if errors.As(err, &respErr) {
		be.StatusCode = respErr.HTTPStatusCode()
	}
	return be
}

func invalidArgument(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidArgument, fmt.Sprintf(format, args...))
}

// throttlingCodes are broker error codes that clear on their own.
var throttlingCodes = map[string]bool{
	"Throttling":          true,
	"ThrottlingException": true,
	"ThrottledException":  true,
	"KMSThrottling":       true,
	"InternalError":       true,
	"ServiceUnavailable":  true,
}

// IsRetryable reports whether repeating the operation later could succeed.
// Transport failures, 5xx and throttling are retryable. Broker rejections of
// the request itself (4xx, e.g. EndpointDisabled) and local validation or
// encoding failures are permanent. A closed client is retryable: another
// instance can take the work.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrInvalidArgument) || errors.Is(err, ErrInvalidRegion) {
		return false
	}
	var encErr *envelope.EncodingError
	if errors.As(err, &encErr) {
		return false
	}
	var brokerErr *BrokerError
	if errors.As(err, &brokerErr) {
		switch {
		case throttlingCodes[brokerErr.Code]:
			return true
		case brokerErr.StatusCode == 0:
			return brokerErr.Code == ""
		case brokerErr.StatusCode == 429 || brokerErr.StatusCode >= 500:
			return true
		default:
			return false
		}
	}
	return true
}
