package dispatch

import (
	"strconv"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns/types"
)

// AttributeType is the broker data type of a message attribute.
type AttributeType string

const (
	AttributeString AttributeType = "String"
	AttributeNumber AttributeType = "Number"
	AttributeBinary AttributeType = "Binary"
)

// Attribute is a typed value sent alongside, not inside, the message body.
type Attribute struct {
	Type   AttributeType `json:"type"`
	Value  string        `json:"value,omitempty"`
	Binary []byte        `json:"binary,omitempty"`
}

// MessageAttributes maps attribute names to typed values.
type MessageAttributes map[string]Attribute

func StringAttribute(v string) Attribute {
	return Attribute{Type: AttributeString, Value: v}
}

func NumberAttribute(v float64) Attribute {
	return Attribute{Type: AttributeNumber, Value: strconv.FormatFloat(v, 'f', -1, 64)}
}

func BinaryAttribute(v []byte) Attribute {
	return Attribute{Type: AttributeBinary, Binary: v}
}

func (a Attribute) validate(name string) error {
	if name == "" {
		return invalidArgument("message attribute name is empty")
	}
	switch a.Type {
	case AttributeString:
		if a.Value == "" {
			return invalidArgument("string attribute %q has no value", name)
		}
	case AttributeNumber:
		if _, err := strconv.ParseFloat(a.Value, 64); err != nil {
			return invalidArgument("number attribute %q is not numeric: %q", name, a.Value)
		}
	case AttributeBinary:
		if len(a.Binary) == 0 {
			return invalidArgument("binary attribute %q has no value", name)
		}
	default:
		return invalidArgument("attribute %q has unsupported type %q", name, a.Type)
	}
	return nil
}

// toSNS converts the attributes to the broker's representation. A nil or empty
// map yields nil so no attributes are sent.
func (m MessageAttributes) toSNS() (map[string]types.MessageAttributeValue, error) {
	if len(m) == 0 {
		return nil, nil
	}
	out := make(map[string]types.MessageAttributeValue, len(m))
	for name, a := range m {
		if err := a.validate(name); err != nil {
			return nil, err
		}
		v := types.MessageAttributeValue{DataType: aws.String(string(a.Type))}
		if a.Type == AttributeBinary {
			v.BinaryValue = a.Binary
		} else {
			v.StringValue = aws.String(a.Value)
		}
		out[name] = v
	}
	return out, nil
}
