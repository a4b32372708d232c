package dispatch

import (
	"fmt"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/service/sns"
)

// Decrypter recovers a plaintext broker key from its stored form.
type Decrypter interface {
	Decrypt(ciphertext string) (string, error)
}

// DecryptionError reports which key could not be decrypted. The ciphertext is
// not included.
type DecryptionError struct {
	Key string
	Err error
}

func (e *DecryptionError) Error() string {
	return fmt.Sprintf("failed to decrypt %s: %v", e.Key, e.Err)
}

func (e *DecryptionError) Unwrap() error {
	return e.Err
}

// ConnectEncrypted validates region, decrypts both keys once each and connects.
// An unsupported region fails before the decrypter is touched.
func ConnectEncrypted(dec Decrypter, encAccessKey, encSecretKey, region string, logger *slog.Logger, optFns ...func(*sns.Options)) (*Client, error) {
	if err := ValidateRegion(region); err != nil {
		return nil, err
	}
	if dec == nil {
		return nil, invalidArgument("decrypter is nil")
	}

	accessKey, err := dec.Decrypt(encAccessKey)
	if err != nil {
		return nil, &DecryptionError{Key: "access key", Err: err}
	}
	secretKey, err := dec.Decrypt(encSecretKey)
	if err != nil {
		return nil, &DecryptionError{Key: "secret key", Err: err}
	}

	return Connect(Credentials{AccessKey: accessKey, SecretKey: secretKey}, region, logger, optFns...)
}
