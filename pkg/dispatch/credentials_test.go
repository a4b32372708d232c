package dispatch_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tinywideclouds/go-sns-push-service/pkg/dispatch"
)

type countingDecrypter struct {
	calls []string
	fail  string
}

func (d *countingDecrypter) Decrypt(ciphertext string) (string, error) {
	d.calls = append(d.calls, ciphertext)
	if ciphertext == d.fail {
		return "", errors.New("bad padding")
	}
	return "plain-" + ciphertext, nil
}

func TestConnectEncrypted(t *testing.T) {
	logger := newTestLogger()

	t.Run("Invalid region skips decryption", func(t *testing.T) {
		dec := &countingDecrypter{}
		_, err := dispatch.ConnectEncrypted(dec, "enc-ak", "enc-sk", "nowhere-1", logger)
		assert.ErrorIs(t, err, dispatch.ErrInvalidRegion)
		assert.Empty(t, dec.calls)
	})

	t.Run("Decrypts each key once", func(t *testing.T) {
		dec := &countingDecrypter{}
		client, err := dispatch.ConnectEncrypted(dec, "enc-ak", "enc-sk", "us-west-2", logger)
		require.NoError(t, err)
		assert.Equal(t, []string{"enc-ak", "enc-sk"}, dec.calls)
		assert.Equal(t, "us-west-2", client.Region())
	})

	t.Run("Decryption failure names the key", func(t *testing.T) {
		dec := &countingDecrypter{fail: "enc-sk"}
		_, err := dispatch.ConnectEncrypted(dec, "enc-ak", "enc-sk", "us-west-2", logger)

		var decErr *dispatch.DecryptionError
		require.ErrorAs(t, err, &decErr)
		assert.Equal(t, "secret key", decErr.Key)
		assert.NotContains(t, err.Error(), "enc-sk")
	})
}
