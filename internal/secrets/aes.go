// Package secrets decrypts broker keys stored encrypted in configuration.
package secrets

import (
	"crypto/aes"
	"crypto/cipher"
	"encoding/base64"
	"errors"
	"fmt"
)

// AESDecrypter reads Base64 AES/ECB/PKCS5 ciphertext, the format written by the
// Java EncryptUtils helpers that produce the stored keys.
type AESDecrypter struct {
	block cipher.Block
}

// NewAESDecrypter accepts a 16, 24 or 32 byte secret.
func NewAESDecrypter(secret string) (*AESDecrypter, error) {
	block, err := aes.NewCipher([]byte(secret))
	if err != nil {
		return nil, fmt.Errorf("invalid credentials key: %w", err)
	}
	return &AESDecrypter{block: block}, nil
}

func (d *AESDecrypter) Decrypt(ciphertext string) (string, error) {
	enc, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return "", fmt.Errorf("ciphertext is not base64: %w", err)
	}
	bs := d.block.BlockSize()
	if len(enc) == 0 || len(enc)%bs != 0 {
		return "", errors.New("invalid ciphertext size")
	}

	out := make([]byte, len(enc))
	for i := 0; i < len(enc); i += bs {
		d.block.Decrypt(out[i:i+bs], enc[i:i+bs])
	}
	plain, err := pkcs5Unpad(out, bs)
	if err != nil {
		return "", err
	}
	return string(plain), nil
}

// Plaintext passes keys through unchanged, for deployments that inject them
// already decrypted.
type Plaintext struct{}

func (Plaintext) Decrypt(ciphertext string) (string, error) {
	return ciphertext, nil
}

func pkcs5Unpad(src []byte, blockSize int) ([]byte, error) {
	n := len(src)
	pad := int(src[n-1])
	if pad == 0 || pad > blockSize || pad > n {
		return nil, errors.New("invalid padding")
	}
	for _, b := range src[n-pad:] {
		if int(b) != pad {
			return nil, errors.New("invalid padding")
		}
	}
	return src[:n-pad], nil
}
