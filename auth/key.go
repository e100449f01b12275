package auth

import (
	"crypto/rand"
	"encoding/base64"
)

// KeyBytes is the number of random bytes in a generated api key.
const KeyBytes = 32

// Header is the request header carrying the api key.
const Header = "api-key"

// MakeAPIKey generates a new random api key, prefixed with prefix.
// The random part is the base64 URL encoding of KeyBytes random bytes.
func MakeAPIKey(prefix string) (string, error) {
	token, err := bytesToString(KeyBytes)
	if err != nil {
		return "", err
	}
	return prefix + token, nil
}

// bytes generates n random bytes or returns an error. It uses the
// crypto/rand package, so it can be used for things like api keys.
func bytes(n int) ([]byte, error) {
	b := make([]byte, n)
	_, err := rand.Read(b)
	if err != nil {
		return nil, err
	}
	return b, nil
}

// bytesToString generates a byte slice of size nBytes and then returns a
// string that is the unpadded base64 URL encoded version of that byte slice.
func bytesToString(nBytes int) (string, error) {
	b, err := bytes(nBytes)
	if err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
