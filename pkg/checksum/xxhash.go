package checksum

import (
	"encoding/hex"
	"io"

	"github.com/cespare/xxhash/v2"
)

// Bytes returns the hex-encoded xxhash64 digest of data. Used to stamp
// completion markers with the archive they were derived from.
func Bytes(data []byte) string {
	digest := xxhash.New()
	digest.Write(data)

	return hex.EncodeToString(digest.Sum(nil))
}

// Reader hashes everything remaining in r.
func Reader(r io.Reader) (string, error) {
	digest := xxhash.New()
	if _, err := io.Copy(digest, r); err != nil {
		return "", err
	}

	return hex.EncodeToString(digest.Sum(nil)), nil
}
