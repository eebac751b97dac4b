// checksum.go supports SPEC_FULL.md's verbose-diagnostics supplement:
// surfacing a content hash for incbin-referenced files alongside the
// usual path/size note, so two builds pulling in a same-named but
// different-content binary are easy to tell apart in a log.
package output

import (
	"encoding/hex"

	"golang.org/x/crypto/blake2b"
)

// ChecksumHex returns the lowercase-hex BLAKE2b-256 digest of contents,
// the pack's chosen hash for "cheap, collision-resistant content
// fingerprint" (grounded on SnellerInc-sneller/fsenv.go's
// blake2b.New256 usage).
func ChecksumHex(contents []byte) string {
	sum := blake2b.Sum256(contents)
	return hex.EncodeToString(sum[:])
}
