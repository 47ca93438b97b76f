package journal

import (
	"crypto/sha256"
	"encoding/hex"
)

// DomainDocument separates document hashes from any other SHA-256 use.
const DomainDocument = "immutag/document/v1"

// DocumentHash returns SHA256(domain + 0x00 + content) as hex.
func DocumentHash(content []byte) string {
	return hashWithDomain(DomainDocument, content)
}

func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}
