package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for content-addressed identity.
// The version suffix leaves room for a future algorithm change.
const (
	DomainDispatch = "exposure/dispatch/v1"
	DomainPayload  = "exposure/payload/v1"
)

// hashWithDomain computes SHA256(domain + 0x00 + data).
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// DispatchID computes the content-addressed ID of a dispatch at a given seq.
// The same dispatch replayed at the same seq gets the same ID, which is what
// makes store writes idempotent.
func DispatchID(d Dispatch, seq int64) (string, error) {
	obj := d.toObject()
	obj["seq"] = IRInt(seq)

	canonical, err := MarshalCanonical(obj)
	if err != nil {
		return "", fmt.Errorf("DispatchID: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainDispatch, canonical), nil
}

// PayloadHash identifies a payload independent of any instance. Used to group
// dispatch log rows that came from the same element configuration.
func PayloadHash(p Payload) (string, error) {
	canonical, err := MarshalCanonical(p.toObject())
	if err != nil {
		return "", fmt.Errorf("PayloadHash: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainPayload, canonical), nil
}

// MustDispatchID is like DispatchID but panics on error.
// Use only in tests or when inputs are known to be valid.
func MustDispatchID(d Dispatch, seq int64) string {
	id, err := DispatchID(d, seq)
	if err != nil {
		panic(err)
	}
	return id
}
