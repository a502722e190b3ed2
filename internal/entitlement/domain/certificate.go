package domain

import "time"

// CertificateState describes where an entitlement's certificate stands in the
// regeneration cycle. State is transient; only the certificate itself is
// persisted.
type CertificateState string

const (
	// StateCurrent means the certificate digest matches the present content set.
	StateCurrent CertificateState = "CURRENT"
	// StateStale means a relevant change happened and the digest must be rechecked.
	StateStale CertificateState = "STALE"
	// StateRegenerating means a new certificate is being produced.
	StateRegenerating CertificateState = "REGENERATING"
)

// Certificate is an immutable issued certificate. Regeneration never mutates
// one; it issues a replacement under a fresh serial and revokes the old serial.
type Certificate struct {
	serial   int64
	digest   string
	payload  []byte
	issuedAt time.Time
}

// NewCertificate creates an issued certificate.
func NewCertificate(serial int64, digest string, payload []byte) (*Certificate, error) {
	if serial <= 0 {
		return nil, ErrInvalidSerial
	}
	cert := &Certificate{
		serial:   serial,
		digest:   digest,
		issuedAt: time.Now().UTC(),
	}
	cert.payload = append(cert.payload, payload...)
	return cert, nil
}

func (c *Certificate) Serial() int64       { return c.serial }
func (c *Certificate) Digest() string      { return c.digest }
func (c *Certificate) IssuedAt() time.Time { return c.issuedAt }

// Payload returns the encoded certificate bytes.
func (c *Certificate) Payload() []byte {
	payload := make([]byte, len(c.payload))
	copy(payload, c.payload)
	return payload
}

// RehydrateCertificate recreates a certificate from persisted state.
func RehydrateCertificate(serial int64, digest string, payload []byte, issuedAt time.Time) *Certificate {
	cert := &Certificate{
		serial:   serial,
		digest:   digest,
		issuedAt: issuedAt,
	}
	cert.payload = append(cert.payload, payload...)
	return cert
}
