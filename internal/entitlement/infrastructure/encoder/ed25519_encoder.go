package encoder

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"encoding/json"
	"encoding/pem"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/felixgeelhaar/sigil/internal/entitlement/domain"
)

// certificatePayload is the signed document handed to consumers. The
// repositories list is in filter order.
type certificatePayload struct {
	Serial        int64             `json:"serial"`
	EntitlementID uuid.UUID         `json:"entitlement_id"`
	ConsumerID    uuid.UUID         `json:"consumer_id"`
	ProductID     string            `json:"product_id"`
	ProductName   string            `json:"product_name"`
	Attributes    map[string]string `json:"attributes,omitempty"`
	Repositories  []repositoryEntry `json:"repositories"`
	Digest        string            `json:"digest"`
	IssuedAt      time.Time         `json:"issued_at"`
	Signature     []byte            `json:"signature"`
}

type repositoryEntry struct {
	ContentID string `json:"content_id"`
	Name      string `json:"name"`
	Label     string `json:"label"`
	RepoType  string `json:"repo_type"`
	Vendor    string `json:"vendor,omitempty"`
	URL       string `json:"url,omitempty"`
	Enabled   bool   `json:"enabled"`
}

// Ed25519Encoder produces signed JSON certificate payloads. The signature
// covers a canonical rendering of serial, entitlement, consumer, product and
// repository labels.
type Ed25519Encoder struct {
	privateKey ed25519.PrivateKey
	serials    domain.SerialSequence
}

// NewEd25519Encoder creates an encoder signing with the given key.
func NewEd25519Encoder(privateKey ed25519.PrivateKey, serials domain.SerialSequence) *Ed25519Encoder {
	return &Ed25519Encoder{privateKey: privateKey, serials: serials}
}

// NewEd25519EncoderFromPEM parses a PEM-encoded private key.
func NewEd25519EncoderFromPEM(pemData []byte, serials domain.SerialSequence) (*Ed25519Encoder, error) {
	block, _ := pem.Decode(pemData)
	if block == nil {
		return nil, fmt.Errorf("failed to decode PEM block")
	}
	keyData := block.Bytes
	// The PEM may contain a PKCS#8 wrapper or just the raw 64-byte key.
	if len(keyData) > ed25519.PrivateKeySize {
		keyData = keyData[len(keyData)-ed25519.PrivateKeySize:]
	}
	if len(keyData) != ed25519.PrivateKeySize {
		return nil, fmt.Errorf("invalid Ed25519 private key length %d", len(keyData))
	}
	return &Ed25519Encoder{privateKey: ed25519.PrivateKey(keyData), serials: serials}, nil
}

// GenerateEncoder creates an encoder with a fresh key pair. Local mode and
// tests only; the public key is returned for verification.
func GenerateEncoder(serials domain.SerialSequence) (*Ed25519Encoder, ed25519.PublicKey, error) {
	publicKey, privateKey, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, nil, err
	}
	return &Ed25519Encoder{privateKey: privateKey, serials: serials}, publicKey, nil
}

// Encode draws the next serial and produces a signed payload.
func (e *Ed25519Encoder) Encode(ctx context.Context, req domain.EncodeRequest) (int64, []byte, error) {
	serial, err := e.serials.Next(ctx)
	if err != nil {
		return 0, nil, fmt.Errorf("serial sequence: %w", err)
	}

	payload := certificatePayload{
		Serial:        serial,
		EntitlementID: req.EntitlementID,
		ConsumerID:    req.ConsumerID,
		ProductID:     req.Product.ID(),
		ProductName:   req.Product.Name(),
		Attributes:    req.Product.Attributes(),
		Repositories:  make([]repositoryEntry, 0, len(req.Content)),
		Digest:        req.Digest,
		IssuedAt:      time.Now().UTC(),
	}
	for _, pc := range req.Content {
		content := pc.Content()
		payload.Repositories = append(payload.Repositories, repositoryEntry{
			ContentID: content.ID(),
			Name:      content.Name(),
			Label:     content.Label(),
			RepoType:  string(content.RepoType()),
			Vendor:    content.Vendor(),
			URL:       content.ContentURL(),
			Enabled:   pc.Enabled(),
		})
	}

	payload.Signature = ed25519.Sign(e.privateKey, []byte(signedData(payload)))

	encoded, err := json.Marshal(payload)
	if err != nil {
		return 0, nil, err
	}
	return serial, encoded, nil
}

// Verify checks a payload signature against a public key.
func Verify(publicKey ed25519.PublicKey, encoded []byte) (bool, error) {
	var payload certificatePayload
	if err := json.Unmarshal(encoded, &payload); err != nil {
		return false, err
	}
	signature := payload.Signature
	return ed25519.Verify(publicKey, []byte(signedData(payload)), signature), nil
}

// signedData renders the canonical string covered by the signature.
// Format: "serial|entitlement_id|consumer_id|product_id|digest|label,label,..."
func signedData(payload certificatePayload) string {
	labels := make([]byte, 0, 64)
	for i, repo := range payload.Repositories {
		if i > 0 {
			labels = append(labels, ',')
		}
		labels = append(labels, repo.Label...)
	}
	return fmt.Sprintf("%d|%s|%s|%s|%s|%s",
		payload.Serial,
		payload.EntitlementID,
		payload.ConsumerID,
		payload.ProductID,
		payload.Digest,
		labels,
	)
}
