package model

import "time"

// Signature is a registered document signature that can later be verified by hash.
type Signature struct {
	ID           string    `json:"id"`
	Hash         string    `json:"hash"`
	DocumentName string    `json:"documentName"`
	DocumentHash string    `json:"documentHash"`
	SignerName   string    `json:"signerName"`
	SignerEmail  string    `json:"signerEmail,omitempty"`
	SignedAt     time.Time `json:"signedAt"`
}
