package types

import "encoding/json"

// EnclaveBundleVersion is the only signed envelope version the enclave emits.
const EnclaveBundleVersion = "v1.0.0"

// SignedEnvelope is an enclave-signed payload. Data is hex JSON; DataSignature is a
// hex ASN.1 DER ECDSA P-256 signature over SHA-256 of the decoded data.
type SignedEnvelope struct {
	Version             string `json:"version"`
	Data                string `json:"data"`
	DataSignature       string `json:"dataSignature"`
	EnclaveQuorumPublic string `json:"enclaveQuorumPublic"`
}

// ExportData is the signed content of an export bundle.
type ExportData struct {
	EncappedPublic string `json:"encappedPublic"`
	Ciphertext     string `json:"ciphertext"`
	OrganizationID string `json:"organizationId"`
}

// ImportData is the signed content of an import bundle.
type ImportData struct {
	OrganizationID string `json:"organizationId"`
	UserID         string `json:"userId"`
	TargetPublic   string `json:"targetPublic"`
}

// EncryptedImport is what the client returns to the vendor after sealing key material.
type EncryptedImport struct {
	EncappedPublic string `json:"encappedPublic"`
	Ciphertext     string `json:"ciphertext"`
}

// KeyFormat selects how exported or imported private keys are rendered.
type KeyFormat string

const (
	KeyFormatHexadecimal KeyFormat = "HEXADECIMAL"
	KeyFormatSolana      KeyFormat = "SOLANA"
)

// StampResponse is returned by the agent's /v1/stamp endpoint.
type StampResponse struct {
	Header string `json:"header"`
	Stamp  string `json:"stamp"`
}

// SessionStartResponse is returned when the agent opens a session.
type SessionStartResponse struct {
	SessionID       string `json:"session_id"`
	TargetPublicKey string `json:"target_public_key"`
}

// SessionBundleRequest delivers the vendor's credential bundle for a pending session.
type SessionBundleRequest struct {
	CredentialBundle string `json:"credential_bundle"`
}

// SessionResponse describes a live session. The private key never leaves the agent.
type SessionResponse struct {
	SessionID        string `json:"session_id"`
	SessionPublicKey string `json:"session_public_key"`
	ExpiresAt        int64  `json:"expires_at"`
}

// VerifiedEnvelopeResponse carries the data of an envelope whose signature checked out.
type VerifiedEnvelopeResponse struct {
	Verified bool            `json:"verified"`
	Data     json.RawMessage `json:"data"`
}
