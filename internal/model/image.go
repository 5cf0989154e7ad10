package model

import "time"

// Account is an API tenant. Accounts are created at bootstrap (optionally a
// seeded default) and are never mutated or deleted by this service.
type Account struct {
	AccountID   string `json:"account_id"`
	AccountHash string `json:"account_hash"`
}

// Image is the central entity of the upload lifecycle.
// These are pure domain models with no database-specific dependencies or tags,
// usable across layers (HTTP, service, storage) without coupling to persistence.
//
// Name is nil until the binary payload is associated; it is set exactly once,
// together with the Draft=false transition. A record that never receives its
// payload remains a draft forever.
type Image struct {
	ImageID           string    `json:"image_id"`
	Name              *string   `json:"name"`
	UploadedAt        time.Time `json:"uploaded_at"`
	RequireSignedURLs bool      `json:"require_signed_urls"`
	Draft             bool      `json:"draft"`
	AccountID         string    `json:"account_id"`
}

// Variant mirrors the upstream API's variant table. The schema carries it but
// no operation produces variants; retrieval ignores the variant path segment.
type Variant struct {
	VariantID string `json:"variant_id"`
	Name      string `json:"name"`
	AccountID string `json:"account_id"`
}

// Video backs the experimental video-serving stub.
type Video struct {
	VideoID string  `json:"video_id"`
	Name    *string `json:"name"`
}
