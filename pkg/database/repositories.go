// Copyright 2025 Certen Protocol
//
// Repositories aggregates every repository behind a single handle, so
// callers construct one object from a *Client instead of wiring each
// repository individually.

package database

// Repositories bundles every repository over a shared *Client.
type Repositories struct {
	Jobs     *JobRepository
	Verified *VerifiedRepository
	Merkle   *MerkleRepository
}

// NewRepositories constructs every repository over client.
func NewRepositories(client *Client) *Repositories {
	return &Repositories{
		Jobs:     NewJobRepository(client),
		Verified: NewVerifiedRepository(client),
		Merkle:   NewMerkleRepository(client),
	}
}
