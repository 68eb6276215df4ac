// Copyright 2025 Certen Protocol

package beacon

import "errors"

// ErrSlotNotStubbed is returned by MockClient when a test forgot to stub a
// slot's sync aggregate or sync committee.
var ErrSlotNotStubbed = errors.New("beacon: slot not stubbed on mock client")
