// =============================
// File: internal/program/discriminator.go
// =============================
package program

import "crypto/sha256"

// DiscriminatorSize is the length of the Anchor type tag prefixed to account
// data and instruction data.
const DiscriminatorSize = 8

// Discriminator is an 8-byte Anchor type tag.
type Discriminator [DiscriminatorSize]byte

func hashDiscriminator(preimage string) Discriminator {
	hash := sha256.Sum256([]byte(preimage))
	var out Discriminator
	copy(out[:], hash[:DiscriminatorSize])
	return out
}

// AccountDiscriminator returns sha256("account:<name>")[:8].
func AccountDiscriminator(name string) Discriminator {
	return hashDiscriminator("account:" + name)
}

// InstructionDiscriminator returns sha256("global:<name>")[:8].
func InstructionDiscriminator(name string) Discriminator {
	return hashDiscriminator("global:" + name)
}
