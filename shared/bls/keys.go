// Package bls wraps github.com/supranational/blst to provide the sign,
// verify, and aggregate operations the beacon chain core needs. An
// 8-byte big-endian domain tag is prepended to the message before it is
// hashed to a G2 point, rather than relying on blst's own DST mechanism
// for domain separation.
package bls

import (
	"crypto/rand"

	"github.com/pkg/errors"
	blst "github.com/supranational/blst/bindings/go"
)

// dst is the hash-to-curve ciphersuite tag required by the underlying
// library. It is fixed and distinct from the beacon chain's own 8-byte
// domain tag (see Domain in domain.go), which is folded into the message
// instead of into this constant.
const dst = "BLS_SIG_BEACON_CHAIN_CORE_"

const secretKeyLength = 32
const publicKeyLength = 48
const signatureLength = 96

// SecretKey is a BLS12-381 private key.
type SecretKey struct {
	p *blst.SecretKey
}

// PublicKey is a BLS12-381 G1 public key, compressed to 48 bytes.
type PublicKey struct {
	p *blst.P1Affine
}

// Signature is a BLS12-381 G2 signature, compressed to 96 bytes.
type Signature struct {
	s *blst.P2Affine
}

// RandKey generates a new random secret key.
func RandKey() (*SecretKey, error) {
	var ikm [32]byte
	if _, err := rand.Read(ikm[:]); err != nil {
		return nil, errors.Wrap(err, "could not read randomness")
	}
	return &SecretKey{p: blst.KeyGen(ikm[:])}, nil
}

// SecretKeyFromBytes deserializes a 32-byte big-endian scalar into a
// secret key.
func SecretKeyFromBytes(b []byte) (*SecretKey, error) {
	if len(b) != secretKeyLength {
		return nil, errors.Errorf("secret key must be %d bytes, got %d", secretKeyLength, len(b))
	}
	k := new(blst.SecretKey).Deserialize(b)
	if k == nil {
		return nil, errors.New("could not deserialize secret key")
	}
	return &SecretKey{p: k}, nil
}

// Marshal returns the 32-byte big-endian encoding of the secret key.
func (s *SecretKey) Marshal() []byte {
	return s.p.Serialize()
}

// PublicKey derives the public key corresponding to this secret key.
func (s *SecretKey) PublicKey() *PublicKey {
	return &PublicKey{p: new(blst.P1Affine).From(s.p)}
}

// Sign signs msg (already domain-prefixed by the caller, see Domain) and
// returns the resulting G2 signature.
func (s *SecretKey) Sign(msg []byte) *Signature {
	sig := new(blst.P2Affine).Sign(s.p, msg, []byte(dst))
	return &Signature{s: sig}
}

// PublicKeyFromBytes deserializes a 48-byte compressed G1 point.
func PublicKeyFromBytes(b []byte) (*PublicKey, error) {
	if len(b) != publicKeyLength {
		return nil, errors.Errorf("public key must be %d bytes, got %d", publicKeyLength, len(b))
	}
	p := new(blst.P1Affine).Uncompress(b)
	if p == nil {
		return nil, errors.New("could not uncompress public key")
	}
	if !p.KeyValidate() {
		return nil, errors.New("public key is not in the correct subgroup")
	}
	return &PublicKey{p: p}, nil
}

// Marshal returns the 48-byte compressed encoding of the public key.
func (p *PublicKey) Marshal() []byte {
	return p.p.Compress()
}

// AggregatePublicKeys combines several public keys by G1 point addition.
func AggregatePublicKeys(keys []*PublicKey) (*PublicKey, error) {
	if len(keys) == 0 {
		return nil, errors.New("no public keys to aggregate")
	}
	agg := new(blst.P1Aggregate)
	affines := make([]*blst.P1Affine, len(keys))
	for i, k := range keys {
		affines[i] = k.p
	}
	agg.Aggregate(affines, false)
	return &PublicKey{p: agg.ToAffine()}, nil
}
