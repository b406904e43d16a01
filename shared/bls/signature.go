package bls

import (
	"github.com/pkg/errors"
	blst "github.com/supranational/blst/bindings/go"
)

// SignatureFromBytes deserializes a 96-byte compressed G2 point.
func SignatureFromBytes(b []byte) (*Signature, error) {
	if len(b) != signatureLength {
		return nil, errors.Errorf("signature must be %d bytes, got %d", signatureLength, len(b))
	}
	s := new(blst.P2Affine).Uncompress(b)
	if s == nil {
		return nil, errors.New("could not uncompress signature")
	}
	if !s.SigValidate(false) {
		return nil, errors.New("signature is not in the correct subgroup")
	}
	return &Signature{s: s}, nil
}

// Marshal returns the 96-byte compressed encoding of the signature.
func (s *Signature) Marshal() []byte {
	return s.s.Compress()
}

// Verify checks that sig is a valid signature over msg (already
// domain-prefixed by the caller) under pub.
func (s *Signature) Verify(pub *PublicKey, msg []byte) bool {
	return s.s.Verify(false, pub.p, false, msg, []byte(dst))
}

// AggregateSignatures combines signatures by G2 point addition.
func AggregateSignatures(sigs []*Signature) (*Signature, error) {
	if len(sigs) == 0 {
		return nil, errors.New("no signatures to aggregate")
	}
	agg := new(blst.P2Aggregate)
	affines := make([]*blst.P2Affine, len(sigs))
	for i, s := range sigs {
		affines[i] = s.s
	}
	agg.Aggregate(affines, false)
	return &Signature{s: agg.ToAffine()}, nil
}

// VerifyAggregate multi-verifies an aggregate signature against one
// public key and message per signer. Messages are not grouped: every
// (public key, message) pair costs its own pairing, plus one for the
// aggregated signature, even when several signers share a message.
func (s *Signature) VerifyAggregate(pubs []*PublicKey, msgs [][]byte) bool {
	if len(pubs) != len(msgs) || len(pubs) == 0 {
		return false
	}
	affines := make([]*blst.P1Affine, len(pubs))
	for i, p := range pubs {
		affines[i] = p.p
	}
	return s.s.AggregateVerify(false, affines, false, msgs, []byte(dst))
}
