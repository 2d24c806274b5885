package authz

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// ─── Signature Verification ─────────────────────────────────────────────────
// The trusted signer is either a raw secp256k1 key or a delegated signer —
// a contract-wallet style identity whose authorized keys are registered with
// the engine. The two schemes sit behind one interface; dispatch inspects
// the expected signer's nature at verification time.

// Verifier checks that a signature over a digest was produced by the
// expected signer. Implementations are pure: no state, no side effects.
type Verifier interface {
	Verify(digest [32]byte, sig []byte, signer common.Address) bool
}

// DelegateDirectory reports the authorized keys registered for a delegated
// signer. An empty result means the signer is a plain key.
type DelegateDirectory interface {
	Delegates(signer common.Address) ([]common.Address, error)
}

// For selects the verification scheme for the expected signer: delegated if
// the directory has keys registered for it, raw ECDSA recovery otherwise.
func For(signer common.Address, dir DelegateDirectory) Verifier {
	if dir != nil {
		if keys, err := dir.Delegates(signer); err == nil && len(keys) > 0 {
			return DelegatedVerifier{Keys: keys}
		}
	}
	return ECDSAVerifier{}
}

// ─── Raw ECDSA ──────────────────────────────────────────────────────────────

// ECDSAVerifier accepts 65-byte [R ‖ S ‖ V] secp256k1 signatures whose
// recovered address equals the expected signer.
type ECDSAVerifier struct{}

// Verify recovers the public key and compares both the derived address and
// the signature against it. Malformed encoding, wrong length, or a recovery
// mismatch all report false.
func (ECDSAVerifier) Verify(digest [32]byte, sig []byte, signer common.Address) bool {
	addr, ok := recoverAddress(digest, sig)
	return ok && addr == signer
}

// ─── Delegated Signer ───────────────────────────────────────────────────────

// DelegatedVerifier accepts a signature from any of the keys authorized to
// sign on behalf of a delegated signer identity.
type DelegatedVerifier struct {
	Keys []common.Address
}

// Verify recovers the signing address and accepts it if registered.
func (v DelegatedVerifier) Verify(digest [32]byte, sig []byte, _ common.Address) bool {
	addr, ok := recoverAddress(digest, sig)
	if !ok {
		return false
	}
	for _, k := range v.Keys {
		if addr == k {
			return true
		}
	}
	return false
}

// recoverAddress extracts the signing address from a 65-byte signature.
// V may be 0/1 or the Ethereum-style 27/28; anything else is malformed.
func recoverAddress(digest [32]byte, sig []byte) (common.Address, bool) {
	if len(sig) != crypto.SignatureLength {
		return common.Address{}, false
	}
	s := make([]byte, crypto.SignatureLength)
	copy(s, sig)
	if s[64] >= 27 {
		s[64] -= 27
	}
	if s[64] > 1 {
		return common.Address{}, false
	}
	pub, err := crypto.Ecrecover(digest[:], s)
	if err != nil {
		return common.Address{}, false
	}
	if !crypto.VerifySignature(pub, digest[:], s[:64]) {
		return common.Address{}, false
	}
	var addr common.Address
	copy(addr[:], crypto.Keccak256(pub[1:])[12:])
	return addr, true
}
