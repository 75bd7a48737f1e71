package crypto

import (
	"crypto/rsa"
	"math/big"
)

// Zero overwrites b in place. Best-effort scrub for key material that has
// left its useful scope; the GC may still hold earlier copies.
func Zero(b []byte) {
	for i := range b {
		b[i] = 0
	}
}

// ZeroRSAKey overwrites the secret components of key: the private
// exponent, the primes, and the precomputed CRT values. The key is
// unusable afterwards. Same best-effort caveat as Zero.
func ZeroRSAKey(key *rsa.PrivateKey) {
	if key == nil {
		return
	}
	zeroBigInt(key.D)
	for _, p := range key.Primes {
		zeroBigInt(p)
	}
	zeroBigInt(key.Precomputed.Dp)
	zeroBigInt(key.Precomputed.Dq)
	zeroBigInt(key.Precomputed.Qinv)
	key.Precomputed.CRTValues = nil
}

func zeroBigInt(v *big.Int) {
	if v == nil {
		return
	}
	bits := v.Bits()
	for i := range bits {
		bits[i] = 0
	}
	v.SetInt64(0)
}
