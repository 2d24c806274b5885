package authz

import (
	"bytes"
	"crypto/ecdsa"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

func testDomain() Domain {
	return Domain{
		Name:     "parlor",
		Version:  "1",
		ChainID:  1,
		Contract: common.HexToAddress("0x00000000000000000000000000000000000c0ffe"),
	}
}

func genKey(t *testing.T) (*ecdsa.PrivateKey, common.Address) {
	t.Helper()
	key, err := crypto.GenerateKey()
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	return key, crypto.PubkeyToAddress(key.PublicKey)
}

func sign(t *testing.T, key *ecdsa.PrivateKey, digest [32]byte) []byte {
	t.Helper()
	sig, err := crypto.Sign(digest[:], key)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return sig
}

func testCreateMsg() CreateMsg {
	return CreateMsg{
		SeedHash: SeedCommitment([]byte("seed-1")),
		GameID:   "game-1",
		Amount:   100,
		Asset:    "USDT",
		Player:   common.HexToAddress("0x00000000000000000000000000000000000001aa"),
		Deadline: 1700000000,
	}
}

func TestECDSAVerify(t *testing.T) {
	key, addr := genKey(t)
	d := testDomain()
	digest := d.CreateDigest(testCreateMsg())
	sig := sign(t, key, digest)

	if !(ECDSAVerifier{}).Verify(digest, sig, addr) {
		t.Fatal("valid signature rejected")
	}
}

func TestECDSAVerify_EthereumV(t *testing.T) {
	key, addr := genKey(t)
	d := testDomain()
	digest := d.CreateDigest(testCreateMsg())
	sig := sign(t, key, digest)

	// V offset by 27 (eth_sign style) must also be accepted.
	sig[64] += 27
	if !(ECDSAVerifier{}).Verify(digest, sig, addr) {
		t.Fatal("27/28-V signature rejected")
	}
}

func TestECDSAVerify_Rejections(t *testing.T) {
	key, addr := genKey(t)
	_, other := genKey(t)
	d := testDomain()
	digest := d.CreateDigest(testCreateMsg())
	sig := sign(t, key, digest)

	v := ECDSAVerifier{}
	if v.Verify(digest, sig, other) {
		t.Error("signature accepted for wrong signer")
	}
	if v.Verify(digest, sig[:64], addr) {
		t.Error("short signature accepted")
	}
	if v.Verify(digest, nil, addr) {
		t.Error("nil signature accepted")
	}
	bad := make([]byte, 65)
	copy(bad, sig)
	bad[64] = 9
	if v.Verify(digest, bad, addr) {
		t.Error("garbage recovery id accepted")
	}
	bad = make([]byte, 65)
	if v.Verify(digest, bad, addr) {
		t.Error("zero signature accepted")
	}
}

func TestSchemaSeparation(t *testing.T) {
	key, addr := genKey(t)
	d := testDomain()
	m := testCreateMsg()

	createDigest := d.CreateDigest(m)
	// Same field values under the cash-out schema.
	cashoutDigest := d.CashoutDigest(CashoutMsg{
		Seed:     []byte("seed-1"),
		GameID:   m.GameID,
		Payout:   m.Amount,
		Asset:    m.Asset,
		Player:   m.Player,
		Deadline: m.Deadline,
	})
	if bytes.Equal(createDigest[:], cashoutDigest[:]) {
		t.Fatal("create and cash-out schemas hash to the same digest")
	}

	sig := sign(t, key, createDigest)
	if (ECDSAVerifier{}).Verify(cashoutDigest, sig, addr) {
		t.Fatal("create signature accepted as cash-out authorization")
	}

	lossDigest := d.LossDigest(LossMsg{
		Seed: []byte("seed-1"), GameID: m.GameID, Asset: m.Asset,
		Player: m.Player, Deadline: m.Deadline,
	})
	if bytes.Equal(cashoutDigest[:], lossDigest[:]) {
		t.Fatal("cash-out and loss schemas hash to the same digest")
	}
}

func TestDomainSeparation(t *testing.T) {
	key, addr := genKey(t)
	d := testDomain()
	stale := testDomain()
	stale.ChainID = 5

	digest := d.CreateDigest(testCreateMsg())
	staleSig := sign(t, key, stale.CreateDigest(testCreateMsg()))

	if (ECDSAVerifier{}).Verify(digest, staleSig, addr) {
		t.Fatal("signature over a stale domain accepted")
	}
}

func TestSeedCommitment(t *testing.T) {
	c1 := SeedCommitment([]byte("abc"))
	c2 := SeedCommitment([]byte("abc"))
	c3 := SeedCommitment([]byte("abd"))
	if c1 != c2 {
		t.Error("commitment not deterministic")
	}
	if c1 == c3 {
		t.Error("distinct seeds share a commitment")
	}
}

// ─── Delegated Signer ───────────────────────────────────────────────────────

type staticDirectory map[common.Address][]common.Address

func (d staticDirectory) Delegates(signer common.Address) ([]common.Address, error) {
	return d[signer], nil
}

func TestDelegatedVerify(t *testing.T) {
	delegateKey, delegateAddr := genKey(t)
	strangerKey, _ := genKey(t)
	_, walletAddr := genKey(t) // identity that never signs directly

	d := testDomain()
	digest := d.CreateDigest(testCreateMsg())

	v := DelegatedVerifier{Keys: []common.Address{delegateAddr}}
	if !v.Verify(digest, sign(t, delegateKey, digest), walletAddr) {
		t.Fatal("registered delegate rejected")
	}
	if v.Verify(digest, sign(t, strangerKey, digest), walletAddr) {
		t.Fatal("unregistered key accepted")
	}
}

func TestForDispatch(t *testing.T) {
	_, walletAddr := genKey(t)
	_, delegateAddr := genKey(t)
	_, plainAddr := genKey(t)

	dir := staticDirectory{walletAddr: {delegateAddr}}

	if _, ok := For(walletAddr, dir).(DelegatedVerifier); !ok {
		t.Error("signer with registered delegates should use delegated scheme")
	}
	if _, ok := For(plainAddr, dir).(ECDSAVerifier); !ok {
		t.Error("plain signer should use raw ECDSA scheme")
	}
	if _, ok := For(plainAddr, nil).(ECDSAVerifier); !ok {
		t.Error("nil directory should fall back to raw ECDSA")
	}
}
