// Package authz verifies that settlement requests were authorized by the
// trusted arbiter key. It is stateless and side-effect free: a pure function
// of (message, signature, domain, expected signer).
//
// Digests follow the EIP-712 typed-data layout. Each operation has its own
// fixed schema and therefore its own type hash, so a signature over a create
// message can never be replayed as authorization for a cash-out, even with
// identical field values.
package authz

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// ─── Signing Domain ─────────────────────────────────────────────────────────

// Domain separates signatures produced for this deployment from any other.
// A signature over a stale or mismatched domain fails verification.
type Domain struct {
	Name     string
	Version  string
	ChainID  int64
	Contract common.Address // Verifying-contract slot; the engine's settlement address
}

var domainTypeHash = crypto.Keccak256(
	[]byte("EIP712Domain(string name,string version,uint256 chainId,address verifyingContract)"))

// Separator returns the domain separator hash.
func (d Domain) Separator() [32]byte {
	var out [32]byte
	copy(out[:], crypto.Keccak256(
		domainTypeHash,
		crypto.Keccak256([]byte(d.Name)),
		crypto.Keccak256([]byte(d.Version)),
		uintWord(d.ChainID),
		common.LeftPadBytes(d.Contract.Bytes(), 32),
	))
	return out
}

// ─── Message Schemas ────────────────────────────────────────────────────────

var (
	createTypeHash = crypto.Keccak256(
		[]byte("BetCreate(bytes32 seedHash,string gameId,uint256 amount,string asset,address player,uint256 deadline)"))
	cashoutTypeHash = crypto.Keccak256(
		[]byte("BetCashout(bytes seed,string gameId,uint256 payout,string asset,address player,uint256 deadline)"))
	lossTypeHash = crypto.Keccak256(
		[]byte("BetLoss(bytes seed,string gameId,string asset,address player,uint256 deadline)"))
)

// CreateMsg is the arbiter-signed authorization to open a game.
type CreateMsg struct {
	SeedHash [32]byte
	GameID   string
	Amount   int64
	Asset    string
	Player   common.Address
	Deadline int64 // Unix seconds
}

// CashoutMsg is the arbiter-signed authorization for a winning resolution.
// Seed is the revealed commitment preimage.
type CashoutMsg struct {
	Seed     []byte
	GameID   string
	Payout   int64
	Asset    string
	Player   common.Address
	Deadline int64
}

// LossMsg is the arbiter-signed authorization for a losing resolution.
type LossMsg struct {
	Seed     []byte
	GameID   string
	Asset    string
	Player   common.Address
	Deadline int64
}

// CreateDigest returns the signable digest for a create authorization.
func (d Domain) CreateDigest(m CreateMsg) [32]byte {
	structHash := crypto.Keccak256(
		createTypeHash,
		m.SeedHash[:],
		crypto.Keccak256([]byte(m.GameID)),
		uintWord(m.Amount),
		crypto.Keccak256([]byte(m.Asset)),
		common.LeftPadBytes(m.Player.Bytes(), 32),
		uintWord(m.Deadline),
	)
	return d.digest(structHash)
}

// CashoutDigest returns the signable digest for a win authorization.
func (d Domain) CashoutDigest(m CashoutMsg) [32]byte {
	structHash := crypto.Keccak256(
		cashoutTypeHash,
		crypto.Keccak256(m.Seed),
		crypto.Keccak256([]byte(m.GameID)),
		uintWord(m.Payout),
		crypto.Keccak256([]byte(m.Asset)),
		common.LeftPadBytes(m.Player.Bytes(), 32),
		uintWord(m.Deadline),
	)
	return d.digest(structHash)
}

// LossDigest returns the signable digest for a loss authorization.
func (d Domain) LossDigest(m LossMsg) [32]byte {
	structHash := crypto.Keccak256(
		lossTypeHash,
		crypto.Keccak256(m.Seed),
		crypto.Keccak256([]byte(m.GameID)),
		crypto.Keccak256([]byte(m.Asset)),
		common.LeftPadBytes(m.Player.Bytes(), 32),
		uintWord(m.Deadline),
	)
	return d.digest(structHash)
}

// digest assembles keccak256(0x19 0x01 ‖ separator ‖ structHash).
func (d Domain) digest(structHash []byte) [32]byte {
	sep := d.Separator()
	var out [32]byte
	copy(out[:], crypto.Keccak256([]byte{0x19, 0x01}, sep[:], structHash))
	return out
}

// SeedCommitment returns the keccak256 commitment for a seed, the hash the
// revealed preimage must reproduce at resolution time.
func SeedCommitment(seed []byte) [32]byte {
	var out [32]byte
	copy(out[:], crypto.Keccak256(seed))
	return out
}

// uintWord encodes a non-negative int64 as a big-endian 32-byte word.
func uintWord(v int64) []byte {
	var b [8]byte
	b[0] = byte(v >> 56)
	b[1] = byte(v >> 48)
	b[2] = byte(v >> 40)
	b[3] = byte(v >> 32)
	b[4] = byte(v >> 24)
	b[5] = byte(v >> 16)
	b[6] = byte(v >> 8)
	b[7] = byte(v)
	return common.LeftPadBytes(b[:], 32)
}
