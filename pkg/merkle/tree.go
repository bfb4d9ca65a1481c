// Package merkle implements the whitelist Merkle builder (spec §4.3):
// CSV parsing and validation, address checksum canonicalization, wei-amount
// parsing, sorted-pair Merkle tree construction, and proof emission, in the
// exact shape the on-chain verifier expects (spec §1, §6).
package merkle

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// MaxEntries is the upper bound on whitelist rows per spec §3/§4.3.
const MaxEntries = 100_000

// Entry is a single validated, checksum-normalized whitelist row.
type Entry struct {
	Address       string // EIP-55 checksummed
	AmountWei     *big.Int
	AmountDecimal string // base-10 wei string, as stored/emitted
}

// ProofRecord is one leaf's emitted proof, ready for the proofs table.
type ProofRecord struct {
	Address     string
	AmountWei   string
	ProofString string // comma-joined 0x-prefixed hex32 siblings, "" for a single-leaf tree
}

// BuildResult is the output of building a tree over a validated entry set.
type BuildResult struct {
	RootHex string // 0x + 64 hex chars
	Proofs  []ProofRecord
}

// leafHash computes leaf = keccak256(keccak256(abi_encode(address, uint256))),
// matching the on-chain verifier's
// keccak256(bytes.concat(keccak256(abi.encode(whitelistAddress, whitelistAmountWei))))
// per spec §4.3. abi.encode of (address, uint256) is the 20-byte address
// left-padded to 32 bytes, concatenated with the 32-byte big-endian amount.
func leafHash(address string, amountWei *big.Int) []byte {
	encoded := make([]byte, 64)
	addrBytes := common.HexToAddress(address).Bytes()
	copy(encoded[32-len(addrBytes):32], addrBytes)
	amountWei.FillBytes(encoded[32:64])

	inner := crypto.Keccak256(encoded)
	return crypto.Keccak256(inner)
}

// hashPair hashes two sibling nodes in sorted order: the smaller of the two
// (by unsigned big-endian byte comparison) first, per spec §4.3's
// standard-Merkle-tree sorted-pair rule.
func hashPair(a, b []byte) []byte {
	if bytes.Compare(a, b) <= 0 {
		return crypto.Keccak256(append(append([]byte{}, a...), b...))
	}
	return crypto.Keccak256(append(append([]byte{}, b...), a...))
}

// Build constructs the sorted-pair Merkle tree over entries and emits the
// root plus a per-entry proof, per spec §4.3. entries must already be
// validated and checksum-normalized (see ParseAndValidateCSV); Build does not
// re-validate.
func Build(entries []Entry) BuildResult {
	n := len(entries)
	leaves := make([][]byte, n)
	for i, e := range entries {
		leaves[i] = leafHash(e.Address, e.AmountWei)
	}

	if n == 1 {
		return BuildResult{
			RootHex: hexEncode(leaves[0]),
			Proofs: []ProofRecord{{
				Address:     entries[0].Address,
				AmountWei:   entries[0].AmountDecimal,
				ProofString: "",
			}},
		}
	}

	// proofPaths[i] accumulates the sibling hashes for leaf i as the tree
	// is built level by level, bottom-up.
	proofPaths := make([][][]byte, n)
	for i := range proofPaths {
		proofPaths[i] = nil
	}

	level := leaves
	// groups tracks, for each node at the current level, which original
	// leaf indices are "under" it (so siblings can be appended to every
	// leaf beneath the other side of a pair).
	groups := make([][]int, n)
	for i := range groups {
		groups[i] = []int{i}
	}

	for len(level) > 1 {
		nextLevel := make([][]byte, 0, (len(level)+1)/2)
		nextGroups := make([][]int, 0, (len(level)+1)/2)

		for i := 0; i+1 < len(level); i += 2 {
			left, right := level[i], level[i+1]
			for _, idx := range groups[i] {
				proofPaths[idx] = append(proofPaths[idx], right)
			}
			for _, idx := range groups[i+1] {
				proofPaths[idx] = append(proofPaths[idx], left)
			}
			nextLevel = append(nextLevel, hashPair(left, right))
			nextGroups = append(nextGroups, append(append([]int{}, groups[i]...), groups[i+1]...))
		}

		if len(level)%2 == 1 {
			// Odd node promoted unchanged; no sibling added to its proof.
			nextLevel = append(nextLevel, level[len(level)-1])
			nextGroups = append(nextGroups, groups[len(level)-1])
		}

		level = nextLevel
		groups = nextGroups
	}

	proofs := make([]ProofRecord, n)
	for i, e := range entries {
		proofs[i] = ProofRecord{
			Address:     e.Address,
			AmountWei:   e.AmountDecimal,
			ProofString: joinProof(proofPaths[i]),
		}
	}

	return BuildResult{
		RootHex: hexEncode(level[0]),
		Proofs:  proofs,
	}
}

func hexEncode(h []byte) string {
	return "0x" + hex.EncodeToString(h)
}

func joinProof(siblings [][]byte) string {
	if len(siblings) == 0 {
		return ""
	}
	var buf bytes.Buffer
	for i, s := range siblings {
		if i > 0 {
			buf.WriteByte(',')
		}
		buf.WriteString(hexEncode(s))
	}
	return buf.String()
}

// VerifyProof recomputes the root from a leaf and its proof, for the
// round-trip property in spec §8. proof is the comma-joined hex-sibling
// string as stored.
func VerifyProof(rootHex, address string, amountWei *big.Int, proof string) bool {
	leaf := leafHash(address, amountWei)
	siblings, err := ParseProofString(proof)
	if err != nil {
		return false
	}

	node := leaf
	for _, sib := range siblings {
		node = hashPair(node, sib)
	}
	return hexEncode(node) == rootHex
}

// ParseProofString splits a comma-joined proof string into raw sibling hashes.
func ParseProofString(proof string) ([][]byte, error) {
	if proof == "" {
		return nil, nil
	}
	parts := bytes.Split([]byte(proof), []byte(","))
	out := make([][]byte, len(parts))
	for i, p := range parts {
		s := string(p)
		if len(s) != 66 || s[:2] != "0x" {
			return nil, fmt.Errorf("invalid proof element %q", s)
		}
		b, err := hex.DecodeString(s[2:])
		if err != nil {
			return nil, err
		}
		out[i] = b
	}
	return out, nil
}
