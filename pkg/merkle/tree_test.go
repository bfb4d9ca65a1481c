package merkle

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

func mustEntry(t *testing.T, addr, amount string) Entry {
	t.Helper()
	if err := ValidateAddressSyntax(addr); err != nil {
		t.Fatalf("invalid address %q: %v", addr, err)
	}
	checksummed := ChecksumAddress(addr)
	wei, err := ParseDecimalToWei(amount)
	if err != nil {
		t.Fatalf("invalid amount %q: %v", amount, err)
	}
	return Entry{Address: checksummed, AmountWei: wei, AmountDecimal: FormatWeiDecimal(wei)}
}

func TestBuild_SingleLeaf(t *testing.T) {
	entry := mustEntry(t, "0x0000000000000000000000000000000000000001", "100")
	result := Build([]Entry{entry})

	if len(result.Proofs) != 1 {
		t.Fatalf("expected exactly one proof record")
	}
	if result.Proofs[0].ProofString != "" {
		t.Errorf("single-leaf tree must have an empty proof string, got %q", result.Proofs[0].ProofString)
	}
	if !VerifyProof(result.RootHex, entry.Address, entry.AmountWei, "") {
		t.Errorf("single-leaf proof failed to verify")
	}
}

func TestBuild_RoundTripVerifiesForAllSizes(t *testing.T) {
	for _, n := range []int{2, 3, 4, 5, 7, 8, 16, 33} {
		n := n
		t.Run(fmt.Sprintf("n=%d", n), func(t *testing.T) {
			entries := make([]Entry, n)
			for i := 0; i < n; i++ {
				entries[i] = mustEntry(t, fmt.Sprintf("0x%040x", i+1), fmt.Sprintf("%d", i+1))
			}

			result := Build(entries)
			if len(result.Proofs) != n {
				t.Fatalf("expected %d proofs, got %d", n, len(result.Proofs))
			}

			for i, p := range result.Proofs {
				amountWei := new(big.Int)
				amountWei.SetString(p.AmountWei, 10)
				if !VerifyProof(result.RootHex, p.Address, amountWei, p.ProofString) {
					t.Errorf("proof %d (%s) failed to verify against root %s", i, p.Address, result.RootHex)
				}
			}
		})
	}
}

func TestBuild_RootFormat(t *testing.T) {
	entries := []Entry{
		mustEntry(t, "0x0000000000000000000000000000000000000001", "1"),
		mustEntry(t, "0x0000000000000000000000000000000000000002", "2"),
	}
	result := Build(entries)

	if len(result.RootHex) != 66 || result.RootHex[:2] != "0x" {
		t.Errorf("root hex has unexpected format: %q", result.RootHex)
	}
}

// referenceLeaf and referencePair re-derive spec §4.3's double-keccak
// leaf/sorted-pair algorithm independently of pkg/merkle's own leafHash/
// hashPair, so TestBuild_MatchesIndependentlyComputedOnChainDigest checks two
// separate implementations converge rather than a tree.go helper against
// itself.
func referenceLeaf(t *testing.T, address string, amountWei *big.Int) []byte {
	t.Helper()
	encoded := make([]byte, 64)
	addrBytes := common.HexToAddress(address).Bytes()
	copy(encoded[32-len(addrBytes):32], addrBytes)
	amountWei.FillBytes(encoded[32:64])
	inner := crypto.Keccak256(encoded)
	return crypto.Keccak256(inner)
}

func referencePair(a, b []byte) []byte {
	if bytes.Compare(a, b) <= 0 {
		return crypto.Keccak256(append(append([]byte{}, a...), b...))
	}
	return crypto.Keccak256(append(append([]byte{}, b...), a...))
}

// TestBuild_MatchesIndependentlyComputedOnChainDigest seeds an end-to-end
// scenario shaped like spec §8 scenario 1 (a 5-row whitelist, CreateTree,
// assert an exact root and an exact proof). Spec §8's own literal fixture
// values are elided in the source spec (`0xd31F…8031`, `0x079f6dbc…`) and
// recoverable nowhere in the corpus (see DESIGN.md), so this test computes
// its own expected root/proof independently — via referenceLeaf/
// referencePair, a second implementation of the double-keccak/sorted-pair
// algorithm that shares no code with pkg/merkle's Build — and asserts Build
// matches it bit-for-bit, which is the actual property spec §4.3's
// on-chain-verifier-compatibility requirement is checking for.
func TestBuild_MatchesIndependentlyComputedOnChainDigest(t *testing.T) {
	entries := []Entry{
		mustEntry(t, fmt.Sprintf("0x%040x", 0xd31fd), "6666.67"),
		mustEntry(t, fmt.Sprintf("0x%040x", 0x9f2e4), "1250"),
		mustEntry(t, fmt.Sprintf("0x%040x", 0x98331), "53228.051486152399030389"),
		mustEntry(t, fmt.Sprintf("0x%040x", 0xe1f3d), "1250.00"),
		mustEntry(t, fmt.Sprintf("0x%040x", 0xbb08a), "16023.916666666666666667"),
	}

	result := Build(entries)
	if len(result.Proofs) != len(entries) {
		t.Fatalf("expected %d proofs, got %d", len(entries), len(result.Proofs))
	}

	leaves := make([][]byte, len(entries))
	for i, e := range entries {
		leaves[i] = referenceLeaf(t, e.Address, e.AmountWei)
	}

	// level-order reduction mirroring Build's odd-node-promotion rule,
	// tracking each original leaf's sibling path for proof reconstruction.
	paths := make([][][]byte, len(leaves))
	groups := make([][]int, len(leaves))
	for i := range groups {
		groups[i] = []int{i}
	}
	level := leaves
	for len(level) > 1 {
		var next [][]byte
		var nextGroups [][]int
		for i := 0; i+1 < len(level); i += 2 {
			left, right := level[i], level[i+1]
			for _, idx := range groups[i] {
				paths[idx] = append(paths[idx], right)
			}
			for _, idx := range groups[i+1] {
				paths[idx] = append(paths[idx], left)
			}
			next = append(next, referencePair(left, right))
			nextGroups = append(nextGroups, append(append([]int{}, groups[i]...), groups[i+1]...))
		}
		if len(level)%2 == 1 {
			next = append(next, level[len(level)-1])
			nextGroups = append(nextGroups, groups[len(level)-1])
		}
		level = next
		groups = nextGroups
	}

	wantRoot := "0x" + hex.EncodeToString(level[0])
	if result.RootHex != wantRoot {
		t.Fatalf("root mismatch: Build produced %s, independently computed %s", result.RootHex, wantRoot)
	}

	for i, p := range result.Proofs {
		var buf bytes.Buffer
		for j, sib := range paths[i] {
			if j > 0 {
				buf.WriteByte(',')
			}
			buf.WriteString("0x" + hex.EncodeToString(sib))
		}
		if p.ProofString != buf.String() {
			t.Errorf("proof %d mismatch: Build produced %q, independently computed %q", i, p.ProofString, buf.String())
		}
	}
}

func TestParseProofString_EmptyAndRoundTrip(t *testing.T) {
	siblings, err := ParseProofString("")
	if err != nil || siblings != nil {
		t.Errorf("expected nil, nil for empty proof string, got %v, %v", siblings, err)
	}

	entries := make([]Entry, 4)
	for i := range entries {
		entries[i] = mustEntry(t, fmt.Sprintf("0x%040x", i+1), fmt.Sprintf("%d", i+1))
	}
	result := Build(entries)

	parsed, err := ParseProofString(result.Proofs[0].ProofString)
	if err != nil {
		t.Fatalf("unexpected error parsing proof string: %v", err)
	}
	if len(parsed) == 0 {
		t.Errorf("expected a non-empty proof for a 4-leaf tree")
	}
}

func TestParseProofString_RejectsMalformedElements(t *testing.T) {
	cases := []string{
		"0xnothex",
		"not0xprefixed00000000000000000000000000000000000000000000000000",
		"0x" + "1234", // too short
	}
	for _, c := range cases {
		if _, err := ParseProofString(c); err == nil {
			t.Errorf("expected error for malformed proof element %q", c)
		}
	}
}

func TestVerifyProof_RejectsWrongLeaf(t *testing.T) {
	entries := make([]Entry, 5)
	for i := range entries {
		entries[i] = mustEntry(t, fmt.Sprintf("0x%040x", i+1), fmt.Sprintf("%d", i+1))
	}
	result := Build(entries)

	tamperedAmount := new(big.Int).Add(entries[0].AmountWei, big.NewInt(1))
	if VerifyProof(result.RootHex, entries[0].Address, tamperedAmount, result.Proofs[0].ProofString) {
		t.Errorf("expected verification to fail for a tampered amount")
	}
}
