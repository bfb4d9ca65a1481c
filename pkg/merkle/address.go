package merkle

import (
	"encoding/hex"
	"fmt"
	"regexp"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// addressPattern matches spec §3's syntactic address requirement:
// ^(0x|0X)[0-9A-Fa-f]{40}$
var addressPattern = regexp.MustCompile(`^(0x|0X)[0-9A-Fa-f]{40}$`)

const zeroAddress = "0x0000000000000000000000000000000000000000"

// ValidateAddressSyntax checks the regex, non-zero, and EIP-55 checksum
// invariants of spec §3: the address must match the syntax, must not be the
// zero address, and must pass checksum validation — either all-lower,
// all-upper, or a correctly mixed-case EIP-55 checksum.
func ValidateAddressSyntax(address string) error {
	if !addressPattern.MatchString(address) {
		return fmt.Errorf("address %q does not match required syntax", address)
	}
	if strings.EqualFold(address, zeroAddress) {
		return fmt.Errorf("zero address is not permitted")
	}
	if !isValidChecksumCasing(address) {
		return fmt.Errorf("address %q fails EIP-55 checksum validation", address)
	}
	return nil
}

// ChecksumAddress canonicalizes a syntactically valid address into its
// EIP-55 mixed-case checksummed form. Callers at every read-path and
// write-path boundary that accept a caller-supplied address MUST call this
// before using the address as a KV lookup key, per spec §9's resolution of
// the case-normalization open question.
func ChecksumAddress(address string) string {
	return common.HexToAddress(address).Hex()
}

// isValidChecksumCasing implements EIP-55: a hex address (without the 0x
// prefix) is valid if it is entirely lowercase, entirely uppercase, or if
// every alphabetic hex digit's case matches the corresponding nibble of
// keccak256(lowercase address) being >= 8 (uppercase) or < 8 (lowercase).
func isValidChecksumCasing(address string) bool {
	hexPart := address[2:]
	lower := strings.ToLower(hexPart)
	upper := strings.ToUpper(hexPart)
	if hexPart == lower || hexPart == upper {
		return true
	}

	hash := crypto.Keccak256([]byte(lower))
	hashHex := hex.EncodeToString(hash)

	for i, c := range hexPart {
		if c >= '0' && c <= '9' {
			continue
		}
		nibble := hexNibble(hashHex[i])
		wantUpper := nibble >= 8
		isUpper := c >= 'A' && c <= 'F'
		if wantUpper != isUpper {
			return false
		}
	}
	return true
}

func hexNibble(c byte) int {
	switch {
	case c >= '0' && c <= '9':
		return int(c - '0')
	case c >= 'a' && c <= 'f':
		return int(c-'a') + 10
	default:
		return 0
	}
}
