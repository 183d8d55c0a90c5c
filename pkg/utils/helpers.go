package utils

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	NullEthereumAddress    = "0000000000000000000000000000000000000000"
	NullEthereumAddressHex = fmt.Sprintf("0x%s", NullEthereumAddress)
)

// NormalizeAddress returns the canonical, case-insensitive form of a wallet address.
func NormalizeAddress(address string) string {
	return strings.ToLower(strings.TrimSpace(address))
}

func AreAddressesEqual(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}

func IsNullAddress(address string) bool {
	a := NormalizeAddress(address)
	return a == "" || a == NullEthereumAddressHex || a == NullEthereumAddress
}

// FormatUnits renders an integer token amount with the given number of decimals,
// e.g. FormatUnits(1500000000000000000, 18) == "1.5".
func FormatUnits(amount *big.Int, decimals int32) string {
	if amount == nil {
		return "0"
	}
	return decimal.NewFromBigInt(amount, -decimals).String()
}

func FormatEther(wei *big.Int) string {
	return FormatUnits(wei, 18)
}
