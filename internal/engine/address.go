package engine

import (
	"regexp"
)

// AddressValidator checks the format of an address for a coin on a network.
// It is a pure predicate; the engine takes it as a dependency so callers can
// swap in stricter validation.
type AddressValidator func(address, coin, network string) bool

// networkPatterns match by network first: any token on the ethereum network
// uses an EVM address regardless of the coin symbol.
var networkPatterns = map[string]*regexp.Regexp{
	"ethereum":  regexp.MustCompile(`^0x[0-9a-fA-F]{40}$`),
	"arbitrum":  regexp.MustCompile(`^0x[0-9a-fA-F]{40}$`),
	"optimism":  regexp.MustCompile(`^0x[0-9a-fA-F]{40}$`),
	"polygon":   regexp.MustCompile(`^0x[0-9a-fA-F]{40}$`),
	"avax":      regexp.MustCompile(`^0x[0-9a-fA-F]{40}$`),
	"bsc":       regexp.MustCompile(`^0x[0-9a-fA-F]{40}$`),
	"tron":      regexp.MustCompile(`^T[1-9A-HJ-NP-Za-km-z]{33}$`),
	"solana":    regexp.MustCompile(`^[1-9A-HJ-NP-Za-km-z]{32,44}$`),
	"bitcoin":   regexp.MustCompile(`^(bc1[ac-hj-np-z02-9]{11,87}|[13][a-km-zA-HJ-NP-Z1-9]{25,34})$`),
	"litecoin":  regexp.MustCompile(`^(ltc1[ac-hj-np-z02-9]{11,87}|[LM3][a-km-zA-HJ-NP-Z1-9]{26,33})$`),
	"dogecoin":  regexp.MustCompile(`^D[5-9A-HJ-NP-U][1-9A-HJ-NP-Za-km-z]{25,34}$`),
	"ripple":    regexp.MustCompile(`^r[1-9A-HJ-NP-Za-km-z]{24,34}$`),
	"monero":    regexp.MustCompile(`^[48][0-9A-Za-z]{94}$`),
	"liquid":    regexp.MustCompile(`^[A-Za-z0-9]{26,103}$`),
	"lightning": regexp.MustCompile(`^ln[a-z0-9]{20,}$`),
}

// fallbackPattern is the permissive default for networks with no dedicated
// pattern: alphanumerics plus the separators common in chain addresses.
var fallbackPattern = regexp.MustCompile(`^[A-Za-z0-9:_\-.]{10,128}$`)

// ValidAddressFormat is the default AddressValidator. Format checking only;
// no checksum or on-chain validation.
func ValidAddressFormat(address, coin, network string) bool {
	if len(address) < 10 {
		return false
	}
	if p, ok := networkPatterns[network]; ok {
		return p.MatchString(address)
	}
	return fallbackPattern.MatchString(address)
}
