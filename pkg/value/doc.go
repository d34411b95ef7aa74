/*
Package value defines the dynamically typed data model passed between flowchain commands.

Every command input and output is a Value: a closed union of primitives (strings, booleans,
integers from 8 to 128 bits, floats, decimals), fixed-size binary blobs shaped like Solana
public keys (32 bytes) and keypairs/signatures (64 bytes), arbitrary byte strings, arrays
and insertion-ordered string-keyed maps.

# Canonical Form

The same logical number can arrive as an integer, a decimal or a 128-bit integer depending on
where it came from. Normalize rewrites a Value so that numerically equal values compare equal
with Equal:

	a := value.Normalize(value.MustDecimal("42"))
	b := value.Normalize(value.U128FromUint64(42))
	value.Equal(a, b) // true, both are U64(42)

# Wire Format

The package also owns the JSON wire codec used at the process boundary. Each value is encoded
as an object with a single key naming its variant:

	{"M":{"amount":{"U":"18446744073709551615"},"owner":{"B3":"11111111111111111111111111111111"}}}

Integers wider than 32 bits are written as decimal strings, 32 and 64 byte blobs as base58
and byte strings as base64, so that no consumer loses precision when parsing the text.
*/
package value
