// Package bridge converts between value.Value and statically typed Go records.
//
// Commands declare their inputs and outputs as ordinary structs and use FromMap and ToMap
// at the boundary:
//
//	type TransferInput struct {
//	    From   domain.Keypair   `value:"from"`
//	    To     solana.PublicKey `value:"to"`
//	    Amount decimal.Decimal  `value:"amount"`
//	    Memo   *string          `value:"memo"`
//	}
//
//	in, err := bridge.FromMap[TransferInput](inputs)
//
// Structs and maps become value Maps in declaration order. Pointers are optional fields: a
// nil pointer encodes as Null and Null decodes as nil. Field names come from the `value`
// tag, falling back to the `json` tag and then to the Go field name. A field missing from
// the input is an error unless it is a pointer or tagged omitempty.
//
// # Tokens
//
// Four kinds of binary domain types never descend into their fields. Public keys encode as a
// 32 byte blob, keypairs and signatures as 64 byte blobs, decimals as value.Decimal. On
// decode they accept looser inputs: a public key may also come from the last 32 bytes of a
// 64 byte keypair blob or from base58 text, and a decimal from any number or numeric string.
//
// # Enums
//
// Go has no sum types, so an enum is an interface registered with RegisterEnum whose
// variants implement Variant. The encoding depends on the shape of the variant type:
//
//	type Empty struct{}                                  // "Empty"
//	type Lamports uint64                                 // {"Lamports": U64}
//	type Pair struct{ bridge.Tuple; A uint8; B string }  // {"Pair": [U8, String]}
//	type Transfer struct{ To string; Amount uint64 }     // {"Transfer": {"To": ..., "Amount": ...}}
package bridge
