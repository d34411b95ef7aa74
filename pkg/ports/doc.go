/*
Package ports defines the driven ports (interfaces) of the flowchain execution core.

These interfaces decouple the signing and execution pipeline from the network client, the
out-of-band signer and the storage backends.

# Key Interfaces

  - Service: the backpressure-aware "ready, then call" service a command submits work to.
  - Network: blockhash, balance and fee lookups plus submission.
  - SignatureRequester: asks an external signer for one signature.
  - Journal: persists execution records.
  - DistributedLocker: serializes signature requests for the same key across replicas.
*/
package ports
