/*
Package domain contains the core models of the flowchain execution pipeline.

It is kept free of I/O: commands build these values without touching the network, and the
signing and execution packages consume them.

# Key Entities

  - Keypair: a required signer, either local (secret held) or remote (signed out-of-band).
  - Bundle: the unsigned payload of one transaction (fee payer, signers, reserve, instructions).
  - SignatureRequest / Presigner: one out-of-band signature round trip and its result.
  - ExecutionRecord: the journal entry tracking an execution through its states.
*/
package domain
