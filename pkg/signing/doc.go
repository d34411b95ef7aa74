/*
Package signing collects the signatures a bundle needs.

Local keypairs sign immediately. Remote keypairs are collapsed to their distinct public keys,
sorted, and requested concurrently from a ports.SignatureRequester under one shared
deadline: if any response is missing when it elapses the whole collection fails and nothing
is signed. Returned signatures are verified and wrapped as presigners.

Requests for the same public key are serialized across bundles by a per-key lock, which can
be extended across replicas with a ports.DistributedLocker.

Hub is an in-process SignatureRequester that parks requests until a client submits the
signature, e.g. through the HTTP adapter.
*/
package signing
