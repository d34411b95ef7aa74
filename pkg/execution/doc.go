/*
Package execution turns an instruction bundle into a submitted, confirmed transaction.

An execution moves through assembling, signing and submitting to confirmed or failed:

 1. assembling: fetch the latest blockhash and the fee payer's balance, build the message
    once, and compute the required balance as the minimum reserve plus the message fee.
 2. If the balance is short the execution fails with *domain.InsufficientBalanceError
    before anything is signed or sent.
 3. signing: collect local and remote signatures over the exact message bytes from step 1.
 4. submitting: attach the signatures, submit, and wait for confirmation.

Nothing is retried. An empty bundle is a dry run that confirms immediately without a
signature.

Executor exposes this as a ports.Service with a bounded number of concurrent executions;
Unavailable is the service used when no execution context is attached.
*/
package execution
