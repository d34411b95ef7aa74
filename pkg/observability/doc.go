/*
Package observability turns execution lifecycle hooks into Prometheus metrics.

Metrics exposes a domain.LifecycleHooks value that can be handed to the execution service and
the signing coordinator. Chain combines it with other hooks, such as audit logging.
*/
package observability
