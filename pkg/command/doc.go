/*
Package command is the boundary between node implementations and the execution engine.

A Command receives its inputs as a *value.Map, decodes them into a typed record with the
bridge package, assembles a domain.Bundle and hands it to Context.Execute together with the
outputs it wants passed through. Commands never talk to the network themselves.

Registry maps node names to commands. RegisterBuiltins installs the commands shipped with the
engine.
*/
package command
