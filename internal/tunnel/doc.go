// Package tunnel reaches remote files by driving nested interactive shells.
//
// A Chain describes how to get from the local machine to a remote shell:
// an ordered list of hops such as an SSH login, a sudo escalation or a
// docker exec. Chains are written as
//
//	seg('|'seg)*
//	seg = ssh:<host>[:<port>][:askpw] | sudo[:askpw] | docker:<id> | bash
//
// A Session spawns a local shell on a pseudo-terminal with a distinctive
// prompt marker and replays the chain hop by hop, recognizing completion
// of each command by the marker's reappearance. File contents cross the
// terminal base64 encoded, so remote files never touch local disk.
//
// The Pool caches idle sessions per chain and owns the string interner
// that keeps hop descriptors small and comparable.
package tunnel
