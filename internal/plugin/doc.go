// Package plugin defines the contract every worksheet generator implements,
// along with the problem records exchanged between generators and the
// renderer.
//
// Two capability shapes exist: Leveled generators take a difficulty and a
// problem count, Counted generators take only a count. A Constructor records
// which shape a generator implements so callers dispatch without guessing.
package plugin
