// Package rooms hosts live teacher/student collaboration rooms.
//
// A room is owned by one teacher and admits students through a join-request
// approval workflow. Approved members post to an append-only chat log;
// teachers manage breakout groups, notes and membership; anyone with access
// can register screen shares. The store is the only synchronization point,
// so membership uniqueness lives in storage constraints rather than in
// read-then-write checks.
package rooms
