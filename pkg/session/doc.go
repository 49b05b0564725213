/*
Package session serializes turns per session. A session identifier acts
as a single-writer lock for the duration of one turn: the lease is
acquired after authorization succeeds and released when the terminal
stream event is emitted or the turn aborts. Cross-session turns run
fully in parallel.
*/
package session
