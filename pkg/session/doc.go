/*
Package session hands out live story playthroughs keyed by an opaque
session id.

It gives multi-client hosts (the HTTP harness) one place to create, look up,
and retire independent story instances, serializing per-session access so
concurrent requests cannot interleave a playthrough's lifecycle.
*/
package session
