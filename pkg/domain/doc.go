/*
Package domain contains the core domain models for the Cadence engine.

It defines the fundamental entities of the beat progression machine, such as
Beats, Settings, and the Story State. This package is kept pure and free of
external dependencies like I/O or persistence, following Hexagonal
Architecture principles.

# Key Entities

  - Beat: One discrete step of an interactive story, identified by id and position.
  - BeatRef: A reference to a beat by id or by positional index.
  - Settings: The recognized configuration surface of a story instance.
  - StateSnapshot: A read-only view of the navigator state (current beat, mode flags).
  - Command: A semantic input command (advance, retreat, pause start/end).
*/
package domain
