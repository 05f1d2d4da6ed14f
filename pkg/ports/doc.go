/*
Package ports defines the driven ports (interfaces) for the Cadence engine.

These interfaces decouple the core logic from external implementations,
allowing the engine to work with various story sources and host UIs.

# Key Interfaces

  - Presenter: The callback surface a host supplies to render the story.
  - StoryLoader: Responsible for loading a complete story document.
  - Watchable: Implemented by loaders that can signal source changes.
*/
package ports
