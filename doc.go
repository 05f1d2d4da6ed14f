/*
Package cadence is a presentation engine for interactive narratives: ordered story beats, a pausable progress clock, and deterministic navigation over them.

It separates the story definition (beats and their payloads) from the progression state machine (the navigator) and from everything visual (the presenter), so the same story runs under a terminal player, an HTTP harness, or an automation agent without changes.

# Concept

A story is an ordered sequence of beats. The engine owns position, pause state, and the advance cadence; the host owns rendering and raw input. Input reaches the engine only as four semantic commands (advance, retreat, pause start, pause end), and the engine reaches the host only through the Presenter callbacks. This Hexagonal Architecture allows cadence to be embedded in any interface: CLI, HTTP server, or MCP agent infrastructure.

# Key Features

  - Deterministic Navigation: bounded skip resolution, no wraparound, silent dead ends.
  - Pausable Cadence: the progress clock accumulates by timestamp delta, so paused time is excluded exactly.
  - Hexagonal Architecture: core logic is decoupled from adapters (loaders, presenters, transports).
  - Declared Lifecycle Hooks: a fixed set of extension points, dispatched in registration order.

# Usage

Construct a Story around a Presenter, register beats (directly or through a loader), then drive it with navigation calls or semantic commands.

	package main

	import (
		"context"
		"log"

		"github.com/aretw0/cadence"
		"github.com/aretw0/cadence/pkg/domain"
		"github.com/aretw0/cadence/pkg/ports"
	)

	func main() {
		ctx := context.Background()

		story, err := cadence.New(ports.PresenterFuncs{
			OnApplyBeatState: func(state domain.BeatState, id domain.BeatID, index int) {
				log.Printf("beat %s: %s", id, state.Content())
			},
		})
		if err != nil {
			log.Fatal(err)
		}
		defer story.Close()

		story.RegisterBeat("intro", domain.BeatState{domain.KeyContent: "Hello."})
		story.RegisterBeat("outro", domain.BeatState{domain.KeyContent: "Goodbye."})

		story.Start(ctx)
		story.Handle(ctx, domain.CommandAdvance)
		story.End(ctx)
	}
*/
package cadence
