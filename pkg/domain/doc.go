/*
Package domain contains the core domain models of the rapport session manager.

It defines the conversation entities and the state the rendering collaborators
consume. This package is kept pure and free of external dependencies like I/O or
networking, following Hexagonal Architecture principles.

# Key Entities

  - Turn: One message in the conversation, attributed to the user or the assistant.
  - Transcript: The append-only, ordered history of turns for the current session.
  - State: The session state (Transcript, pending input, Phase, last error).
  - Snapshot: The read-only view of a State handed to renderers.
  - Event: An input to the state machine (input changed, submitted, answer, failure).
*/
package domain
