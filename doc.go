/*
Package rapport manages the client side of a résumé interview chat.

A user (the interviewer) types questions; each question is sent to a remote
answer endpoint (POST {baseURL}/chat) and the reply is shown as the
interviewee's turn. The package owns the conversation transcript, the pending
input and the in-flight flag, and guarantees that at most one exchange with
the endpoint is outstanding at any time.

# Architecture

  - pkg/domain: turns, the append-only transcript, session state, snapshots and diffs.
  - internal/runtime: the pure transition function of the submission state machine.
  - pkg/session: the Controller that applies transitions under a single-flight guard
    and broadcasts snapshots to renderers.
  - pkg/adapters/remote: the HTTP client of the answer endpoint.
  - pkg/adapters/http, pkg/adapters/mcp: drive a session over HTTP/SSE or MCP.
  - pkg/adapters/redis: publish snapshots for out-of-process observers.

# Usage

	chat, err := rapport.New(rapport.WithBaseURL("http://localhost:8000"))
	if err != nil {
		log.Fatal(err)
	}
	defer chat.Close()

	snap, err := chat.Ask(context.Background(), "請介紹一個你最有成就感的專案？")
	if err != nil {
		log.Fatal(err)
	}
	if snap.LastError != "" {
		fmt.Println(snap.LastError)
	}

A failed exchange never surfaces as a Go error from Ask: the session returns to
Idle, keeps the question in the transcript and exposes a fixed user-facing
message in Snapshot.LastError. The classified cause (HTTP, transport or decode)
is reported to lifecycle hooks and logs.
*/
package rapport
