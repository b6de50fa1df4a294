/*
Package session implements the submission controller of a chat session.

A Controller owns the transcript, the pending input and the in-flight flag of
one session. Submissions are single-flight: while an exchange with the answer
endpoint is outstanding, further submissions are rejected with
domain.ErrSessionBusy and no second request is ever issued.

Renderers observe the session through Subscribe, which delivers immutable
snapshots in version order. Forward bridges a subscription to a
ports.StatePublisher such as the Redis adapter.
*/
package session
