/*
Package ports defines the driven ports (interfaces) of the rapport session manager.

These interfaces decouple the submission controller from the network and from
out-of-process renderers.

# Key Interfaces

  - AnswerClient: performs one request/response exchange with the answer endpoint.
  - StatePublisher: forwards session snapshots to an external sink (e.g., Redis).
*/
package ports
