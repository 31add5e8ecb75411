// Package assured tracks the acknowledgements of assured updates on a
// replication server.
//
// When an assured update arrives, Domain.Prepare decides whether the source
// is acknowledged at once or whether acks must first be collected from other
// servers. In the second case it returns an ExpectedAcks, which is handed to
// WaitingAcks together with the session of the source. WaitingAcks sends the
// final AckMsg to the source once enough acks arrived or the assured timeout
// expired, whichever comes first.
//
// Safe-data mode needs level-1 acks from replication servers. Safe-read mode
// needs an ack from every eligible server in the group; servers in degraded
// status are reported as failed without being asked.
package assured
