// Package client sends LDAP requests over a byte stream and turns the
// responses into futures.
//
// Every request gets a ResultFuture keyed by its message ID. A background
// read loop decodes responses and completes the matching future; searches
// use a SearchFuture that streams entries and references to a
// SearchHandler until SearchResultDone arrives.
//
//	f, err := conn.Send(&ldap.DeleteRequest{Entry: dn}, nil)
//	if err != nil {
//		return err
//	}
//	_, err = f.GetWithTimeout(5 * time.Second)
//
// Handlers run on an Executor. Callbacks of one future never overlap, even
// with GoExecutor.
package client
