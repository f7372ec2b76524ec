// Package client implements an HTTP client for the dCouch server.
//
// The client speaks the same CouchDB 0.10 style API the server exposes and maps
// error answers back into Go errors:
//
//   - not_found, conflict and validation_failed answers become *store.Error
//     values, so store.IsNotFound / store.IsConflict work on both sides of the wire.
//   - All other error answers (bad_request, internal_error, non JSON bodies)
//     become *RemoteError values carrying the HTTP status.
//
// Transport errors are retried up to ClientConfig.RetryCount times. Error
// answers are never retried.
//
// Usage Example:
//
//	c, err := client.NewClient(common.ClientConfig{
//		Endpoint:      "localhost:5984",
//		TimeoutSecond: 5,
//		RetryCount:    3,
//	})
//	if err != nil {
//		return err
//	}
//	defer c.Close()
//
//	if err := c.CreateDB(ctx, "people"); err != nil {
//		return err
//	}
//	res, err := c.Put(ctx, "people", "user_1", map[string]interface{}{
//		"ruby_class": "User",
//		"firstname":  "Bert",
//	})
//
// Endpoints of the form unix:///path/to.sock are dialed over a unix socket.
package client
