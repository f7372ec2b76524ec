// Package common provides the configuration structures and the logging setup
// shared by the HTTP server, the client and the command line.
//
// Key Components:
//
//   - ServerConfig: Configuration of the HTTP server: endpoint, timeouts, the
//     document codec, an optional fixture file and the field names used by the
//     view engine. ToStoreOptions turns it into lstore.Options.
//
//   - ClientConfig: Endpoint, timeout and retry settings of the HTTP client.
//
//   - Logger: A logger.ILogger implementation installed as the dragonboat logger
//     factory. Every package declares its logger with logger.GetLogger(name);
//     InitLoggers sets the level of all of them. Lines look like
//
//     2025/01/02 15:04:05 INFO  | registry        | created database users
package common
