// Package respserver accepts journal appends over the Redis protocol.
//
// Any RESP2 client can talk to it. Commands:
//
//	PING [message]
//	RJ.APPEND <reason> <payload>   -> [sequence, timestamp, chain tag]
//	RJ.NEXTSEQ                     -> integer
//	RJ.STATS                       -> flat key/value array
//	RJ.VERIFY                      -> flat key/value array, or -CORRUPT
//	RJ.SYNC                        -> +OK
//	QUIT
//
// Errors carry a class prefix (OVERFLOW, STATE, CORRUPT, IO, ERR) so
// clients can branch without parsing the message.
package respserver
