// Package wire defines the binary framing exchanged with the LWM2M transport.
//
// The transport process delivers one command per line:
//
//	/{command}:{base64(payload)}
//
// and accepts responses framed as:
//
//	/resp:{command}:{base64(response)}
//
// # Headers
//
// Every request payload starts with a fixed 8-byte little-endian header
// (direction, message id, object id, instance id, resource count). Responses
// echo the message id, object id and instance id and add a status byte.
//
// # Status Codes
//
// Status values are CoAP response codes (2.05 Content = 0x45, 4.04 Not Found
// = 0x84, 5.00 Internal Server Error = 0xA0, ...) plus two local sentinels:
// NoError (0x00) and Ignore (0x01). Ignore means no response is emitted.
//
// Resource values inside request and response bodies use the TLV encoding
// implemented by the model package.
package wire
